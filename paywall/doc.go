// Package paywall routes the native events of a presented paywall view to
// typed handlers.
//
// A Router is bound to one view id and exposes sixteen slots on thirteen
// native events. The four user action slots (close button, system back,
// url press and custom action) share the performed action event and are told
// apart by its action type. Every other slot has a native event of its own.
//
// Each slot calls one handler shape, for example Notify for the close button
// or OnPurchaseCompleted for a finished purchase. Registering a handler of the
// wrong shape fails with events.ErrHandlerMismatch before anything is
// subscribed. A handler that returns true asks for the view to be dismissed.
package paywall
