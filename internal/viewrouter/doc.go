// Package viewrouter routes native events of one presented view to the
// handlers registered on its slots.
//
// A router is configured with a static table that binds every slot to the
// native event it is delivered on. Several slots may share one native event,
// in which case a resolver picks the slot from the decoded payload. Each slot
// holds at most one client handler and one internal handler, both
// replace-only. Native subscriptions are created on first need and live until
// the whole router is torn down.
//
// Design decisions:
//   - The router holds an explicit dismiss state. The first client handler
//     that asks for the view to close moves it from Presented to Dismissing
//     and triggers exactly one close request. Later requests are collapsed
//     until that request fails, which moves the state back to Presented.
//   - Envelope and decode failures are returned from the native callback.
//     Handler, close request and release failures are logged.
//   - Events for a different view id are dropped before any slot is resolved.
//   - Subscribe calls are collapsed per native event with singleflight. A
//     subscription that completes after the router was torn down is released.
//   - Close requests and releases run on their own goroutines. Wait blocks
//     until all of them returned.
package viewrouter
