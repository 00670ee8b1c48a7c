// Package emitter multiplexes session-wide listeners onto native events.
//
// Any number of listeners may be added and removed independently for an
// event family. Underneath, the emitter holds at most one native
// subscription per native event name: it is created lazily by the first
// listener and released when the last listener for that name goes away.
//
// Every delivery is validated and decoded once, then handed to each
// listener in registration order. A listener that returns an error or
// panics is logged and skipped, the remaining listeners still run.
//
// Design decisions:
//   - Subscribe calls are collapsed per native event name with singleflight,
//     so concurrent AddListener calls produce exactly one transport subscribe.
//   - A failed subscribe rolls back the registration that triggered it and
//     returns the error to the caller.
//   - A subscription that completes after every registration for its name
//     was removed is released right away.
//   - Release failures are logged and counted, never returned. Bookkeeping
//     is cleared whether the release succeeded or not.
//   - Dispatch works on a snapshot of the registrations taken under lock and
//     invokes listeners outside of it, so listeners may add or remove
//     registrations from within a callback.
package emitter
