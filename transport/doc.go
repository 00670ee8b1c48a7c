// Package transport is the native push-event boundary of the bridge. A
// native engine exposes one stream per native event name; each delivery is
// a JSON envelope of the form {"data": "<serialized event>"}.
//
// Design decisions:
//   - Context-first: Subscribe and Remove accept context.Context
//   - Raw envelopes: transports hand over bytes untouched, validation
//     happens in the events package so every transport behaves the same
//   - Surfaced failures: a Callback may return an error; transports log it
//     and Local additionally returns it from Emit
//   - Idempotent release: removing a subscription twice is a no-op
//
// Interface hierarchy:
//   - Transport: opens native subscriptions
//     └── Subscription: an open native stream that can be released
//
// Implementations:
//   - Local: in-process, synchronous delivery, used by tests and embedders
//     that already run inside the native host
//   - NATS: one NATS subject per native event, for bridges running out of process
//
// Example usage:
//
//	local := transport.NewLocal()
//	sub, err := local.Subscribe(ctx, "did_load_latest_profile", func(ctx context.Context, env []byte) error {
//	    return nil
//	})
//	if err != nil {
//	    return err
//	}
//	defer sub.Remove(ctx)
//
//	_ = local.EmitData(ctx, "did_load_latest_profile", `{"profile":{...}}`)
package transport
