/*
Package adapty bridges the push events of the native in-app purchase engine
into typed Go callbacks.

The native side delivers every event as an envelope of the form
{"data": "<json>"} on a named native event. The bridge validates and decodes
each envelope and routes the result to the listeners that asked for it, while
holding as few native subscriptions as the registrations need.

# Basic Usage

A Plugin sits on top of a transport. Session wide events go through its
emitter, presented views get a router each:

	p := adapty.New(transport.NewLocal())
	defer p.Close(ctx)

	h, err := p.Events().OnProfileLoaded(ctx, func(ctx context.Context, ev events.ProfileLoaded) error {
		slog.Info("profile refreshed", "profile_id", ev.Profile.ProfileID)
		return nil
	})
	if err != nil {
		// Handle error
	}
	defer h.Remove(ctx)

	pw, err := p.Paywall(viewID)
	if err != nil {
		// Handle error
	}
	err = pw.AddListener(ctx, paywall.CloseButtonPress, paywall.Notify(func() bool {
		return true
	}), dismiss)

# Architecture

The package is built around a few components:

1. Transport (transport)
  - Subscribes callbacks to native event names
  - Local delivers in process, NATS maps native events onto subjects

2. Events (events)
  - Validates envelopes and decodes payloads into typed records
  - Defines the error kinds every component reports with

3. Emitter (emitter)
  - Multiplexes any number of session listeners onto one native subscription per event
  - Releases a subscription when its last listener is removed

4. View routers (paywall, onboarding)
  - Bind to one view id and drop events of other views
  - Route each event to the typed handler of its slot
  - Collapse concurrent dismiss requests into one

# Failure handling

Listener errors and panics are logged and never reach other listeners.
Releasing a native subscription is best effort: failures are logged and the
bookkeeping is cleared regardless. View routers return envelope and decode
failures from the native callback, the emitter logs and drops them.

# Integration

  - NATS as a native transport (transport.NATS, cmd/adapty-events)
  - Prometheus for delivery and failure counters (pkg/metrics)
*/
package adapty
