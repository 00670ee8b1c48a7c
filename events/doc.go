// Package events holds the typed records the native engine pushes through
// the bridge and the decoders that produce them from raw envelope data.
//
// Design decisions:
//   - Tagged union: every record implements Event; view scoped records also
//     implement ViewEvent and one of PaywallEvent or OnboardingEvent, so a
//     type switch is exhaustive per family
//   - Decoder per native event: the stream a payload arrived on selects the
//     record type; the payload "id" is kept but never trusted for routing
//   - Probe before decode: required paths are checked with gjson so a
//     missing field is reported by name instead of surfacing as a zero value
//   - One error taxonomy: every failure of the bridge wraps a sentinel from
//     this package and can be tested with errors.Is
//
// Event hierarchy:
//   - Event
//     ├── ProfileLoaded, InstallationDetailsSuccess, InstallationDetailsFail
//     └── ViewEvent
//     ├── PaywallEvent: PaywallAction, PaywallNotice, PaywallProductSelected, ...
//     └── OnboardingEvent: OnboardingAction, OnboardingStateUpdated, ...
package events
