// Package bridgetest provides test doubles for the bridge: a scriptable
// transport that counts subscribe and release calls, and a slog handler
// that records what components logged.
package bridgetest
