// Package onboarding routes the native events of a presented onboarding
// view to typed handlers. Every one of its seven slots has a native event of
// its own.
package onboarding
