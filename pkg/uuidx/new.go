package uuidx

import "github.com/google/uuid"

// New generates a new UUID using the version 7 format and returns it.
// It panics if the UUID generation fails.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString generates a new UUID using the version 7 format and returns it as a string.
func NewString() string {
	return New().String()
}

// Prefixed returns a fresh v7 id qualified by prefix, e.g. "profile_loaded:0190...".
// Ids never repeat within a process.
func Prefixed(prefix string) string {
	if prefix == "" {
		return NewString()
	}
	return prefix + ":" + NewString()
}
