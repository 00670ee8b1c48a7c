package events

import "errors"

var (
	// ErrUnsupportedEvent rejects a registration for an unknown event family.
	ErrUnsupportedEvent = errors.New("unsupported event")
	// ErrUnsupportedSlot rejects a registration for an unknown view slot.
	ErrUnsupportedSlot = errors.New("unsupported slot")
	// ErrHandlerMismatch rejects a handler whose signature does not fit its slot.
	ErrHandlerMismatch = errors.New("handler does not match slot")
	// ErrInvalidEnvelope marks a delivery that is not a {"data": string} object.
	ErrInvalidEnvelope = errors.New("invalid envelope")
	// ErrDecode marks envelope data that does not decode into the expected record.
	ErrDecode = errors.New("failed to decode event")
	// ErrHandler marks a consumer callback that returned an error or panicked.
	ErrHandler = errors.New("event handler failed")
	// ErrCloseRequest marks a failed dismiss request.
	ErrCloseRequest = errors.New("close request failed")
	// ErrTeardown marks a native subscription that could not be released.
	ErrTeardown = errors.New("failed to release native subscription")
)
