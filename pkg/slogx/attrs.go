package slogx

import (
	"log/slog"

	"github.com/go-openapi/swag"
)

// Error returns a slog.Attr representing the provided error.
// The attribute key is "error" and the value is the error's message.
// A nil error renders as an empty string so call sites never have to guard.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

const (
	// KeyLoggerName is the key for the component logger name.
	KeyLoggerName = "logger"
	// KeyEvent is the key for a native event name.
	KeyEvent = "event"
	// KeyViewID is the key for the presented view identity a router is bound to.
	KeyViewID = "view_id"
	// KeySlot is the key for a view router handler slot.
	KeySlot = "slot"
	// KeyRegistration is the key for a multiplexer registration id.
	KeyRegistration = "registration"
)

// LoggerName creates a slog.Attr with the provided logger name.
// The attribute key is defined by KeyLoggerName.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}

// Event tags a record with the native event name it concerns.
func Event(name string) slog.Attr {
	return slog.String(KeyEvent, name)
}

// ViewID tags a record with a view identity.
func ViewID(id string) slog.Attr {
	return slog.String(KeyViewID, id)
}

// Slot tags a record with a handler slot name.
func Slot[S ~string](slot S) slog.Attr {
	return slog.String(KeySlot, string(slot))
}

// Registration tags a record with a multiplexer registration id.
func Registration(id string) slog.Attr {
	return slog.String(KeyRegistration, id)
}

// View groups the identity of a presented view. Optional parts that are nil
// render as empty strings.
func View(id string, placementID, variationID *string) slog.Attr {
	return slog.Group("view",
		slog.String("id", id),
		slog.String("placement_id", swag.StringValue(placementID)),
		slog.String("variation_id", swag.StringValue(variationID)),
	)
}
