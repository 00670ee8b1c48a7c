package transport

import (
	"context"
	"errors"

	"github.com/tidwall/sjson"
)

// ErrCallbackRequired is returned by Subscribe when onEvent is nil.
var ErrCallbackRequired = errors.New("callback is required")

// Callback receives one raw envelope. A returned error is the failure
// surfaced to whoever delivered the envelope.
type Callback func(ctx context.Context, envelope []byte) error

// Transport opens native subscriptions.
type Transport interface {
	Subscribe(ctx context.Context, event string, onEvent Callback) (Subscription, error)
}

// Subscription is one open native stream.
type Subscription interface {
	ID() string
	Remove(ctx context.Context) error
}

// Envelope wraps a serialized event into the {"data": "..."} shape the native side delivers.
func Envelope(data string) ([]byte, error) {
	return sjson.SetBytes([]byte(`{}`), "data", data)
}
