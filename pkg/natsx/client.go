package natsx

import (
	"os"

	"github.com/nats-io/nats.go"
)

// ClientName is the connection name reported to the NATS server.
const ClientName = "adapty-events"

// URL returns the NATS server address from the NATS_URL environment
// variable, falling back to nats.DefaultURL.
func URL() string {
	if u := os.Getenv("NATS_URL"); u != "" {
		return u
	}
	return nats.DefaultURL
}

// NewClient creates a new connection to the NATS server returned by URL.
// Without options the connection is named ClientName and reconnects forever.
func NewClient(opts ...nats.Option) (*nats.Conn, error) {
	if len(opts) == 0 {
		opts = append(opts, nats.Name(ClientName), nats.MaxReconnects(-1))
	}
	return nats.Connect(URL(), opts...)
}
