package natsx

import (
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
)

func TestURL(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv("NATS_URL", "")
		assert.Equal(t, nats.DefaultURL, URL())
	})

	t.Run("from env", func(t *testing.T) {
		t.Setenv("NATS_URL", "nats://bridge:4333")
		assert.Equal(t, "nats://bridge:4333", URL())
	})
}
