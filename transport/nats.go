package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/pkg/slogx"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/pkg/uuidx"
	"github.com/fogfish/opts"
	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix is prepended to native event names to form NATS subjects.
const DefaultSubjectPrefix = "adapty.events"

var _ Transport = (*NATS)(nil)

// NATS maps every native event name to the subject <prefix>.<event>.
type NATS struct {
	client *nats.Conn
	prefix string
	logger *slog.Logger
}

var (
	// SubjectPrefix overrides DefaultSubjectPrefix.
	SubjectPrefix = opts.ForName[NATS, string]("prefix")
	// NATSLogger sets the logger used for callback and unsubscribe failures.
	NATSLogger = opts.ForName[NATS, *slog.Logger]("logger")
)

// NewNATS creates a transport over an established connection.
func NewNATS(client *nats.Conn, options ...opts.Option[NATS]) *NATS {
	n := &NATS{
		client: client,
		prefix: DefaultSubjectPrefix,
		logger: slog.Default().With(slogx.LoggerName("adapty.transport.nats")),
	}
	if err := opts.Apply(n, options); err != nil {
		panic(err)
	}
	return n
}

// Subject returns the NATS subject used for event.
func (n *NATS) Subject(event string) string {
	if n.prefix == "" {
		return event
	}
	return n.prefix + "." + event
}

// Subscribe opens a NATS subscription for event. Callbacks run on the NATS
// delivery goroutine for that subscription, one message at a time.
func (n *NATS) Subscribe(ctx context.Context, event string, onEvent Callback) (Subscription, error) {
	if onEvent == nil {
		return nil, ErrCallbackRequired
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	subject := n.Subject(event)
	deliveryCtx := context.WithoutCancel(ctx)
	nsub, err := n.client.Subscribe(subject, func(msg *nats.Msg) {
		if err := onEvent(deliveryCtx, msg.Data); err != nil {
			n.logger.WarnContext(deliveryCtx, "native callback failed", slogx.Event(event), slog.String("subject", subject), slogx.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	return &natsSubscription{
		id:     uuidx.Prefixed(event),
		sub:    nsub,
		logger: n.logger,
	}, nil
}

// Publish wraps data in an envelope and publishes it on the subject for event.
// It is what a native bridge process does; tests and the CLI use it to replay events.
func (n *NATS) Publish(ctx context.Context, event, data string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env, err := Envelope(data)
	if err != nil {
		return err
	}
	return n.client.Publish(n.Subject(event), env)
}

type natsSubscription struct {
	id     string
	sub    *nats.Subscription
	logger *slog.Logger
	once   sync.Once
	err    error
}

func (s *natsSubscription) ID() string {
	return s.id
}

func (s *natsSubscription) Remove(context.Context) error {
	s.once.Do(func() {
		if err := s.sub.Unsubscribe(); err != nil {
			s.logger.Error("failed to unsubscribe", slogx.Error(err), slog.String("subscription", s.id))
			s.err = err
		}
	})
	return s.err
}
