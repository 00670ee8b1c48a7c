package transport

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/pkg/slogx"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/pkg/uuidx"
	"github.com/alphadose/haxmap"
	"github.com/fogfish/opts"
)

var _ Transport = (*Local)(nil)

// Local is an in-process transport. Emit delivers synchronously, in
// subscription order, on the caller's goroutine.
type Local struct {
	topics *haxmap.Map[string, *localTopic]
	logger *slog.Logger
}

// LocalLogger sets the logger used for callback failures.
var LocalLogger = opts.ForName[Local, *slog.Logger]("logger")

// NewLocal creates an empty in-process transport.
func NewLocal(options ...opts.Option[Local]) *Local {
	l := &Local{
		topics: haxmap.New[string, *localTopic](),
		logger: slog.Default().With(slogx.LoggerName("adapty.transport.local")),
	}
	if err := opts.Apply(l, options); err != nil {
		panic(err)
	}
	return l
}

func (l *Local) topic(event string) *localTopic {
	t, _ := l.topics.GetOrCompute(event, func() *localTopic {
		return &localTopic{event: event}
	})
	return t
}

// Subscribe registers onEvent for event.
func (l *Local) Subscribe(ctx context.Context, event string, onEvent Callback) (Subscription, error) {
	if onEvent == nil {
		return nil, ErrCallbackRequired
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t := l.topic(event)
	sub := &localSubscription{
		id:      uuidx.Prefixed(event),
		topic:   t,
		onEvent: onEvent,
	}
	t.mu.Lock()
	t.subs = append(t.subs, sub)
	t.mu.Unlock()
	return sub, nil
}

// Emit delivers envelope to every live subscription of event. Callback
// errors are logged and returned joined.
func (l *Local) Emit(ctx context.Context, event string, envelope []byte) error {
	t, ok := l.topics.Get(event)
	if !ok {
		return nil
	}

	t.mu.RLock()
	subs := slices.Clone(t.subs)
	t.mu.RUnlock()

	var errs error
	for _, sub := range subs {
		if err := sub.onEvent(ctx, envelope); err != nil {
			l.logger.WarnContext(ctx, "native callback failed", slogx.Event(event), slog.String("subscription", sub.id), slogx.Error(err))
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

// EmitData wraps data in an envelope and emits it.
func (l *Local) EmitData(ctx context.Context, event, data string) error {
	env, err := Envelope(data)
	if err != nil {
		return err
	}
	return l.Emit(ctx, event, env)
}

// Subscribers reports how many live subscriptions event has.
func (l *Local) Subscribers(event string) int {
	t, ok := l.topics.Get(event)
	if !ok {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}

type localTopic struct {
	event string
	mu    sync.RWMutex
	subs  []*localSubscription
}

func (t *localTopic) remove(sub *localSubscription) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subs = slices.DeleteFunc(t.subs, func(s *localSubscription) bool { return s == sub })
}

type localSubscription struct {
	id        string
	topic     *localTopic
	onEvent   Callback
	closeOnce sync.Once
}

func (s *localSubscription) ID() string {
	return s.id
}

func (s *localSubscription) Remove(context.Context) error {
	s.closeOnce.Do(func() {
		s.topic.remove(s)
	})
	return nil
}
