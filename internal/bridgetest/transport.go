package bridgetest

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/pkg/uuidx"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/transport"
)

var _ transport.Transport = (*Transport)(nil)

// Transport is a fake native transport. Deliveries run synchronously on the
// caller's goroutine.
type Transport struct {
	mu           sync.Mutex
	live         map[string][]*Subscription
	subscribes   map[string]int
	removes      map[string]int
	subscribeErr error
	removeErr    error
	gate         chan struct{}
	entered      chan string
}

// NewTransport returns a fake with no subscriptions.
func NewTransport() *Transport {
	return &Transport{
		live:       make(map[string][]*Subscription),
		subscribes: make(map[string]int),
		removes:    make(map[string]int),
		entered:    make(chan string, 128),
	}
}

// FailSubscribe makes every following Subscribe return err. nil restores success.
func (f *Transport) FailSubscribe(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribeErr = err
}

// FailRemove makes every following Remove return err. nil restores success.
// The subscription is released from the fake either way.
func (f *Transport) FailRemove(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeErr = err
}

// Hold blocks every following Subscribe until the returned func is called.
func (f *Transport) Hold() (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gate = gate
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.gate = nil
			f.mu.Unlock()
			close(gate)
		})
	}
}

// Entered yields the event name of every Subscribe call as it starts, before any Hold gate.
func (f *Transport) Entered() <-chan string {
	return f.entered
}

func (f *Transport) Subscribe(ctx context.Context, event string, onEvent transport.Callback) (transport.Subscription, error) {
	if onEvent == nil {
		return nil, transport.ErrCallbackRequired
	}
	f.mu.Lock()
	f.subscribes[event]++
	gate := f.gate
	f.mu.Unlock()

	f.entered <- event
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	sub := &Subscription{id: uuidx.Prefixed(event), event: event, onEvent: onEvent, owner: f}
	f.live[event] = append(f.live[event], sub)
	return sub, nil
}

// Deliver hands envelope to every live subscription of event and returns
// the joined callback errors.
func (f *Transport) Deliver(ctx context.Context, event string, envelope []byte) error {
	f.mu.Lock()
	subs := slices.Clone(f.live[event])
	f.mu.Unlock()

	var errs error
	for _, sub := range subs {
		errs = errors.Join(errs, sub.onEvent(ctx, envelope))
	}
	return errs
}

// DeliverData wraps data in an envelope and delivers it.
func (f *Transport) DeliverData(ctx context.Context, event, data string) error {
	env, err := transport.Envelope(data)
	if err != nil {
		return err
	}
	return f.Deliver(ctx, event, env)
}

// Subscribes counts Subscribe calls for event, including failed ones.
func (f *Transport) Subscribes(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribes[event]
}

// Removes counts Remove calls for event, repeated calls included.
func (f *Transport) Removes(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.removes[event]
}

// Live counts the open subscriptions of event.
func (f *Transport) Live(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.live[event])
}

// TotalLive counts every open subscription.
func (f *Transport) TotalLive() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, subs := range f.live {
		n += len(subs)
	}
	return n
}

type Subscription struct {
	id      string
	event   string
	onEvent transport.Callback
	owner   *Transport
}

func (s *Subscription) ID() string {
	return s.id
}

func (s *Subscription) Remove(context.Context) error {
	f := s.owner
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes[s.event]++
	f.live[s.event] = slices.DeleteFunc(f.live[s.event], func(o *Subscription) bool { return o == s })
	return f.removeErr
}
