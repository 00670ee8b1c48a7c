package viewrouter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/events"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/pkg/metrics"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/pkg/slogx"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/pkg/stdx"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/transport"
	"github.com/alphadose/haxmap"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/sync/singleflight"
)

// Binding ties a slot to its native event and knows how to call the handler
// shape the slot accepts.
type Binding[H any, E events.ViewEvent] struct {
	Native string
	// Accepts reports whether h has the shape this slot calls.
	Accepts func(h H) bool
	// Invoke calls h with the arguments extracted from ev and returns whether
	// the handler asked for the view to close.
	Invoke func(h H, ev E) bool
}

// Table is the static slot table of a router, in declaration order.
type Table[S ~string, H any, E events.ViewEvent] struct {
	bindings *orderedmap.OrderedMap[S, Binding[H, E]]
}

// NewTable returns an empty slot table.
func NewTable[S ~string, H any, E events.ViewEvent]() *Table[S, H, E] {
	return &Table[S, H, E]{bindings: orderedmap.New[S, Binding[H, E]]()}
}

// Bind adds slot to the table. Binding a slot twice panics.
func (t *Table[S, H, E]) Bind(slot S, b Binding[H, E]) *Table[S, H, E] {
	if _, present := t.bindings.Set(slot, b); present {
		panic(fmt.Sprintf("viewrouter: slot %q bound twice", slot))
	}
	return t
}

func (t *Table[S, H, E]) Get(slot S) (Binding[H, E], bool) {
	return t.bindings.Get(slot)
}

func (t *Table[S, H, E]) Len() int {
	return t.bindings.Len()
}

// Slots lists the slots in declaration order.
func (t *Table[S, H, E]) Slots() []S {
	out := make([]S, 0, t.bindings.Len())
	for pair := t.bindings.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Natives lists the distinct native events in first-use order.
func (t *Table[S, H, E]) Natives() []string {
	var out []string
	seen := make(map[string]struct{})
	for pair := t.bindings.Oldest(); pair != nil; pair = pair.Next() {
		if _, ok := seen[pair.Value.Native]; ok {
			continue
		}
		seen[pair.Value.Native] = struct{}{}
		out = append(out, pair.Value.Native)
	}
	return out
}

// SlotsOf lists the slots bound to native, in declaration order.
func (t *Table[S, H, E]) SlotsOf(native string) []S {
	var out []S
	for pair := t.bindings.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Native == native {
			out = append(out, pair.Key)
		}
	}
	return out
}

// Only resolves native to its slot when exactly one slot is bound to it.
func (t *Table[S, H, E]) Only(native string) (S, bool) {
	slots := t.SlotsOf(native)
	if len(slots) != 1 {
		var zero S
		return zero, false
	}
	return slots[0], true
}

// InternalHandler receives the full decoded event after the client handler of
// the same slot ran.
type InternalHandler[E events.ViewEvent] func(ctx context.Context, ev E) error

// CloseRequest asks the host to dismiss the view.
type CloseRequest func(ctx context.Context) error

// Config assembles a router.
type Config[S ~string, H any, E events.ViewEvent] struct {
	// Component names the router kind in logs and metrics.
	Component string
	ViewID    string
	Transport transport.Transport
	Table     *Table[S, H, E]
	Decode    func(native string, data []byte) (E, error)
	Resolve   func(native string, ev E) (S, bool)
	Logger    *slog.Logger
	Metrics   metrics.Recorder
	// OnTeardown runs once per RemoveAllListeners, after all state was cleared.
	OnTeardown func()
}

type state int32

const (
	presented state = iota
	dismissing
)

type client[H any] struct {
	handler        H
	onRequestClose CloseRequest
}

type internalSlot[E events.ViewEvent] struct {
	handler InternalHandler[E]
}

// Router dispatches the native events of one view. It is safe for concurrent use.
type Router[S ~string, H any, E events.ViewEvent] struct {
	cfg       Config[S, H, E]
	logger    *slog.Logger
	metrics   metrics.Recorder
	clients   *haxmap.Map[string, *client[H]]
	internals *haxmap.Map[string, *internalSlot[E]]
	state     atomic.Int32

	mu            sync.Mutex
	subscriptions map[string]transport.Subscription
	generation    uint64
	inflight      singleflight.Group
	pending       sync.WaitGroup
}

// New creates a router from cfg. Table, Decode, Resolve and Transport are required.
func New[S ~string, H any, E events.ViewEvent](cfg Config[S, H, E]) *Router[S, H, E] {
	if cfg.Table == nil || cfg.Decode == nil || cfg.Resolve == nil || cfg.Transport == nil {
		panic("viewrouter: table, decoder, resolver and transport are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Noop()
	}
	return &Router[S, H, E]{
		cfg:           cfg,
		logger:        cfg.Logger.With(slogx.ViewID(cfg.ViewID)),
		metrics:       cfg.Metrics,
		clients:       haxmap.New[string, *client[H]](),
		internals:     haxmap.New[string, *internalSlot[E]](),
		subscriptions: make(map[string]transport.Subscription),
	}
}

// ViewID returns the view identity the router accepts events for.
func (r *Router[S, H, E]) ViewID() string {
	return r.cfg.ViewID
}

// Dismissing reports whether a close request is outstanding or succeeded.
func (r *Router[S, H, E]) Dismissing() bool {
	return state(r.state.Load()) == dismissing
}

// AddListener installs the client handler of slot, replacing any previous one.
func (r *Router[S, H, E]) AddListener(ctx context.Context, slot S, handler H, onRequestClose CloseRequest) error {
	b, err := r.binding(slot)
	if err != nil {
		return err
	}
	if isNil(handler) || !b.Accepts(handler) {
		return fmt.Errorf("%w: %q got %T", events.ErrHandlerMismatch, slot, handler)
	}

	c := &client[H]{handler: handler, onRequestClose: onRequestClose}
	r.clients.Set(string(slot), c)
	if err := r.ensureSubscribed(ctx, b.Native); err != nil {
		if cur, ok := r.clients.Get(string(slot)); ok && cur == c {
			r.clients.Del(string(slot))
		}
		return fmt.Errorf("subscribe to %s: %w", b.Native, err)
	}
	return nil
}

// AddInternalListener installs the internal handler of slot, replacing any previous one.
func (r *Router[S, H, E]) AddInternalListener(ctx context.Context, slot S, handler InternalHandler[E]) error {
	b, err := r.binding(slot)
	if err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("%w: %q got nil internal handler", events.ErrHandlerMismatch, slot)
	}

	h := &internalSlot[E]{handler: handler}
	r.internals.Set(string(slot), h)
	if err := r.ensureSubscribed(ctx, b.Native); err != nil {
		if cur, ok := r.internals.Get(string(slot)); ok && cur == h {
			r.internals.Del(string(slot))
		}
		return fmt.Errorf("subscribe to %s: %w", b.Native, err)
	}
	return nil
}

// RemoveAllListeners clears every slot and releases every native subscription
// in the background. Use Wait to block until the releases returned.
func (r *Router[S, H, E]) RemoveAllListeners() {
	r.mu.Lock()
	subs := r.subscriptions
	r.subscriptions = make(map[string]transport.Subscription)
	r.generation++
	r.mu.Unlock()

	var clientKeys, internalKeys []string
	r.clients.ForEach(func(k string, _ *client[H]) bool {
		clientKeys = append(clientKeys, k)
		return true
	})
	r.internals.ForEach(func(k string, _ *internalSlot[E]) bool {
		internalKeys = append(internalKeys, k)
		return true
	})
	if len(clientKeys) > 0 {
		r.clients.Del(clientKeys...)
	}
	if len(internalKeys) > 0 {
		r.internals.Del(internalKeys...)
	}

	names := make([]string, 0, len(subs))
	for name := range subs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r.background(func(ctx context.Context) { r.release(ctx, name, subs[name]) })
	}

	if r.cfg.OnTeardown != nil {
		r.cfg.OnTeardown()
	}
}

// Wait blocks until every close request and release started so far returned.
func (r *Router[S, H, E]) Wait() {
	r.pending.Wait()
}

// Subscribed reports whether a native subscription is held for native.
func (r *Router[S, H, E]) Subscribed(native string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.subscriptions[native]
	return ok
}

// Occupied reports whether slot has a client and an internal handler.
func (r *Router[S, H, E]) Occupied(slot S) (clientSet, internalSet bool) {
	_, clientSet = r.clients.Get(string(slot))
	_, internalSet = r.internals.Get(string(slot))
	return clientSet, internalSet
}

func (r *Router[S, H, E]) binding(slot S) (Binding[H, E], error) {
	b, ok := r.cfg.Table.Get(slot)
	if !ok {
		return b, fmt.Errorf("%w: %s %q", events.ErrUnsupportedSlot, r.cfg.Component, slot)
	}
	return b, nil
}

// wanted reports whether any slot bound to native still has a handler.
func (r *Router[S, H, E]) wanted(native string) bool {
	for _, slot := range r.cfg.Table.SlotsOf(native) {
		if c, i := r.Occupied(slot); c || i {
			return true
		}
	}
	return false
}

func (r *Router[S, H, E]) ensureSubscribed(ctx context.Context, native string) error {
	for !r.Subscribed(native) && r.wanted(native) {
		_, err, _ := r.inflight.Do(native, func() (any, error) {
			r.mu.Lock()
			_, ok := r.subscriptions[native]
			gen := r.generation
			r.mu.Unlock()
			if ok {
				return nil, nil
			}

			sub, err := r.cfg.Transport.Subscribe(ctx, native, r.deliver(native))
			if err != nil {
				return nil, err
			}
			r.metrics.SubscriptionOpened(r.cfg.Component, native)

			r.mu.Lock()
			if gen != r.generation {
				r.mu.Unlock()
				r.release(ctx, native, sub)
				return nil, nil
			}
			r.subscriptions[native] = sub
			r.mu.Unlock()
			return nil, nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Router[S, H, E]) release(ctx context.Context, native string, sub transport.Subscription) {
	r.metrics.SubscriptionClosed(r.cfg.Component, native)
	if err := sub.Remove(ctx); err != nil {
		r.metrics.Failed(r.cfg.Component, native, metrics.KindTeardown)
		r.logger.WarnContext(ctx, "failed to release native subscription",
			slogx.Event(native),
			slogx.Error(fmt.Errorf("%w: %w", events.ErrTeardown, err)),
		)
	}
}

func (r *Router[S, H, E]) background(fn func(ctx context.Context)) {
	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		fn(context.Background())
	}()
}

func (r *Router[S, H, E]) deliver(native string) transport.Callback {
	return func(ctx context.Context, envelope []byte) error {
		r.metrics.Delivered(r.cfg.Component, native)

		data, err := events.ParseEnvelope(envelope)
		if err != nil {
			r.metrics.Failed(r.cfg.Component, native, metrics.KindEnvelope)
			r.logger.WarnContext(ctx, "malformed delivery", slogx.Event(native), slogx.Error(err))
			return err
		}

		ev, err := r.decode(native, data)
		if err != nil {
			r.metrics.Failed(r.cfg.Component, native, metrics.KindDecode)
			r.logger.WarnContext(ctx, "failed to decode event", slogx.Event(native), slogx.Error(err))
			return err
		}

		ref := ev.ViewRef()
		if ref.ID != r.cfg.ViewID {
			return nil
		}
		view := slogx.View(ref.ID, ref.PlacementID, ref.VariationID)
		slot, ok := r.cfg.Resolve(native, ev)
		if !ok {
			r.logger.DebugContext(ctx, "no slot for event", slogx.Event(native), slog.String("id", ev.EventID()))
			return nil
		}
		b, ok := r.cfg.Table.Get(slot)
		if !ok {
			return nil
		}

		if c, ok := r.clients.Get(string(slot)); ok {
			r.invokeClient(ctx, native, slot, view, b, c, ev)
		}
		if h, ok := r.internals.Get(string(slot)); ok {
			if err := stdx.Try(func() error { return h.handler(ctx, ev) }); err != nil {
				r.metrics.Failed(r.cfg.Component, native, metrics.KindHandler)
				r.logger.ErrorContext(ctx, "internal handler failed",
					slogx.Event(native),
					slogx.Slot(slot),
					view,
					slogx.Error(fmt.Errorf("%w: %w", events.ErrHandler, err)),
				)
			}
		}
		return nil
	}
}

func (r *Router[S, H, E]) decode(native, data string) (E, error) {
	var ev E
	err := stdx.Try(func() error {
		var err error
		ev, err = r.cfg.Decode(native, []byte(data))
		return err
	})
	switch {
	case err != nil && !errors.Is(err, events.ErrDecode) && !errors.Is(err, events.ErrUnsupportedEvent):
		return ev, fmt.Errorf("%w: %w", events.ErrDecode, err)
	case err != nil:
		return ev, err
	case isNil(ev):
		return ev, fmt.Errorf("%w: decoder returned no event for %s", events.ErrDecode, native)
	}
	return ev, nil
}

func (r *Router[S, H, E]) invokeClient(ctx context.Context, native string, slot S, view slog.Attr, b Binding[H, E], c *client[H], ev E) {
	closeView, err := stdx.Try1(func() bool { return b.Invoke(c.handler, ev) })
	if err != nil {
		r.metrics.Failed(r.cfg.Component, native, metrics.KindHandler)
		r.logger.ErrorContext(ctx, "view handler failed",
			slogx.Event(native),
			slogx.Slot(slot),
			view,
			slogx.Error(fmt.Errorf("%w: %w", events.ErrHandler, err)),
		)
		return
	}
	if !closeView || c.onRequestClose == nil {
		return
	}
	if !r.state.CompareAndSwap(int32(presented), int32(dismissing)) {
		r.logger.DebugContext(ctx, "dismiss already requested", slogx.Event(native), slogx.Slot(slot))
		return
	}

	request := c.onRequestClose
	r.background(func(bg context.Context) {
		err := stdx.Try(func() error { return request(bg) })
		if err == nil {
			return
		}
		r.state.Store(int32(presented))
		r.metrics.Failed(r.cfg.Component, native, metrics.KindCloseRequest)
		r.logger.WarnContext(bg, "close request failed",
			slogx.Event(native),
			slogx.Slot(slot),
			view,
			slogx.Error(fmt.Errorf("%w: %w", events.ErrCloseRequest, err)),
		)
	})
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Func, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
