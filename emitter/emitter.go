package emitter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/events"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/pkg/metrics"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/pkg/slogx"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/pkg/stdx"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/pkg/uuidx"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/transport"
	"github.com/fogfish/opts"
	"golang.org/x/sync/singleflight"
)

const component = "emitter"

// Family names a session-wide event a listener can be added for.
type Family string

const (
	ProfileLoaded              Family = "profile_loaded"
	InstallationDetailsSuccess Family = "installation_details_success"
	InstallationDetailsFail    Family = "installation_details_fail"
)

// Families lists every supported family.
var Families = []Family{ProfileLoaded, InstallationDetailsSuccess, InstallationDetailsFail}

type binding struct {
	native string
	decode events.Decoder
}

var families = map[Family]binding{
	ProfileLoaded:              {native: events.NativeProfileLoaded, decode: events.DecodeProfileLoaded},
	InstallationDetailsSuccess: {native: events.NativeInstallationDetailsSuccess, decode: events.DecodeInstallationDetailsSuccess},
	InstallationDetailsFail:    {native: events.NativeInstallationDetailsFail, decode: events.DecodeInstallationDetailsFail},
}

// Native returns the native event name a family is delivered on.
func (f Family) Native() (string, bool) {
	b, ok := families[f]
	return b.native, ok
}

// Listener receives decoded events. Returning an error marks the delivery as
// failed for this listener only.
type Listener func(ctx context.Context, ev events.Event) error

var (
	// Logger sets the logger the emitter reports failures to.
	Logger = opts.ForName[Emitter, *slog.Logger]("logger")
	// Metrics sets the recorder for deliveries, failures and subscriptions.
	Metrics = opts.ForName[Emitter, metrics.Recorder]("metrics")
)

type registration struct {
	id       string
	family   Family
	listener Listener
	decode   events.Decoder
}

// Emitter is the session-wide event multiplexer. It is safe for concurrent use.
type Emitter struct {
	transport transport.Transport
	table     map[Family]binding
	logger    *slog.Logger
	metrics   metrics.Recorder

	mu            sync.Mutex
	registrations map[string][]*registration
	subscriptions map[string]transport.Subscription
	inflight      singleflight.Group
}

// New creates an emitter on top of t.
func New(t transport.Transport, options ...opts.Option[Emitter]) *Emitter {
	return newEmitter(t, families, options...)
}

func newEmitter(t transport.Transport, table map[Family]binding, options ...opts.Option[Emitter]) *Emitter {
	e := &Emitter{
		transport:     t,
		table:         table,
		logger:        slog.Default().With(slogx.LoggerName("adapty.emitter")),
		metrics:       metrics.Noop(),
		registrations: make(map[string][]*registration),
		subscriptions: make(map[string]transport.Subscription),
	}
	if err := opts.Apply(e, options); err != nil {
		panic(err)
	}
	return e
}

// AddListener registers listener for family and subscribes to the native
// event behind it when this is the first registration for that event.
func (e *Emitter) AddListener(ctx context.Context, family Family, listener Listener) (*Handle, error) {
	b, ok := e.table[family]
	if !ok {
		return nil, fmt.Errorf("%w: %q", events.ErrUnsupportedEvent, family)
	}
	if listener == nil {
		return nil, errors.New("listener is required")
	}

	reg := &registration{
		id:       uuidx.Prefixed(string(family)),
		family:   family,
		listener: listener,
		decode:   b.decode,
	}
	e.mu.Lock()
	e.registrations[b.native] = append(e.registrations[b.native], reg)
	e.mu.Unlock()

	if err := e.ensureSubscribed(ctx, b.native); err != nil {
		if sub, _ := e.unregister(b.native, reg.id); sub != nil {
			e.release(ctx, b.native, sub)
		}
		return nil, fmt.Errorf("subscribe to %s: %w", b.native, err)
	}
	return &Handle{emitter: e, native: b.native, id: reg.id}, nil
}

// OnProfileLoaded adds a listener for refreshed profiles.
func (e *Emitter) OnProfileLoaded(ctx context.Context, fn func(context.Context, events.ProfileLoaded) error) (*Handle, error) {
	return e.AddListener(ctx, ProfileLoaded, typed(fn))
}

// OnInstallationDetailsSuccess adds a listener for resolved installation details.
func (e *Emitter) OnInstallationDetailsSuccess(ctx context.Context, fn func(context.Context, events.InstallationDetailsSuccess) error) (*Handle, error) {
	return e.AddListener(ctx, InstallationDetailsSuccess, typed(fn))
}

// OnInstallationDetailsFail adds a listener for failed installation detail lookups.
func (e *Emitter) OnInstallationDetailsFail(ctx context.Context, fn func(context.Context, events.InstallationDetailsFail) error) (*Handle, error) {
	return e.AddListener(ctx, InstallationDetailsFail, typed(fn))
}

func typed[T events.Event](fn func(context.Context, T) error) Listener {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context, ev events.Event) error {
		v, ok := ev.(T)
		if !ok {
			return fmt.Errorf("%w: unexpected %T", events.ErrDecode, ev)
		}
		return fn(ctx, v)
	}
}

// RemoveAllListeners releases every native subscription and forgets every
// registration. Release failures are logged. The returned error is always nil.
func (e *Emitter) RemoveAllListeners(ctx context.Context) error {
	e.mu.Lock()
	subs := e.subscriptions
	e.subscriptions = make(map[string]transport.Subscription)
	e.registrations = make(map[string][]*registration)
	e.mu.Unlock()

	names := make([]string, 0, len(subs))
	for name := range subs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		e.release(ctx, name, subs[name])
	}
	return nil
}

// Registrations reports how many listeners are registered on a native event.
func (e *Emitter) Registrations(native string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.registrations[native])
}

// Subscribed reports whether a native subscription is held for a native event.
func (e *Emitter) Subscribed(native string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.subscriptions[native]
	return ok
}

func (e *Emitter) ensureSubscribed(ctx context.Context, native string) error {
	// A flight that finds no registrations left releases what it got. A
	// caller that joined such a flight has to go again.
	for !e.Subscribed(native) && e.Registrations(native) > 0 {
		_, err, _ := e.inflight.Do(native, func() (any, error) {
			if e.Subscribed(native) {
				return nil, nil
			}
			sub, err := e.transport.Subscribe(ctx, native, e.deliver(native))
			if err != nil {
				return nil, err
			}
			e.metrics.SubscriptionOpened(component, native)

			e.mu.Lock()
			if len(e.registrations[native]) == 0 {
				e.mu.Unlock()
				e.release(ctx, native, sub)
				return nil, nil
			}
			e.subscriptions[native] = sub
			e.mu.Unlock()
			return nil, nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) unregister(native, id string) (transport.Subscription, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	regs := e.registrations[native]
	idx := slices.IndexFunc(regs, func(r *registration) bool { return r.id == id })
	if idx < 0 {
		return nil, false
	}
	regs = slices.Delete(slices.Clone(regs), idx, idx+1)
	if len(regs) > 0 {
		e.registrations[native] = regs
		return nil, true
	}
	delete(e.registrations, native)
	sub, ok := e.subscriptions[native]
	delete(e.subscriptions, native)
	return sub, ok
}

func (e *Emitter) release(ctx context.Context, native string, sub transport.Subscription) {
	e.metrics.SubscriptionClosed(component, native)
	if err := sub.Remove(ctx); err != nil {
		e.metrics.Failed(component, native, metrics.KindTeardown)
		e.logger.WarnContext(ctx, "failed to release native subscription",
			slogx.Event(native),
			slogx.Error(fmt.Errorf("%w: %w", events.ErrTeardown, err)),
		)
	}
}

type decoded struct {
	event events.Event
	err   error
}

func (e *Emitter) deliver(native string) transport.Callback {
	return func(ctx context.Context, envelope []byte) error {
		e.metrics.Delivered(component, native)

		data, err := events.ParseEnvelope(envelope)
		if err != nil {
			e.metrics.Failed(component, native, metrics.KindEnvelope)
			e.logger.WarnContext(ctx, "dropping malformed delivery", slogx.Event(native), slogx.Error(err))
			return nil
		}

		e.mu.Lock()
		regs := slices.Clone(e.registrations[native])
		e.mu.Unlock()

		cache := make(map[Family]decoded, 1)
		for _, reg := range regs {
			res, ok := cache[reg.family]
			if !ok {
				res = decodeOnce(reg.decode, []byte(data))
				cache[reg.family] = res
			}
			if res.err != nil {
				e.metrics.Failed(component, native, metrics.KindDecode)
				e.logger.WarnContext(ctx, "failed to decode event",
					slogx.Event(native),
					slogx.Registration(reg.id),
					slogx.Error(res.err),
				)
				continue
			}

			if err := stdx.Try(func() error { return reg.listener(ctx, res.event) }); err != nil {
				e.metrics.Failed(component, native, metrics.KindHandler)
				e.logger.ErrorContext(ctx, "event listener failed",
					slogx.Event(native),
					slogx.Registration(reg.id),
					slogx.Error(fmt.Errorf("%w: %w", events.ErrHandler, err)),
				)
			}
		}
		return nil
	}
}

func decodeOnce(decode events.Decoder, data []byte) decoded {
	var ev events.Event
	err := stdx.Try(func() error {
		var err error
		ev, err = decode(data)
		return err
	})
	switch {
	case err != nil && !errors.Is(err, events.ErrDecode):
		return decoded{err: fmt.Errorf("%w: %w", events.ErrDecode, err)}
	case err != nil:
		return decoded{err: err}
	case ev == nil:
		return decoded{err: fmt.Errorf("%w: decoder returned no event", events.ErrDecode)}
	}
	return decoded{event: ev}
}

// Handle identifies one registration made by AddListener.
type Handle struct {
	emitter *Emitter
	native  string
	id      string
}

// ID returns the registration id.
func (h *Handle) ID() string {
	return h.id
}

// Event returns the native event name the registration is delivered on.
func (h *Handle) Event() string {
	return h.native
}

// Remove drops this registration. When it was the last one for its native
// event the native subscription is released as well. Removing a handle that
// is already gone is a no-op. Release failures are logged, so the returned
// error is always nil.
func (h *Handle) Remove(ctx context.Context) error {
	sub, ok := h.emitter.unregister(h.native, h.id)
	if ok && sub != nil {
		h.emitter.release(ctx, h.native, sub)
	}
	return nil
}
