package onboarding

import (
	"context"
	"log/slog"

	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/events"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/internal/viewrouter"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/pkg/metrics"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/pkg/slogx"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/transport"
	"github.com/fogfish/opts"
)

const component = "onboarding"

// InternalHandler receives the full record after the client handler of its slot ran.
type InternalHandler = viewrouter.InternalHandler[events.OnboardingEvent]

// CloseRequest asks the host to dismiss the onboarding.
type CloseRequest = viewrouter.CloseRequest

var (
	// Logger sets the logger the router reports failures to.
	Logger = opts.ForName[Router, *slog.Logger]("logger")
	// Metrics sets the recorder for deliveries, failures and subscriptions.
	Metrics = opts.ForName[Router, metrics.Recorder]("metrics")
)

// OnTeardown registers fn to run every time RemoveAllListeners cleared the router.
func OnTeardown(fn func()) opts.Option[Router] {
	return opts.Type[Router](func(r *Router) error {
		r.onTeardown = fn
		return nil
	})
}

// Router dispatches the native events of one onboarding view.
type Router struct {
	base       *viewrouter.Router[Slot, Handler, events.OnboardingEvent]
	logger     *slog.Logger
	metrics    metrics.Recorder
	onTeardown func()
}

// New creates a router for the onboarding view viewID.
func New(t transport.Transport, viewID string, options ...opts.Option[Router]) *Router {
	r := &Router{
		logger:  slog.Default().With(slogx.LoggerName("adapty.onboarding")),
		metrics: metrics.Noop(),
	}
	if err := opts.Apply(r, options); err != nil {
		panic(err)
	}
	r.base = viewrouter.New(viewrouter.Config[Slot, Handler, events.OnboardingEvent]{
		Component:  component,
		ViewID:     viewID,
		Transport:  t,
		Table:      table,
		Decode:     events.DecodeOnboarding,
		Resolve:    resolve,
		Logger:     r.logger,
		Metrics:    r.metrics,
		OnTeardown: r.onTeardown,
	})
	return r
}

// ViewID returns the view the router is bound to.
func (r *Router) ViewID() string {
	return r.base.ViewID()
}

// AddListener installs handler on slot, replacing the previous client
// handler. onRequestClose is called when handler returns true.
//
// There is no per slot handle. A handler stays installed until it is replaced
// or RemoveAllListeners tears the whole router down.
func (r *Router) AddListener(ctx context.Context, slot Slot, handler Handler, onRequestClose CloseRequest) error {
	return r.base.AddListener(ctx, slot, handler, onRequestClose)
}

// AddInternalListener installs the internal handler of slot, replacing the previous one.
// Like AddListener it is undone only by RemoveAllListeners.
func (r *Router) AddInternalListener(ctx context.Context, slot Slot, handler InternalHandler) error {
	return r.base.AddInternalListener(ctx, slot, handler)
}

// RemoveAllListeners clears every slot and releases the native
// subscriptions in the background.
func (r *Router) RemoveAllListeners() {
	r.base.RemoveAllListeners()
}

// Wait blocks until pending close requests and releases returned.
func (r *Router) Wait() {
	r.base.Wait()
}

// Dismissing reports whether the view was asked to close.
func (r *Router) Dismissing() bool {
	return r.base.Dismissing()
}

// Subscribed reports whether the router holds a subscription for native.
func (r *Router) Subscribed(native string) bool {
	return r.base.Subscribed(native)
}
