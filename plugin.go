package adapty

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/emitter"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/internal/registry"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/onboarding"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/paywall"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/pkg/metrics"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/pkg/slogx"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/transport"
	"github.com/fogfish/opts"
)

// ErrViewActive rejects a router for a view that already has a live one.
var ErrViewActive = errors.New("view already has a live router")

var (
	// Logger sets the logger every component of the plugin derives its logger from.
	Logger = opts.ForName[Plugin, *slog.Logger]("logger")
	// Metrics sets the recorder shared by every component of the plugin.
	Metrics = opts.ForName[Plugin, metrics.Recorder]("metrics")
)

type viewKind string

const (
	kindPaywall    viewKind = "paywall"
	kindOnboarding viewKind = "onboarding"
)

type view interface {
	RemoveAllListeners()
	Wait()
}

type entry struct {
	router view
}

// Plugin owns the session emitter and the routers of every presented view.
type Plugin struct {
	transport transport.Transport
	logger    *slog.Logger
	metrics   metrics.Recorder
	events    *emitter.Emitter
	views     registry.Registry[*entry]

	mu        sync.Mutex
	retiring  map[*entry]struct{}
	teardowns sync.WaitGroup
}

// New creates a plugin on top of t.
func New(t transport.Transport, options ...opts.Option[Plugin]) *Plugin {
	p := &Plugin{
		transport: t,
		logger:    slog.Default(),
		metrics:   metrics.Noop(),
		views:     registry.New[*entry](),
		retiring:  make(map[*entry]struct{}),
	}
	if err := opts.Apply(p, options); err != nil {
		panic(err)
	}
	p.events = emitter.New(t,
		emitter.Logger(p.logger.With(slogx.LoggerName("adapty.emitter"))),
		emitter.Metrics(p.metrics),
	)
	return p
}

// Events returns the emitter for session wide events.
func (p *Plugin) Events() *emitter.Emitter {
	return p.events
}

// Paywall creates the router of a presented paywall view.
func (p *Plugin) Paywall(viewID string) (*paywall.Router, error) {
	var router *paywall.Router
	err := p.claim(kindPaywall, viewID, func(release func()) view {
		router = paywall.New(p.transport, viewID,
			paywall.Logger(p.logger.With(slogx.LoggerName("adapty.paywall"))),
			paywall.Metrics(p.metrics),
			paywall.OnTeardown(release),
		)
		return router
	})
	if err != nil {
		return nil, err
	}
	return router, nil
}

// Onboarding creates the router of a presented onboarding view.
func (p *Plugin) Onboarding(viewID string) (*onboarding.Router, error) {
	var router *onboarding.Router
	err := p.claim(kindOnboarding, viewID, func(release func()) view {
		router = onboarding.New(p.transport, viewID,
			onboarding.Logger(p.logger.With(slogx.LoggerName("adapty.onboarding"))),
			onboarding.Metrics(p.metrics),
			onboarding.OnTeardown(release),
		)
		return router
	})
	if err != nil {
		return nil, err
	}
	return router, nil
}

// Active reports whether the paywall or onboarding view viewID has a live router.
func (p *Plugin) Active(viewID string) bool {
	_, pw := p.views.Get(key(kindPaywall, viewID))
	_, ob := p.views.Get(key(kindOnboarding, viewID))
	return pw || ob
}

// Close removes every session listener and tears down every live router. It
// returns once all native subscriptions are released or ctx is done.
func (p *Plugin) Close(ctx context.Context) error {
	if err := p.events.RemoveAllListeners(ctx); err != nil {
		p.logger.WarnContext(ctx, "failed to remove session listeners", slogx.Error(err))
	}

	for _, e := range p.views.Values() {
		e.router.RemoveAllListeners()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.teardowns.Wait()
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for views to tear down: %w", ctx.Err())
	}
}

func key(kind viewKind, viewID string) string {
	return string(kind) + ":" + viewID
}

// claim registers the router build returns for viewID unless one is live.
// build receives the teardown hook that unregisters the view again.
func (p *Plugin) claim(kind viewKind, viewID string, build func(release func()) view) error {
	k := key(kind, viewID)
	e := &entry{}
	e.router = build(func() {
		p.views.Release(k, e)
		p.retire(e)
	})

	if _, ok := p.views.Claim(k, e); !ok {
		return fmt.Errorf("%w: %s %q", ErrViewActive, kind, viewID)
	}
	return nil
}

// retire tracks e until its router's pending releases returned.
func (p *Plugin) retire(e *entry) {
	p.mu.Lock()
	p.retiring[e] = struct{}{}
	p.mu.Unlock()

	p.teardowns.Add(1)
	go func() {
		defer p.teardowns.Done()
		e.router.Wait()
		p.mu.Lock()
		delete(p.retiring, e)
		p.mu.Unlock()
	}()
}

// retained returns how many torn down routers are still being waited on.
func (p *Plugin) retained() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.retiring)
}
