// Package metrics counts what happens on the event bridge: deliveries per
// native event, failures by kind and the number of live native
// subscriptions. Components take a Recorder; Noop is the default and
// Prometheus exports the same signals on a caller supplied registry.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Kind classifies a delivery-time or teardown failure.
type Kind string

const (
	KindEnvelope     Kind = "envelope"
	KindDecode       Kind = "decode"
	KindHandler      Kind = "handler"
	KindCloseRequest Kind = "close_request"
	KindTeardown     Kind = "teardown"
)

// Recorder receives bridge signals. Implementations must be safe for concurrent use.
type Recorder interface {
	Delivered(component, event string)
	Failed(component, event string, kind Kind)
	SubscriptionOpened(component, event string)
	SubscriptionClosed(component, event string)
}

// Noop returns a Recorder that drops everything.
func Noop() Recorder { return noop{} }

type noop struct{}

func (noop) Delivered(string, string)          {}
func (noop) Failed(string, string, Kind)       {}
func (noop) SubscriptionOpened(string, string) {}
func (noop) SubscriptionClosed(string, string) {}

const namespace = "adapty_bridge"

// Prometheus is a Recorder backed by client_golang collectors.
type Prometheus struct {
	delivered     *prometheus.CounterVec
	failures      *prometheus.CounterVec
	subscriptions *prometheus.GaugeVec
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus builds the collectors and registers them on reg.
// Registering twice on the same registry reuses the collectors that are
// already there.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Native event deliveries received, per component and native event.",
		}, []string{"component", "event"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Isolated failures while dispatching or tearing down, by kind.",
		}, []string{"component", "event", "kind"}),
		subscriptions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "native_subscriptions",
			Help:      "Live native subscriptions, per component and native event.",
		}, []string{"component", "event"}),
	}

	var err error
	p.delivered, err = register(reg, p.delivered)
	if err != nil {
		return nil, err
	}
	p.failures, err = register(reg, p.failures)
	if err != nil {
		return nil, err
	}
	p.subscriptions, err = register(reg, p.subscriptions)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (p *Prometheus) Delivered(component, event string) {
	p.delivered.WithLabelValues(component, event).Inc()
}

func (p *Prometheus) Failed(component, event string, kind Kind) {
	p.failures.WithLabelValues(component, event, string(kind)).Inc()
}

func (p *Prometheus) SubscriptionOpened(component, event string) {
	p.subscriptions.WithLabelValues(component, event).Inc()
}

func (p *Prometheus) SubscriptionClosed(component, event string) {
	p.subscriptions.WithLabelValues(component, event).Dec()
}
