package bridgetest

import (
	"sync"

	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/pkg/metrics"
)

var _ metrics.Recorder = (*Recorder)(nil)

// Recorder counts metric signals in memory.
type Recorder struct {
	mu        sync.Mutex
	delivered map[string]int
	failed    map[metrics.Kind]int
	opened    int
	closed    int
}

func NewRecorder() *Recorder {
	return &Recorder{
		delivered: make(map[string]int),
		failed:    make(map[metrics.Kind]int),
	}
}

func (r *Recorder) Delivered(_, event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered[event]++
}

func (r *Recorder) Failed(_, _ string, kind metrics.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[kind]++
}

func (r *Recorder) SubscriptionOpened(string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened++
}

func (r *Recorder) SubscriptionClosed(string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
}

// DeliveredTo returns how many deliveries event received.
func (r *Recorder) DeliveredTo(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.delivered[event]
}

// Failures returns how many failures of kind were recorded.
func (r *Recorder) Failures(kind metrics.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed[kind]
}

// Open returns opened minus closed subscriptions.
func (r *Recorder) Open() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opened - r.closed
}
