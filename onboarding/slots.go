package onboarding

import (
	"fmt"

	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/events"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/internal/viewrouter"
)

// Slot names an onboarding hook a handler can be registered on.
type Slot string

const (
	Close           Slot = "close"
	Custom          Slot = "custom"
	Paywall         Slot = "paywall"
	StateUpdated    Slot = "state_updated"
	FinishedLoading Slot = "finished_loading"
	Analytics       Slot = "analytics"
	Error           Slot = "error"
)

// Handler is implemented by the handler shapes below. Each returns true to
// ask for the view to be dismissed.
type Handler interface {
	onboardingHandler()
}

type (
	// OnAction receives the action id of a close, custom or paywall action.
	OnAction          func(actionID string, meta events.OnboardingMeta) bool
	OnStateUpdated    func(action events.StateUpdatedAction, meta events.OnboardingMeta) bool
	OnFinishedLoading func(meta events.OnboardingMeta) bool
	OnAnalytics       func(event events.AnalyticsEvent, meta events.OnboardingMeta) bool
	OnError           func(err events.AdaptyError) bool
)

func (OnAction) onboardingHandler()          {}
func (OnStateUpdated) onboardingHandler()    {}
func (OnFinishedLoading) onboardingHandler() {}
func (OnAnalytics) onboardingHandler()       {}
func (OnError) onboardingHandler()           {}

type binding = viewrouter.Binding[Handler, events.OnboardingEvent]

func on[T Handler, R events.OnboardingEvent](native string, call func(h T, rec R) bool) binding {
	return binding{
		Native: native,
		Accepts: func(h Handler) bool {
			_, ok := h.(T)
			return ok
		},
		Invoke: func(h Handler, ev events.OnboardingEvent) bool {
			rec, ok := ev.(R)
			if !ok {
				panic(fmt.Sprintf("onboarding: %s delivered %T", native, ev))
			}
			return call(h.(T), rec)
		},
	}
}

func action(h OnAction, ev *events.OnboardingAction) bool {
	return h(ev.ActionID, ev.Meta)
}

var table = viewrouter.NewTable[Slot, Handler, events.OnboardingEvent]().
	Bind(Close, on(events.OnboardingOnCloseAction, action)).
	Bind(Custom, on(events.OnboardingOnCustomAction, action)).
	Bind(Paywall, on(events.OnboardingOnPaywallAction, action)).
	Bind(StateUpdated, on(events.OnboardingOnStateUpdatedAction, func(h OnStateUpdated, ev *events.OnboardingStateUpdated) bool {
		return h(ev.Action, ev.Meta)
	})).
	Bind(FinishedLoading, on(events.OnboardingDidFinishLoading, func(h OnFinishedLoading, ev *events.OnboardingFinishedLoading) bool {
		return h(ev.Meta)
	})).
	Bind(Analytics, on(events.OnboardingOnAnalyticsAction, func(h OnAnalytics, ev *events.OnboardingAnalytics) bool {
		return h(ev.Event, ev.Meta)
	})).
	Bind(Error, on(events.OnboardingDidFailWithError, func(h OnError, ev *events.OnboardingFailed) bool {
		return h(ev.Error)
	}))

// Slots lists every onboarding slot in declaration order.
func Slots() []Slot {
	return table.Slots()
}

// NativeEvent returns the native event slot is delivered on.
func NativeEvent(slot Slot) (string, bool) {
	b, ok := table.Get(slot)
	return b.Native, ok
}

func resolve(native string, _ events.OnboardingEvent) (Slot, bool) {
	return table.Only(native)
}
