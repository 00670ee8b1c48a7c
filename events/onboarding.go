package events

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Native event names of the onboarding view streams.
const (
	OnboardingOnCloseAction        = "onboarding_on_close_action"
	OnboardingOnCustomAction       = "onboarding_on_custom_action"
	OnboardingOnPaywallAction      = "onboarding_on_paywall_action"
	OnboardingOnStateUpdatedAction = "onboarding_on_state_updated_action"
	OnboardingDidFinishLoading     = "onboarding_did_finish_loading"
	OnboardingOnAnalyticsAction    = "onboarding_on_analytics_action"
	OnboardingDidFailWithError     = "onboarding_did_fail_with_error"
)

// OnboardingNativeEvents lists every onboarding native event name.
var OnboardingNativeEvents = []string{
	OnboardingOnCloseAction,
	OnboardingOnCustomAction,
	OnboardingOnPaywallAction,
	OnboardingOnStateUpdatedAction,
	OnboardingDidFinishLoading,
	OnboardingOnAnalyticsAction,
	OnboardingDidFailWithError,
}

// OnboardingEvent is any record delivered to an onboarding view.
type OnboardingEvent interface {
	ViewEvent
	onboardingEvent()
}

// OnboardingHeader marks a view scoped record as belonging to an onboarding.
type OnboardingHeader struct {
	ViewHeader
}

func (*OnboardingHeader) onboardingEvent() {}

// OnboardingMeta locates the screen an onboarding event came from.
type OnboardingMeta struct {
	OnboardingID   string `json:"onboarding_id"`
	ScreenClientID string `json:"screen_cid"`
	ScreenIndex    int    `json:"screen_index"`
	TotalScreens   int    `json:"total_screens"`
}

// OnboardingAction is a close, custom or paywall action raised by an onboarding element.
type OnboardingAction struct {
	OnboardingHeader
	ActionID string         `json:"action_id"`
	Meta     OnboardingMeta `json:"meta"`
}

// StateUpdatedAction reports a user input change. Value keeps the raw JSON
// since its shape depends on ElementType.
type StateUpdatedAction struct {
	ElementID   string          `json:"element_id"`
	ElementType string          `json:"element_type"`
	Value       json.RawMessage `json:"value,omitempty"`
}

type OnboardingStateUpdated struct {
	OnboardingHeader
	Action StateUpdatedAction `json:"action"`
	Meta   OnboardingMeta     `json:"meta"`
}

type OnboardingFinishedLoading struct {
	OnboardingHeader
	Meta OnboardingMeta `json:"meta"`
}

type AnalyticsEvent struct {
	Name      string `json:"name"`
	ElementID string `json:"element_id,omitempty"`
	Reply     string `json:"reply,omitempty"`
}

type OnboardingAnalytics struct {
	OnboardingHeader
	Event AnalyticsEvent `json:"event"`
	Meta  OnboardingMeta `json:"meta"`
}

type OnboardingFailed struct {
	OnboardingHeader
	Error AdaptyError `json:"error"`
}

type onboardingDecodeFunc func(native string, data []byte) (OnboardingEvent, error)

func onboardingDecoder[T any, PT interface {
	*T
	nativeSetter
	OnboardingEvent
}](required ...string) onboardingDecodeFunc {
	return func(native string, data []byte) (OnboardingEvent, error) {
		v, err := decodeView[T, PT](native, data, required...)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

var onboardingDecoders = map[string]onboardingDecodeFunc{
	OnboardingOnCloseAction:        onboardingDecoder[OnboardingAction]("action_id", "meta"),
	OnboardingOnCustomAction:       onboardingDecoder[OnboardingAction]("action_id", "meta"),
	OnboardingOnPaywallAction:      onboardingDecoder[OnboardingAction]("action_id", "meta"),
	OnboardingOnStateUpdatedAction: onboardingDecoder[OnboardingStateUpdated]("action", "action.element_id", "meta"),
	OnboardingDidFinishLoading:     onboardingDecoder[OnboardingFinishedLoading]("meta"),
	OnboardingOnAnalyticsAction:    onboardingDecoder[OnboardingAnalytics]("event", "event.name", "meta"),
	OnboardingDidFailWithError:     onboardingDecoder[OnboardingFailed]("error"),
}

// DecodeOnboarding decodes data delivered on the onboarding native event native.
func DecodeOnboarding(native string, data []byte) (OnboardingEvent, error) {
	decode, ok := onboardingDecoders[native]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEvent, native)
	}
	return decode(native, data)
}
