package events

import "fmt"

// Native event names of the paywall view streams.
const (
	PaywallDidPerformAction              = "paywall_view_did_perform_action"
	PaywallDidAppear                     = "paywall_view_did_appear"
	PaywallDidDisappear                  = "paywall_view_did_disappear"
	PaywallDidSelectProduct              = "paywall_view_did_select_product"
	PaywallDidStartPurchase              = "paywall_view_did_start_purchase"
	PaywallDidFinishPurchase             = "paywall_view_did_finish_purchase"
	PaywallDidFailPurchase               = "paywall_view_did_fail_purchase"
	PaywallDidStartRestore               = "paywall_view_did_start_restore"
	PaywallDidFinishRestore              = "paywall_view_did_finish_restore"
	PaywallDidFailRestore                = "paywall_view_did_fail_restore"
	PaywallDidFailRendering              = "paywall_view_did_fail_rendering"
	PaywallDidFailLoadingProducts        = "paywall_view_did_fail_loading_products"
	PaywallDidFinishWebPaymentNavigation = "paywall_view_did_finish_web_payment_navigation"
)

// PaywallNativeEvents lists every paywall native event name.
var PaywallNativeEvents = []string{
	PaywallDidPerformAction,
	PaywallDidAppear,
	PaywallDidDisappear,
	PaywallDidSelectProduct,
	PaywallDidStartPurchase,
	PaywallDidFinishPurchase,
	PaywallDidFailPurchase,
	PaywallDidStartRestore,
	PaywallDidFinishRestore,
	PaywallDidFailRestore,
	PaywallDidFailRendering,
	PaywallDidFailLoadingProducts,
	PaywallDidFinishWebPaymentNavigation,
}

// PaywallEvent is any record delivered to a paywall view.
type PaywallEvent interface {
	ViewEvent
	paywallEvent()
}

// PaywallHeader marks a view scoped record as belonging to a paywall.
type PaywallHeader struct {
	ViewHeader
}

func (*PaywallHeader) paywallEvent() {}

// ActionType discriminates the user actions reported on PaywallDidPerformAction.
type ActionType string

const (
	ActionClose      ActionType = "close"
	ActionSystemBack ActionType = "system_back"
	ActionOpenURL    ActionType = "open_url"
	ActionCustom     ActionType = "custom"
)

// ActionTypes lists every known ActionType.
var ActionTypes = []ActionType{ActionClose, ActionSystemBack, ActionOpenURL, ActionCustom}

type Action struct {
	Type  ActionType `json:"type"`
	Value string     `json:"value,omitempty"`
}

// PaywallAction is a user action inside the paywall.
type PaywallAction struct {
	PaywallHeader
	Action Action `json:"action"`
}

// PaywallNotice carries no payload beyond the header: appear, disappear, restore started.
type PaywallNotice struct {
	PaywallHeader
}

type PaywallProductSelected struct {
	PaywallHeader
	ProductID string `json:"product_id"`
}

type PaywallPurchaseStarted struct {
	PaywallHeader
	Product Product `json:"product"`
}

type PaywallPurchaseFinished struct {
	PaywallHeader
	Result  PurchaseResult `json:"purchased_result"`
	Product Product        `json:"product"`
}

type PaywallPurchaseFailed struct {
	PaywallHeader
	Error   AdaptyError `json:"error"`
	Product Product     `json:"product"`
}

type PaywallRestoreFinished struct {
	PaywallHeader
	Profile Profile `json:"profile"`
}

// PaywallFailure reports a failed restore, rendering or product load.
type PaywallFailure struct {
	PaywallHeader
	Error AdaptyError `json:"error"`
}

// PaywallWebPaymentNavigationFinished reports the end of an external web
// payment flow; either part may be absent.
type PaywallWebPaymentNavigationFinished struct {
	PaywallHeader
	Product *Product     `json:"product,omitempty"`
	Error   *AdaptyError `json:"error,omitempty"`
}

type paywallDecodeFunc func(native string, data []byte) (PaywallEvent, error)

func paywallDecoder[T any, PT interface {
	*T
	nativeSetter
	PaywallEvent
}](required ...string) paywallDecodeFunc {
	return func(native string, data []byte) (PaywallEvent, error) {
		v, err := decodeView[T, PT](native, data, required...)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

var paywallDecoders = map[string]paywallDecodeFunc{
	PaywallDidPerformAction:              paywallDecoder[PaywallAction]("action", "action.type"),
	PaywallDidAppear:                     paywallDecoder[PaywallNotice](),
	PaywallDidDisappear:                  paywallDecoder[PaywallNotice](),
	PaywallDidSelectProduct:              paywallDecoder[PaywallProductSelected]("product_id"),
	PaywallDidStartPurchase:              paywallDecoder[PaywallPurchaseStarted]("product"),
	PaywallDidFinishPurchase:             paywallDecoder[PaywallPurchaseFinished]("purchased_result", "purchased_result.type", "product"),
	PaywallDidFailPurchase:               paywallDecoder[PaywallPurchaseFailed]("error", "product"),
	PaywallDidStartRestore:               paywallDecoder[PaywallNotice](),
	PaywallDidFinishRestore:              paywallDecoder[PaywallRestoreFinished]("profile"),
	PaywallDidFailRestore:                paywallDecoder[PaywallFailure]("error"),
	PaywallDidFailRendering:              paywallDecoder[PaywallFailure]("error"),
	PaywallDidFailLoadingProducts:        paywallDecoder[PaywallFailure]("error"),
	PaywallDidFinishWebPaymentNavigation: paywallDecoder[PaywallWebPaymentNavigationFinished](),
}

// DecodePaywall decodes data delivered on the paywall native event native.
func DecodePaywall(native string, data []byte) (PaywallEvent, error) {
	decode, ok := paywallDecoders[native]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEvent, native)
	}
	return decode(native, data)
}
