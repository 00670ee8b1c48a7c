package paywall

import (
	"fmt"

	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/events"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/internal/viewrouter"
)

// Slot names a paywall hook a handler can be registered on.
type Slot string

const (
	CloseButtonPress             Slot = "close_button_press"
	AndroidSystemBack            Slot = "android_system_back"
	URLPress                     Slot = "url_press"
	CustomAction                 Slot = "custom_action"
	ProductSelected              Slot = "product_selected"
	PurchaseStarted              Slot = "purchase_started"
	PurchaseCompleted            Slot = "purchase_completed"
	PurchaseFailed               Slot = "purchase_failed"
	RestoreStarted               Slot = "restore_started"
	RestoreCompleted             Slot = "restore_completed"
	RestoreFailed                Slot = "restore_failed"
	Appeared                     Slot = "appeared"
	Disappeared                  Slot = "disappeared"
	RenderingFailed              Slot = "rendering_failed"
	LoadingProductsFailed        Slot = "loading_products_failed"
	WebPaymentNavigationFinished Slot = "web_payment_navigation_finished"
)

// Handler is implemented by the handler shapes below. Each returns true to
// ask for the view to be dismissed.
type Handler interface {
	paywallHandler()
}

type (
	// Notify takes no arguments.
	Notify func() bool
	// OnURL receives the url the user pressed.
	OnURL func(url string) bool
	// OnCustomAction receives the custom action id.
	OnCustomAction func(actionID string) bool
	// OnProductSelected receives the selected vendor product id.
	OnProductSelected func(productID string) bool
	OnPurchaseStarted func(product events.Product) bool
	// OnPurchaseCompleted is called for every finished purchase, cancelled and pending included.
	OnPurchaseCompleted func(result events.PurchaseResult, product events.Product) bool
	OnPurchaseFailed    func(err events.AdaptyError, product events.Product) bool
	OnRestoreCompleted  func(profile events.Profile) bool
	OnError             func(err events.AdaptyError) bool
	// OnWebPaymentNavigationFinished receives whichever of product and error the host reported.
	OnWebPaymentNavigationFinished func(product *events.Product, err *events.AdaptyError) bool
)

func (Notify) paywallHandler()                         {}
func (OnURL) paywallHandler()                          {}
func (OnCustomAction) paywallHandler()                 {}
func (OnProductSelected) paywallHandler()              {}
func (OnPurchaseStarted) paywallHandler()              {}
func (OnPurchaseCompleted) paywallHandler()            {}
func (OnPurchaseFailed) paywallHandler()               {}
func (OnRestoreCompleted) paywallHandler()             {}
func (OnError) paywallHandler()                        {}
func (OnWebPaymentNavigationFinished) paywallHandler() {}

type binding = viewrouter.Binding[Handler, events.PaywallEvent]

// on binds a handler shape T to the record R delivered on native.
func on[T Handler, R events.PaywallEvent](native string, call func(h T, rec R) bool) binding {
	return binding{
		Native: native,
		Accepts: func(h Handler) bool {
			_, ok := h.(T)
			return ok
		},
		Invoke: func(h Handler, ev events.PaywallEvent) bool {
			rec, ok := ev.(R)
			if !ok {
				panic(fmt.Sprintf("paywall: %s delivered %T", native, ev))
			}
			return call(h.(T), rec)
		},
	}
}

var table = viewrouter.NewTable[Slot, Handler, events.PaywallEvent]().
	Bind(CloseButtonPress, on(events.PaywallDidPerformAction, func(h Notify, _ *events.PaywallAction) bool { return h() })).
	Bind(AndroidSystemBack, on(events.PaywallDidPerformAction, func(h Notify, _ *events.PaywallAction) bool { return h() })).
	Bind(URLPress, on(events.PaywallDidPerformAction, func(h OnURL, ev *events.PaywallAction) bool { return h(ev.Action.Value) })).
	Bind(CustomAction, on(events.PaywallDidPerformAction, func(h OnCustomAction, ev *events.PaywallAction) bool { return h(ev.Action.Value) })).
	Bind(ProductSelected, on(events.PaywallDidSelectProduct, func(h OnProductSelected, ev *events.PaywallProductSelected) bool {
		return h(ev.ProductID)
	})).
	Bind(PurchaseStarted, on(events.PaywallDidStartPurchase, func(h OnPurchaseStarted, ev *events.PaywallPurchaseStarted) bool {
		return h(ev.Product)
	})).
	Bind(PurchaseCompleted, on(events.PaywallDidFinishPurchase, func(h OnPurchaseCompleted, ev *events.PaywallPurchaseFinished) bool {
		return h(ev.Result, ev.Product)
	})).
	Bind(PurchaseFailed, on(events.PaywallDidFailPurchase, func(h OnPurchaseFailed, ev *events.PaywallPurchaseFailed) bool {
		return h(ev.Error, ev.Product)
	})).
	Bind(RestoreStarted, on(events.PaywallDidStartRestore, func(h Notify, _ *events.PaywallNotice) bool { return h() })).
	Bind(RestoreCompleted, on(events.PaywallDidFinishRestore, func(h OnRestoreCompleted, ev *events.PaywallRestoreFinished) bool {
		return h(ev.Profile)
	})).
	Bind(RestoreFailed, on(events.PaywallDidFailRestore, func(h OnError, ev *events.PaywallFailure) bool { return h(ev.Error) })).
	Bind(Appeared, on(events.PaywallDidAppear, func(h Notify, _ *events.PaywallNotice) bool { return h() })).
	Bind(Disappeared, on(events.PaywallDidDisappear, func(h Notify, _ *events.PaywallNotice) bool { return h() })).
	Bind(RenderingFailed, on(events.PaywallDidFailRendering, func(h OnError, ev *events.PaywallFailure) bool { return h(ev.Error) })).
	Bind(LoadingProductsFailed, on(events.PaywallDidFailLoadingProducts, func(h OnError, ev *events.PaywallFailure) bool {
		return h(ev.Error)
	})).
	Bind(WebPaymentNavigationFinished, on(events.PaywallDidFinishWebPaymentNavigation,
		func(h OnWebPaymentNavigationFinished, ev *events.PaywallWebPaymentNavigationFinished) bool {
			return h(ev.Product, ev.Error)
		}))

// actionSlots picks the slot of a performed action by its type.
var actionSlots = map[events.ActionType]Slot{
	events.ActionClose:      CloseButtonPress,
	events.ActionSystemBack: AndroidSystemBack,
	events.ActionOpenURL:    URLPress,
	events.ActionCustom:     CustomAction,
}

// Slots lists every paywall slot in declaration order.
func Slots() []Slot {
	return table.Slots()
}

// NativeEvent returns the native event slot is delivered on.
func NativeEvent(slot Slot) (string, bool) {
	b, ok := table.Get(slot)
	return b.Native, ok
}

func resolve(native string, ev events.PaywallEvent) (Slot, bool) {
	if a, ok := ev.(*events.PaywallAction); ok {
		slot, ok := actionSlots[a.Action.Type]
		return slot, ok
	}
	return table.Only(native)
}
