package events

import (
	"fmt"

	"github.com/go-openapi/strfmt"
)

// Event is any record decoded from the bridge.
type Event interface {
	bridgeEvent()
}

// ViewRef identifies the presented view an event belongs to.
type ViewRef struct {
	ID          string  `json:"id"`
	PlacementID *string `json:"placement_id,omitempty"`
	VariationID *string `json:"variation_id,omitempty"`
}

// ViewEvent is an event addressed to one presented view.
type ViewEvent interface {
	Event
	EventID() string
	NativeEvent() string
	ViewRef() ViewRef
}

// ViewHeader is the part every view scoped payload shares.
type ViewHeader struct {
	ID     string  `json:"id"`
	View   ViewRef `json:"view"`
	native string
}

func (*ViewHeader) bridgeEvent() {}

// EventID returns the payload discriminator as sent by the native side.
func (h *ViewHeader) EventID() string { return h.ID }

// NativeEvent returns the native event name the payload was delivered on.
func (h *ViewHeader) NativeEvent() string { return h.native }

// ViewRef returns the view the event is addressed to.
func (h *ViewHeader) ViewRef() ViewRef { return h.View }

func (h *ViewHeader) setNative(name string) { h.native = name }

// AdaptyError is an error reported by the native engine.
type AdaptyError struct {
	Code    int    `json:"adapty_code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (e AdaptyError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("adapty error %d: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("adapty error %d: %s", e.Code, e.Message)
}

type Price struct {
	Amount       float64 `json:"amount"`
	CurrencyCode string  `json:"currency_code,omitempty"`
	Localized    string  `json:"localized_string,omitempty"`
}

type Product struct {
	VendorProductID string `json:"vendor_product_id"`
	AdaptyProductID string `json:"adapty_product_id,omitempty"`
	VariationID     string `json:"paywall_variation_id,omitempty"`
	Title           string `json:"localized_title,omitempty"`
	Price           *Price `json:"price,omitempty"`
}

type AccessLevel struct {
	ID        string           `json:"id"`
	IsActive  bool             `json:"is_active"`
	ExpiresAt *strfmt.DateTime `json:"expires_at,omitempty"`
}

type Profile struct {
	ProfileID      string                 `json:"profile_id"`
	CustomerUserID string                 `json:"customer_user_id,omitempty"`
	SegmentHash    string                 `json:"segment_hash,omitempty"`
	IsTestUser     bool                   `json:"is_test_user"`
	AccessLevels   map[string]AccessLevel `json:"paid_access_levels,omitempty"`
	UpdatedAt      *strfmt.DateTime       `json:"timestamp,omitempty"`
}

// PurchaseResultType is the outcome of a purchase flow.
type PurchaseResultType string

const (
	PurchaseSuccess       PurchaseResultType = "success"
	PurchasePending       PurchaseResultType = "pending"
	PurchaseUserCancelled PurchaseResultType = "user_cancelled"
)

type PurchaseResult struct {
	Type    PurchaseResultType `json:"type"`
	Profile *Profile           `json:"profile,omitempty"`
}

type InstallationDetails struct {
	InstallID      string          `json:"install_id,omitempty"`
	InstallTime    strfmt.DateTime `json:"install_time"`
	AppLaunchCount int             `json:"app_launch_count"`
	Payload        string          `json:"payload,omitempty"`
}
