package checkout

import (
	"github.com/shambadirect/storefront/internal/orders"
	"github.com/shopspring/decimal"
)

type State string

const (
	StateClosed            State = "closed"
	StateCollectingDetails State = "collecting_details"
	StateReviewAndPay      State = "review_and_pay"
	StateSubmitting        State = "submitting"
	StateCompleted         State = "completed"
	StateFailed            State = "failed"
)

// RedirectAfterOrder is where the client goes once an order is placed.
const RedirectAfterOrder = "/orders"

// Draft is the customer input collected across both checkout steps.
type Draft struct {
	FullName      string               `json:"full_name" validate:"required"`
	Phone         string               `json:"phone" validate:"required"`
	Address       string               `json:"address"`
	Notes         string               `json:"notes"`
	PaymentMethod orders.PaymentMethod `json:"payment_method"`
	DeliveryFee   *decimal.Decimal     `json:"delivery_fee" validate:"required"`
	DistanceKm    *decimal.Decimal     `json:"distance_km"`
}

func newDraft() Draft {
	return Draft{PaymentMethod: orders.PaymentOnDelivery}
}

func (d *Draft) resetFee() {
	d.DeliveryFee = nil
	d.DistanceKm = nil
}

// DetailsInput carries a partial draft update; nil fields are left unchanged.
type DetailsInput struct {
	FullName      *string
	Phone         *string
	Address       *string
	Notes         *string
	PaymentMethod *string
}

// Summary is the live order total shown on the review step.
type Summary struct {
	ItemCount         int             `json:"item_count"`
	AvailableSubtotal decimal.Decimal `json:"available_subtotal"`
	DeliveryFee       decimal.Decimal `json:"delivery_fee"`
	FinalTotal        decimal.Decimal `json:"final_total"`
}

// Receipt is returned once an order has been accepted by the order sink.
type Receipt struct {
	OrderID    string          `json:"order_id"`
	Total      decimal.Decimal `json:"total"`
	RedirectTo string          `json:"redirect_to"`
	Message    string          `json:"message"`
}

// View is a consistent read of the flow for presentation.
type View struct {
	State   State    `json:"state"`
	Draft   Draft    `json:"draft"`
	Summary Summary  `json:"summary"`
	Receipt *Receipt `json:"receipt,omitempty"`
}
