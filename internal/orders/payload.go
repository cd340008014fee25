package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentOnDelivery PaymentMethod = "pay_on_delivery"
	PaymentPrepay     PaymentMethod = "prepay"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentOnDelivery || m == PaymentPrepay
}

// Label is the human-readable payment method.
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentPrepay:
		return "Prepay"
	case PaymentOnDelivery:
		return "Pay on delivery"
	default:
		return string(m)
	}
}

type Customer struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// Item is one available cart line frozen into the order.
type Item struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Payload is the order request handed to the order sink.
type Payload struct {
	OrderID       uuid.UUID       `json:"order_id"`
	Customer      Customer        `json:"customer"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Notes         string          `json:"notes,omitempty"`
	Items         []Item          `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DeliveryFee   decimal.Decimal `json:"delivery_fee"`
	DistanceKm    decimal.Decimal `json:"distance_km"`
	Total         decimal.Decimal `json:"total"`
	PlacedAt      time.Time       `json:"placed_at"`
}
