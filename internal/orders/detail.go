package orders

import (
	"time"

	"github.com/shambadirect/storefront/pkg/db/models"
	"github.com/shopspring/decimal"
)

// Detail is a stored order as shown on the order confirmation page.
type Detail struct {
	OrderID       string          `json:"order_id"`
	Status        string          `json:"status"`
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

func DetailFromModel(m *models.Order) Detail {
	d := Detail{
		OrderID: m.ID,
		Status:  m.Status.String(),
		Customer: Customer{
			FullName: m.CustomerName,
			Phone:    m.CustomerPhone,
			Address:  m.DeliveryAddress,
		},
		PaymentMethod: PaymentMethod(m.PaymentMethod),
		Notes:         m.Notes,
		Items:         make([]Item, 0, len(m.LineItems)),
		Subtotal:      m.Subtotal,
		DeliveryFee:   m.DeliveryFee,
		DistanceKm:    decimal.NewFromFloat(m.DistanceKm),
		Total:         m.Total,
		PlacedAt:      m.PlacedAt,
	}
	for _, li := range m.LineItems {
		d.Items = append(d.Items, Item{
			ProductID: li.ProductID,
			Name:      li.Name,
			Unit:      li.Unit,
			UnitPrice: li.UnitPrice,
			Quantity:  li.Quantity,
			LineTotal: li.LineTotal,
		})
	}
	return d
}
