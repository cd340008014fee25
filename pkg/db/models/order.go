package models

import (
	"time"

	"github.com/shambadirect/storefront/pkg/enums"
	"github.com/shopspring/decimal"
)

// Order is a placed storefront order.
type Order struct {
	ID              string            `gorm:"column:id;type:uuid;primaryKey"`
	CustomerName    string            `gorm:"column:customer_name;not null"`
	CustomerPhone   string            `gorm:"column:customer_phone;not null"`
	DeliveryAddress string            `gorm:"column:delivery_address;not null"`
	PaymentMethod   string            `gorm:"column:payment_method;not null"`
	Notes           string            `gorm:"column:notes"`
	Subtotal        decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DeliveryFee     decimal.Decimal   `gorm:"column:delivery_fee;type:numeric(12,2);not null"`
	DistanceKm      float64           `gorm:"column:distance_km;not null;default:0"`
	Total           decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	Status          enums.OrderStatus `gorm:"column:status;not null;default:'placed'"`
	PlacedAt        time.Time         `gorm:"column:placed_at;not null"`
	LineItems       []OrderLineItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (Order) TableName() string { return "orders" }
