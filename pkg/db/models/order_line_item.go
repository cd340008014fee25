package models

import "github.com/shopspring/decimal"

// OrderLineItem snapshots one available cart line at placement time.
type OrderLineItem struct {
	ID        uint            `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID   string          `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID string          `gorm:"column:product_id;type:uuid;not null"`
	Name      string          `gorm:"column:name;not null"`
	Unit      string          `gorm:"column:unit;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	LineTotal decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
}

func (OrderLineItem) TableName() string { return "order_line_items" }
