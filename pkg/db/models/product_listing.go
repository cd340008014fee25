package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shambadirect/storefront/pkg/enums"
	"github.com/shopspring/decimal"
)

// ProductListing is a farmer's listing as stored in product_listings.
type ProductListing struct {
	ID          string              `gorm:"column:id;type:uuid;primaryKey"`
	Name        string              `gorm:"column:name;not null"`
	Description string              `gorm:"column:description;not null;default:''"`
	Price       decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	Unit        string              `gorm:"column:unit;not null"`
	Quantity    int                 `gorm:"column:quantity;not null;default:0"`
	Category    string              `gorm:"column:category"`
	Location    string              `gorm:"column:location"`
	Images      pq.StringArray      `gorm:"column:images;type:text[]"`
	Badges      pq.StringArray      `gorm:"column:badges;type:text[]"`
	FarmerName  string              `gorm:"column:farmer_name"`
	Status      enums.ListingStatus `gorm:"column:status;not null;default:'pending'"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (ProductListing) TableName() string { return "product_listings" }
