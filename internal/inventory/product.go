package inventory

import (
	"github.com/shambadirect/storefront/pkg/db/models"
	"github.com/shopspring/decimal"
)

// Product is a sellable listing as seen by the storefront. Values are
// immutable once fetched; a refresh replaces them wholesale.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Location    string          `json:"location"`
	FarmerName  string          `json:"farmer_name,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Unit        string          `json:"unit"`
	Quantity    int             `json:"quantity"`
	InStock     bool            `json:"in_stock"`
	Images      []string        `json:"images"`
	Badges      []string        `json:"badges"`
}

// FromModel maps a product_listings row. InStock is derived from quantity.
func FromModel(m models.ProductListing) Product {
	return Product{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Category:    m.Category,
		Location:    m.Location,
		FarmerName:  m.FarmerName,
		Price:       m.Price,
		Unit:        m.Unit,
		Quantity:    m.Quantity,
		InStock:     m.Quantity > 0,
		Images:      nonNil(m.Images),
		Badges:      nonNil(m.Badges),
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
