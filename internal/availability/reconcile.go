package availability

import (
	"github.com/shambadirect/storefront/internal/cart"
	"github.com/shambadirect/storefront/internal/inventory"
	"github.com/shopspring/decimal"
)

const (
	MessageEmpty       = "Basket is Empty"
	MessageUnavailable = "Unavailable Items Found"
	MessageCheckout    = "Checkout"
)

// View is the availability of one cart line against the snapshot.
type View struct {
	IsAvailable    bool `json:"is_available"`
	AvailableStock int  `json:"available_stock"`
}

// Report is derived state over a cart and an inventory snapshot.
type Report struct {
	PerLine             map[string]View `json:"per_line"`
	AvailableSubtotal   decimal.Decimal `json:"available_subtotal"`
	AvailableCount      int             `json:"available_count"`
	TotalCount          int             `json:"total_count"`
	HasUnavailableItems bool            `json:"has_unavailable_items"`
	CanCheckout         bool            `json:"can_checkout"`

	lines []cart.Line
}

// Reconcile classifies each line. A line is available when its product is in
// the snapshot, in stock, and has at least the line's quantity. Products
// missing from the snapshot are unavailable, not an error.
func Reconcile(lines []cart.Line, products []inventory.Product) Report {
	byID := make(map[string]inventory.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	report := Report{
		PerLine:           make(map[string]View, len(lines)),
		AvailableSubtotal: decimal.Zero,
		TotalCount:        len(lines),
		lines:             lines,
	}
	for _, line := range lines {
		view := View{}
		if p, ok := byID[line.Product.ID]; ok {
			view.AvailableStock = p.Quantity
			view.IsAvailable = p.InStock && p.Quantity >= line.Quantity
		}
		report.PerLine[line.Product.ID] = view
		if !view.IsAvailable {
			continue
		}
		report.AvailableCount++
		report.AvailableSubtotal = report.AvailableSubtotal.Add(
			line.Product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))),
		)
	}
	report.HasUnavailableItems = report.AvailableCount < report.TotalCount
	report.CanCheckout = report.TotalCount > 0 && !report.HasUnavailableItems
	return report
}

// AvailableLines returns the available subset in cart order.
func (r Report) AvailableLines() []cart.Line {
	out := make([]cart.Line, 0, r.AvailableCount)
	for _, line := range r.lines {
		if r.PerLine[line.Product.ID].IsAvailable {
			out = append(out, line)
		}
	}
	return out
}

// CheckoutMessage is the label shown on the checkout button.
func (r Report) CheckoutMessage() string {
	switch {
	case r.TotalCount == 0:
		return MessageEmpty
	case r.HasUnavailableItems:
		return MessageUnavailable
	default:
		return MessageCheckout
	}
}
