package delivery

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FeeStrategy prices a delivery by driving distance.
type FeeStrategy interface {
	Fee(distanceKm decimal.Decimal) decimal.Decimal
}

// LinearFee charges Base plus PerKm for every started kilometre.
type LinearFee struct {
	Base  decimal.Decimal
	PerKm decimal.Decimal
}

// NewLinearFee parses the configured amounts.
func NewLinearFee(base, perKm string) (LinearFee, error) {
	b, err := decimal.NewFromString(base)
	if err != nil {
		return LinearFee{}, fmt.Errorf("invalid base fee %q: %w", base, err)
	}
	p, err := decimal.NewFromString(perKm)
	if err != nil {
		return LinearFee{}, fmt.Errorf("invalid per-km fee %q: %w", perKm, err)
	}
	if b.IsNegative() || p.IsNegative() {
		return LinearFee{}, fmt.Errorf("delivery fees must not be negative")
	}
	return LinearFee{Base: b, PerKm: p}, nil
}

func (l LinearFee) Fee(distanceKm decimal.Decimal) decimal.Decimal {
	if distanceKm.IsNegative() {
		distanceKm = decimal.Zero
	}
	return l.Base.Add(l.PerKm.Mul(distanceKm.Ceil()))
}
