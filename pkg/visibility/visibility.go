package visibility

import (
	"strings"

	"github.com/shambadirect/storefront/pkg/db/models"
	pkgerrors "github.com/shambadirect/storefront/pkg/errors"
)

// EnsureListingVisible enforces the rules that keep unapproved or incomplete
// listings off buyer-facing pages. Hidden listings read as not found.
func EnsureListingVisible(listing *models.ProductListing) error {
	if listing == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if !listing.Status.Sellable() {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not approved")
	}
	if strings.TrimSpace(listing.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product listing incomplete")
	}
	if !listing.Price.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product listing unpriced")
	}
	return nil
}
