package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/shambadirect/storefront/internal/repo"
	"github.com/shambadirect/storefront/pkg/db/models"
	"github.com/shambadirect/storefront/pkg/enums"
	pkgerrors "github.com/shambadirect/storefront/pkg/errors"
	"github.com/shambadirect/storefront/pkg/visibility"
	"gorm.io/gorm"
)

// Source yields the current list of sellable products.
type Source interface {
	FetchSellableProducts(ctx context.Context) ([]Product, error)
}

// Repository reads approved listings from the backend product_listings table.
type Repository struct {
	repo.Base
}

// NewRepository binds a repository to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// FetchSellableProducts returns approved listings with stock, newest first.
func (r *Repository) FetchSellableProducts(ctx context.Context) ([]Product, error) {
	var rows []models.ProductListing
	err := r.DB(ctx).
		Where("status = ? AND quantity > 0", enums.ListingStatusApproved).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch product listings")
	}

	products := make([]Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, FromModel(row))
	}
	return products, nil
}

// FindByID loads a single approved listing regardless of stock.
func (r *Repository) FindByID(ctx context.Context, id string) (Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Product{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	var row models.ProductListing
	err := r.DB(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Product{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": id})
		}
		return Product{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product listing")
	}
	if err := visibility.EnsureListingVisible(&row); err != nil {
		return Product{}, err
	}
	return FromModel(row), nil
}
