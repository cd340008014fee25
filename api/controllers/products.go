package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shambadirect/storefront/api/responses"
	"github.com/shambadirect/storefront/api/validators"
	"github.com/shambadirect/storefront/internal/inventory"
	pkgerrors "github.com/shambadirect/storefront/pkg/errors"
	"github.com/shambadirect/storefront/pkg/logger"
)

const (
	maxSearchTermLen = 100
	maxProductLimit  = 500
)

type productCatalog interface {
	Search(term string) []inventory.Product
	Refresh(ctx context.Context) error
	Status() (time.Time, error)
}

type productFinder interface {
	FindByID(ctx context.Context, id string) (inventory.Product, error)
}

type productListResponse struct {
	Products    []inventory.Product `json:"products"`
	Count       int                 `json:"count"`
	RefreshedAt *time.Time          `json:"refreshed_at,omitempty"`
	Stale       bool                `json:"stale"`
}

func listResponse(catalog productCatalog, products []inventory.Product) productListResponse {
	refreshedAt, lastErr := catalog.Status()
	resp := productListResponse{Products: products, Count: len(products), Stale: lastErr != nil}
	if !refreshedAt.IsZero() {
		resp.RefreshedAt = &refreshedAt
	}
	return resp
}

// ProductList serves the listing page, optionally filtered by ?q=.
func ProductList(catalog productCatalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, maxProductLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		term := validators.QueryText(r, "q", maxSearchTermLen)
		products := catalog.Search(term)
		if limit > 0 && len(products) > limit {
			products = products[:limit]
		}
		responses.WriteSuccess(w, listResponse(catalog, products))
	}
}

// ProductDetail loads a single listing for the product page.
func ProductDetail(finder productFinder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if finder == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product lookup unavailable"))
			return
		}
		productID := chi.URLParam(r, "productId")
		ctx := logg.WithProductID(r.Context(), productID)

		product, err := finder.FindByID(ctx, productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ProductRefresh re-fetches the sellable list. The previous snapshot stays
// in place when the fetch fails.
func ProductRefresh(catalog productCatalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := catalog.Refresh(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listResponse(catalog, catalog.Search("")))
	}
}
