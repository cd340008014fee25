package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/shambadirect/storefront/api/responses"
	"github.com/shambadirect/storefront/api/validators"
	"github.com/shambadirect/storefront/internal/availability"
	"github.com/shambadirect/storefront/internal/cart"
	"github.com/shambadirect/storefront/internal/inventory"
	pkgerrors "github.com/shambadirect/storefront/pkg/errors"
	"github.com/shambadirect/storefront/pkg/logger"
)

type cartStore interface {
	Add(ctx context.Context, product inventory.Product) (cart.AddResult, error)
	Increase(ctx context.Context, productID string) (*cart.Notice, error)
	Decrease(ctx context.Context, productID string) error
	SetQuantity(ctx context.Context, productID, raw string) (*cart.Notice, error)
	Remove(ctx context.Context, productID string)
	Lines() []cart.Line
}

type productLookup interface {
	Lookup(id string) (inventory.Product, bool)
	Products() []inventory.Product
}

type cartLineResponse struct {
	Product        inventory.Product `json:"product"`
	Quantity       int               `json:"quantity"`
	LineTotal      decimal.Decimal   `json:"line_total"`
	IsAvailable    bool              `json:"is_available"`
	AvailableStock int               `json:"available_stock"`
}

type cartResponse struct {
	Lines               []cartLineResponse `json:"lines"`
	AvailableSubtotal   decimal.Decimal    `json:"available_subtotal"`
	AvailableCount      int                `json:"available_count"`
	TotalCount          int                `json:"total_count"`
	HasUnavailableItems bool               `json:"has_unavailable_items"`
	CanCheckout         bool               `json:"can_checkout"`
	CheckoutMessage     string             `json:"checkout_message"`
}

func buildCartResponse(store cartStore, catalog productLookup) cartResponse {
	lines := store.Lines()
	report := availability.Reconcile(lines, catalog.Products())

	resp := cartResponse{
		Lines:               make([]cartLineResponse, 0, len(lines)),
		AvailableSubtotal:   report.AvailableSubtotal,
		AvailableCount:      report.AvailableCount,
		TotalCount:          report.TotalCount,
		HasUnavailableItems: report.HasUnavailableItems,
		CanCheckout:         report.CanCheckout,
		CheckoutMessage:     report.CheckoutMessage(),
	}
	for _, line := range lines {
		view := report.PerLine[line.Product.ID]
		resp.Lines = append(resp.Lines, cartLineResponse{
			Product:        line.Product,
			Quantity:       line.Quantity,
			LineTotal:      line.Product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))),
			IsAvailable:    view.IsAvailable,
			AvailableStock: view.AvailableStock,
		})
	}
	return resp
}

// CartFetch returns the cart lines with their availability.
func CartFetch(store cartStore, catalog productLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, buildCartResponse(store, catalog))
	}
}

type addItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

// CartAddItem adds a product from the current snapshot at the minimum quantity.
func CartAddItem(store cartStore, catalog productLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID := strings.TrimSpace(req.ProductID)
		ctx := logg.WithProductID(r.Context(), productID)

		product, ok := catalog.Lookup(productID)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}

		result, err := store.Add(ctx, product)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var notice *cart.Notice
		if result.AlreadyInCart {
			notice = &cart.Notice{
				Kind:      cart.NoticeAlreadyInCart,
				ProductID: product.ID,
				Available: product.Quantity,
				Message:   "Item already in cart",
			}
		}
		writeCart(w, store, catalog, notice)
	}
}

// CartIncrease adds one unit to a line.
func CartIncrease(store cartStore, catalog productLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, productID := productContext(r, logg)
		notice, err := store.Increase(ctx, productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		writeCart(w, store, catalog, notice)
	}
}

// CartDecrease removes one unit from a line, never going under the minimum.
func CartDecrease(store cartStore, catalog productLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, productID := productContext(r, logg)
		if err := store.Decrease(ctx, productID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		writeCart(w, store, catalog, nil)
	}
}

type setQuantityRequest struct {
	Quantity quantityInput `json:"quantity"`
}

// quantityInput accepts the typed value as either a JSON string or number.
type quantityInput string

func (q *quantityInput) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*q = quantityInput(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*q = quantityInput(n.String())
	return nil
}

// CartSetQuantity applies a typed quantity. Out-of-range input is clamped.
func CartSetQuantity(store cartStore, catalog productLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, productID := productContext(r, logg)

		var req setQuantityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		notice, err := store.SetQuantity(ctx, productID, string(req.Quantity))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		writeCart(w, store, catalog, notice)
	}
}

// CartRemove drops a line. Removing an absent product is not an error.
func CartRemove(store cartStore, catalog productLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, productID := productContext(r, logg)
		store.Remove(ctx, productID)
		writeCart(w, store, catalog, nil)
	}
}

func productContext(r *http.Request, logg *logger.Logger) (context.Context, string) {
	productID := strings.TrimSpace(chi.URLParam(r, "productId"))
	return logg.WithProductID(r.Context(), productID), productID
}

func writeCart(w http.ResponseWriter, store cartStore, catalog productLookup, notice *cart.Notice) {
	if notice == nil {
		responses.WriteSuccess(w, buildCartResponse(store, catalog))
		return
	}
	responses.WriteSuccessWithNotice(w, buildCartResponse(store, catalog), notice)
}
