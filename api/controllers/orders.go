package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shambadirect/storefront/api/responses"
	"github.com/shambadirect/storefront/internal/orders"
	"github.com/shambadirect/storefront/pkg/db/models"
	pkgerrors "github.com/shambadirect/storefront/pkg/errors"
	"github.com/shambadirect/storefront/pkg/logger"
)

type orderFinder interface {
	FindByID(ctx context.Context, id string) (*models.Order, error)
}

// OrderDetail serves the confirmation page checkout redirects to.
func OrderDetail(finder orderFinder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}
		ctx := logg.WithOrderID(r.Context(), orderID.String())

		order, err := finder.FindByID(ctx, orderID.String())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.DetailFromModel(order))
	}
}
