package controllers

import (
	"context"
	"net/http"

	"github.com/shambadirect/storefront/api/responses"
	"github.com/shambadirect/storefront/api/validators"
	"github.com/shambadirect/storefront/internal/checkout"
	"github.com/shambadirect/storefront/internal/delivery"
	"github.com/shambadirect/storefront/internal/orders"
	"github.com/shambadirect/storefront/pkg/logger"
)

const minSuggestionInput = 3

type checkoutFlow interface {
	Open(ctx context.Context) error
	Close(ctx context.Context) error
	UpdateDetails(ctx context.Context, in checkout.DetailsInput) (checkout.Draft, error)
	CheckAddressFee(ctx context.Context, address string) (delivery.Quote, error)
	Advance(ctx context.Context) error
	Back(ctx context.Context) error
	PlaceOrder(ctx context.Context) (checkout.Receipt, error)
	View() checkout.View
}

// AddressSuggester autocompletes delivery addresses.
type AddressSuggester interface {
	Suggest(ctx context.Context, input string) ([]delivery.Suggestion, error)
}

// CheckoutView returns state, draft and the live summary.
func CheckoutView(flow checkoutFlow, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, flow.View())
	}
}

// CheckoutTransition runs a state change and returns the resulting view.
func CheckoutTransition(flow checkoutFlow, step func(checkoutFlow, context.Context) error, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := step(flow, r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, flow.View())
	}
}

func CheckoutOpen(flow checkoutFlow, logg *logger.Logger) http.HandlerFunc {
	return CheckoutTransition(flow, checkoutFlow.Open, logg)
}

func CheckoutClose(flow checkoutFlow, logg *logger.Logger) http.HandlerFunc {
	return CheckoutTransition(flow, checkoutFlow.Close, logg)
}

func CheckoutAdvance(flow checkoutFlow, logg *logger.Logger) http.HandlerFunc {
	return CheckoutTransition(flow, checkoutFlow.Advance, logg)
}

func CheckoutBack(flow checkoutFlow, logg *logger.Logger) http.HandlerFunc {
	return CheckoutTransition(flow, checkoutFlow.Back, logg)
}

type detailsRequest struct {
	FullName      *string `json:"full_name,omitempty" validate:"omitempty,max=120"`
	Phone         *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Address       *string `json:"address,omitempty" validate:"omitempty,max=300"`
	Notes         *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
	PaymentMethod *string `json:"payment_method,omitempty" validate:"omitempty,oneof=pay_on_delivery prepay"`
}

// CheckoutDetails applies a partial update to the draft.
func CheckoutDetails(flow checkoutFlow, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req detailsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		_, err := flow.UpdateDetails(r.Context(), checkout.DetailsInput{
			FullName:      req.FullName,
			Phone:         req.Phone,
			Address:       req.Address,
			Notes:         req.Notes,
			PaymentMethod: req.PaymentMethod,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, flow.View())
	}
}

type feeRequest struct {
	Address string `json:"address" validate:"required,max=300"`
}

type feeResponse struct {
	Quote delivery.Quote `json:"quote"`
	View  checkout.View  `json:"checkout"`
}

// CheckoutFee prices delivery to the given address.
func CheckoutFee(flow checkoutFlow, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req feeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := flow.CheckAddressFee(r.Context(), req.Address)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, feeResponse{Quote: quote, View: flow.View()})
	}
}

type placeOrderResponse struct {
	checkout.Receipt
	WhatsAppLink string `json:"whatsapp_link,omitempty"`
}

// CheckoutPlaceOrder submits the order. farmerPhone, when set, adds a
// WhatsApp deep link carrying the order message.
func CheckoutPlaceOrder(flow checkoutFlow, farmerPhone string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		receipt, err := flow.PlaceOrder(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp := placeOrderResponse{Receipt: receipt}
		if farmerPhone != "" {
			resp.WhatsAppLink = orders.WhatsAppLink(farmerPhone, receipt.Message)
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

// CheckoutAddressSuggestions autocompletes the delivery address. Short input
// and a missing suggester both yield an empty list.
func CheckoutAddressSuggestions(suggester AddressSuggester, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input := validators.QueryText(r, "q", maxSearchTermLen)
		if suggester == nil || len([]rune(input)) < minSuggestionInput {
			responses.WriteSuccess(w, []delivery.Suggestion{})
			return
		}
		found, err := suggester.Suggest(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, found)
	}
}
