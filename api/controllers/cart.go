package controllers

import (
	"context"
	"net/http"

	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/api/responses"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/api/validators"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/cart"
	pkgerrors "github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/errors"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/logger"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/money"
)

// CartQuoter prices a browser cart against the catalog.
type CartQuoter interface {
	Quote(ctx context.Context, input cart.QuoteInput) (*cart.Quote, error)
}

type quoteRequest struct {
	Items    []cart.Item  `json:"items" validate:"required,min=1,max=50"`
	Shipping *money.Money `json:"shipping,omitempty"`
}

// CartQuote returns subtotal, total and free-shipping status for the cart
// kept in the browser. Nothing is stored.
func CartQuote(quoter CartQuoter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if quoter == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		var payload quoteRequest
		if err := validators.DecodeJSONBodyLoose(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := quoter.Quote(r.Context(), cart.QuoteInput{Items: payload.Items, Shipping: payload.Shipping})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}
