package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/api/responses"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/api/validators"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/shipping"
	pkgerrors "github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/errors"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/logger"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/money"
)

// ShippingRates is the rate lookup surface used by checkout pages.
type ShippingRates interface {
	GetCheckoutRates(ctx context.Context, accountID string, orderTotal money.Money) (*shipping.RatesResult, error)
	SetActive(ctx context.Context, accountID, rateID string, active bool) (*shipping.Rate, error)
}

// ShippingRatesForCheckout answers GET /api/shipping/rates?account_id=&order_total=.
func ShippingRatesForCheckout(svc ShippingRates, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}
		accountID := strings.TrimSpace(r.URL.Query().Get("account_id"))
		total, err := validators.ParseQueryMoney(r, "order_total")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.GetCheckoutRates(r.Context(), accountID, total)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type setRateActiveRequest struct {
	AccountID string `json:"account_id"`
	Active    *bool  `json:"active" validate:"required"`
}

// AdminSetShippingRateActive toggles a rate on the seller account.
func AdminSetShippingRateActive(svc ShippingRates, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}
		rateID, err := stringParam(r, "rateId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload setRateActiveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rate, err := svc.SetActive(r.Context(), strings.TrimSpace(payload.AccountID), rateID, *payload.Active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rate)
	}
}
