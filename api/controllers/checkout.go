package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/api/middleware"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/api/responses"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/api/validators"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/checkout"
	pkgerrors "github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/errors"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/logger"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/money"
)

// Checkout is the payment surface exposed to the storefront.
type Checkout interface {
	CreateCheckoutSession(ctx context.Context, input checkout.SessionInput) (*checkout.Session, error)
	GetCheckoutSession(ctx context.Context, id string) (*checkout.SessionDetails, error)
	CreatePaymentIntent(ctx context.Context, input checkout.PaymentIntentInput) (*checkout.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*checkout.PaymentIntent, error)
	Refund(ctx context.Context, input checkout.RefundInput) (*checkout.Refund, error)
}

type checkoutSessionRequest struct {
	Items                  []checkout.Item `json:"items"`
	CustomerEmail          string          `json:"customerEmail"`
	ConnectedAccountID     string          `json:"connectedAccountId"`
	SuccessURL             string          `json:"successUrl"`
	CancelURL              string          `json:"cancelUrl"`
	SelectedShippingRateID string          `json:"selectedShippingRateId"`
	ShippingRateID         string          `json:"shippingRateId"`
}

func (p checkoutSessionRequest) rateID() string {
	if id := strings.TrimSpace(p.SelectedShippingRateID); id != "" {
		return id
	}
	return strings.TrimSpace(p.ShippingRateID)
}

// CreateCheckoutSession starts a hosted checkout. Guests may check out; a
// signed-in shopper's id rides along in the session metadata.
func CreateCheckoutSession(svc Checkout, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		var payload checkoutSessionRequest
		if err := validators.DecodeJSONBodyLoose(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if len(payload.Items) == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "items are required").WithType("invalid_request_error"))
			return
		}

		session, err := svc.CreateCheckoutSession(r.Context(), checkout.SessionInput{
			Items:              payload.Items,
			CustomerEmail:      strings.TrimSpace(payload.CustomerEmail),
			ConnectedAccountID: strings.TrimSpace(payload.ConnectedAccountID),
			SuccessURL:         strings.TrimSpace(payload.SuccessURL),
			CancelURL:          strings.TrimSpace(payload.CancelURL),
			ShippingRateID:     payload.rateID(),
			UserID:             middleware.UserIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, map[string]string{"sessionId": session.ID, "url": session.URL})
	}
}

func GetCheckoutSession(svc Checkout, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		id, err := stringParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		details, err := svc.GetCheckoutSession(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, details)
	}
}

type paymentIntentRequest struct {
	Amount             money.Money       `json:"amount"`
	Currency           string            `json:"currency"`
	CustomerEmail      string            `json:"customerEmail"`
	ConnectedAccountID string            `json:"connectedAccountId"`
	Metadata           map[string]string `json:"metadata"`
}

func CreatePaymentIntent(svc Checkout, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		var payload paymentIntentRequest
		if err := validators.DecodeJSONBodyLoose(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		intent, err := svc.CreatePaymentIntent(r.Context(), checkout.PaymentIntentInput{
			Amount:             payload.Amount,
			Currency:           strings.TrimSpace(payload.Currency),
			CustomerEmail:      strings.TrimSpace(payload.CustomerEmail),
			ConnectedAccountID: strings.TrimSpace(payload.ConnectedAccountID),
			UserID:             middleware.UserIDFromContext(r.Context()),
			Metadata:           payload.Metadata,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, map[string]string{
			"clientSecret":    intent.ClientSecret,
			"paymentIntentId": intent.ID,
		})
	}
}

func GetPaymentIntent(svc Checkout, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		id, err := stringParam(r, "paymentIntentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		intent, err := svc.GetPaymentIntent(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, intent)
	}
}

type refundRequest struct {
	PaymentIntentID string       `json:"paymentIntentId" validate:"required"`
	Amount          *money.Money `json:"amount,omitempty"`
	Reason          string       `json:"reason,omitempty"`
}

// AdminRefund refunds all or part of a captured payment.
func AdminRefund(svc Checkout, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		var payload refundRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		refund, err := svc.Refund(r.Context(), checkout.RefundInput{
			PaymentIntentID: strings.TrimSpace(payload.PaymentIntentID),
			Amount:          payload.Amount,
			Reason:          strings.TrimSpace(payload.Reason),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, refund)
	}
}
