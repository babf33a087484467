package checkout

import (
	"context"
	"strings"

	"github.com/stripe/stripe-go/v84"
	pkgerrors "github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/errors"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/money"
	stripeclient "github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/stripe"
)

// PaymentIntentInput creates a bare payment intent for embedded card forms.
type PaymentIntentInput struct {
	Amount             money.Money
	Currency           string
	CustomerEmail      string
	ConnectedAccountID string
	// UserID is the signed-in shopper, taken from the verified token.
	UserID             string
	Metadata           map[string]string
}

// PaymentIntent is the public view of an intent.
type PaymentIntent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret,omitempty"`
	Amount       money.Money       `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

func (s *Service) CreatePaymentIntent(ctx context.Context, input PaymentIntentInput) (*PaymentIntent, error) {
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	currency := strings.ToLower(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = s.opts.Currency
	}

	metadata := callerMetadata(input.Metadata)
	if userID := strings.TrimSpace(input.UserID); userID != "" {
		metadata[MetadataUserID] = userID
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(input.Amount.Cents()),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if email := strings.TrimSpace(input.CustomerEmail); email != "" {
		if err := s.validate.Var(email, "email"); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email is invalid")
		}
		params.ReceiptEmail = stripe.String(email)
		metadata[MetadataCustomerEmail] = email
	}

	accountID := strings.TrimSpace(input.ConnectedAccountID)
	if stripeclient.IsRealAccount(accountID, s.opts.PlaceholderAccount) {
		params.ApplicationFeeAmount = stripe.Int64(input.Amount.Percent(s.opts.FeePercent).Cents())
		params.TransferData = &stripe.PaymentIntentTransferDataParams{Destination: stripe.String(accountID)}
		metadata[MetadataConnectedAccount] = accountID
	}
	params.Metadata = metadata

	pi, err := s.gateway.CreatePaymentIntent(ctx, params)
	if err != nil {
		s.logg.Error(ctx, "checkout.payment_intent.create_failed", err)
		return nil, stripeclient.MapError(err, "failed to create payment intent")
	}
	return intentView(pi, true), nil
}

func (s *Service) GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id is required")
	}
	pi, err := s.gateway.GetPaymentIntent(ctx, id)
	if err != nil {
		return nil, stripeclient.MapError(err, "failed to retrieve payment intent")
	}
	return intentView(pi, false), nil
}

func intentView(pi *stripe.PaymentIntent, withSecret bool) *PaymentIntent {
	out := &PaymentIntent{
		ID:       pi.ID,
		Amount:   money.FromCents(pi.Amount),
		Currency: string(pi.Currency),
		Status:   string(pi.Status),
		Metadata: pi.Metadata,
	}
	if withSecret {
		out.ClientSecret = pi.ClientSecret
	}
	return out
}

var refundReasons = map[string]struct{}{
	string(stripe.RefundReasonDuplicate):           {},
	string(stripe.RefundReasonFraudulent):          {},
	string(stripe.RefundReasonRequestedByCustomer): {},
}

// RefundInput refunds all or part of a payment intent.
type RefundInput struct {
	PaymentIntentID string
	Amount          *money.Money
	Reason          string
}

// Refund is the public view of a refund.
type Refund struct {
	ID       string      `json:"id"`
	Amount   money.Money `json:"amount"`
	Currency string      `json:"currency"`
	Status   string      `json:"status"`
}

// Refund returns funds to the buyer. Marketplace charges also pull the
// transfer back from the connected account and return the platform fee.
func (s *Service) Refund(ctx context.Context, input RefundInput) (*Refund, error) {
	piID := strings.TrimSpace(input.PaymentIntentID)
	if piID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id is required")
	}
	params := &stripe.RefundParams{PaymentIntent: stripe.String(piID)}
	if input.Amount != nil {
		if !input.Amount.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be greater than zero")
		}
		params.Amount = stripe.Int64(input.Amount.Cents())
	}
	if reason := strings.TrimSpace(input.Reason); reason != "" {
		if _, ok := refundReasons[reason]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported refund reason")
		}
		params.Reason = stripe.String(reason)
	}

	pi, err := s.gateway.GetPaymentIntent(ctx, piID)
	if err != nil {
		return nil, stripeclient.MapError(err, "failed to retrieve payment intent")
	}
	if pi.TransferData != nil && pi.TransferData.Destination != nil {
		params.ReverseTransfer = stripe.Bool(true)
		params.RefundApplicationFee = stripe.Bool(true)
	}

	ref, err := s.gateway.CreateRefund(ctx, params)
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "payment_intent_id", piID), "checkout.refund.failed", err)
		return nil, stripeclient.MapError(err, "failed to create refund")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"payment_intent_id": piID,
		"refund_id":         ref.ID,
		"amount_cents":      ref.Amount,
	}), "checkout.refund.created")
	return &Refund{
		ID:       ref.ID,
		Amount:   money.FromCents(ref.Amount),
		Currency: string(ref.Currency),
		Status:   string(ref.Status),
	}, nil
}

// callerMetadata copies caller-supplied metadata without the keys the order
// writers trust.
func callerMetadata(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch strings.ToLower(strings.TrimSpace(k)) {
		case MetadataUserID, MetadataCustomerEmail, MetadataConnectedAccount, MetadataProductID:
			continue
		}
		out[k] = v
	}
	return out
}
