package stripe

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/account"
	"github.com/stripe/stripe-go/v84/accountlink"
	"github.com/stripe/stripe-go/v84/balance"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/loginlink"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/payout"
	"github.com/stripe/stripe-go/v84/refund"
	"github.com/stripe/stripe-go/v84/shippingrate"
	"github.com/stripe/stripe-go/v84/transfer"
)

// Gateway forwards calls to the Stripe API. Domain packages depend on the
// narrow interfaces they declare, which Gateway satisfies.
type Gateway struct{}

// NewGateway returns a gateway bound to the globally configured key.
func NewGateway(*Client) *Gateway {
	return &Gateway{}
}

// Checkout sessions.

func (g *Gateway) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	params.Context = ctx
	return session.New(params)
}

// GetCheckoutSession retrieves a session with its line items, product
// metadata and payment intent expanded.
func (g *Gateway) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items.data.price.product")
	params.AddExpand("payment_intent")
	return session.Get(id, params)
}

// FindCheckoutSessionByPaymentIntent returns the session that produced the
// intent, or nil when the intent was created outside Checkout.
func (g *Gateway) FindCheckoutSessionByPaymentIntent(ctx context.Context, paymentIntentID string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionListParams{PaymentIntent: stripe.String(paymentIntentID)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)
	params.Single = true

	iter := session.List(params)
	for iter.Next() {
		return iter.CheckoutSession(), nil
	}
	return nil, iter.Err()
}

// Payment intents and refunds.

func (g *Gateway) CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	params.Context = ctx
	return paymentintent.New(params)
}

func (g *Gateway) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	return paymentintent.Get(id, params)
}

func (g *Gateway) CreateRefund(ctx context.Context, params *stripe.RefundParams) (*stripe.Refund, error) {
	params.Context = ctx
	return refund.New(params)
}

// Shipping rates. An empty accountID reads the platform's own rates.

func (g *Gateway) ListShippingRates(ctx context.Context, accountID string) ([]*stripe.ShippingRate, error) {
	params := &stripe.ShippingRateListParams{Active: stripe.Bool(true)}
	params.Context = ctx
	params.Limit = stripe.Int64(100)
	if accountID != "" {
		params.SetStripeAccount(accountID)
	}

	var rates []*stripe.ShippingRate
	iter := shippingrate.List(params)
	for iter.Next() {
		rates = append(rates, iter.ShippingRate())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return rates, nil
}

func (g *Gateway) GetShippingRate(ctx context.Context, accountID, id string) (*stripe.ShippingRate, error) {
	params := &stripe.ShippingRateParams{}
	params.Context = ctx
	if accountID != "" {
		params.SetStripeAccount(accountID)
	}
	return shippingrate.Get(id, params)
}

func (g *Gateway) SetShippingRateActive(ctx context.Context, accountID, id string, active bool) (*stripe.ShippingRate, error) {
	params := &stripe.ShippingRateParams{Active: stripe.Bool(active)}
	params.Context = ctx
	if accountID != "" {
		params.SetStripeAccount(accountID)
	}
	return shippingrate.Update(id, params)
}

// Connected accounts.

func (g *Gateway) CreateAccount(ctx context.Context, params *stripe.AccountParams) (*stripe.Account, error) {
	params.Context = ctx
	return account.New(params)
}

func (g *Gateway) GetAccount(ctx context.Context, id string) (*stripe.Account, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx
	return account.GetByID(id, params)
}

func (g *Gateway) UpdateAccount(ctx context.Context, id string, params *stripe.AccountParams) (*stripe.Account, error) {
	params.Context = ctx
	return account.Update(id, params)
}

func (g *Gateway) DeleteAccount(ctx context.Context, id string) (*stripe.Account, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx
	return account.Del(id, params)
}

func (g *Gateway) CreateAccountLink(ctx context.Context, params *stripe.AccountLinkParams) (*stripe.AccountLink, error) {
	params.Context = ctx
	return accountlink.New(params)
}

func (g *Gateway) CreateLoginLink(ctx context.Context, accountID string) (*stripe.LoginLink, error) {
	params := &stripe.LoginLinkParams{Account: stripe.String(accountID)}
	params.Context = ctx
	return loginlink.New(params)
}

func (g *Gateway) GetBalance(ctx context.Context, accountID string) (*stripe.Balance, error) {
	params := &stripe.BalanceParams{}
	params.Context = ctx
	params.SetStripeAccount(accountID)
	return balance.Get(params)
}

// ListTransfers returns up to limit transfers sent to the connected account.
func (g *Gateway) ListTransfers(ctx context.Context, accountID string, limit int64) ([]*stripe.Transfer, error) {
	params := &stripe.TransferListParams{Destination: stripe.String(accountID)}
	params.Context = ctx
	params.Limit = stripe.Int64(limit)
	params.Single = true

	var out []*stripe.Transfer
	iter := transfer.List(params)
	for iter.Next() {
		out = append(out, iter.Transfer())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPayouts returns up to limit payouts made by the connected account.
func (g *Gateway) ListPayouts(ctx context.Context, accountID string, limit int64) ([]*stripe.Payout, error) {
	params := &stripe.PayoutListParams{}
	params.Context = ctx
	params.Limit = stripe.Int64(limit)
	params.Single = true
	params.SetStripeAccount(accountID)

	var out []*stripe.Payout
	iter := payout.List(params)
	for iter.Next() {
		out = append(out, iter.Payout())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
