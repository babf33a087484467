package checkout

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/shipping"
	pkgerrors "github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/errors"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/logger"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/metrics"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/money"
	stripeclient "github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/stripe"
)

// Metadata keys shared with the order writers.
const (
	MetadataUserID           = "user_id"
	MetadataCustomerEmail    = "customer_email"
	MetadataConnectedAccount = "connected_account_id"
	MetadataProductID        = "product_id"
)

const sessionPlaceholder = "{CHECKOUT_SESSION_ID}"

// Gateway is the payment platform surface used by checkout.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	CreateRefund(ctx context.Context, params *stripe.RefundParams) (*stripe.Refund, error)
}

// RateResolver loads the shipping rate chosen by the shopper.
type RateResolver interface {
	Resolve(ctx context.Context, accountID, rateID string) (*shipping.Rate, error)
}

// Options carries the storefront configuration checkout depends on.
type Options struct {
	FeePercent         decimal.Decimal
	Currency           string
	FrontendURL        string
	PlaceholderAccount string
	ShippingCountries  []string
}

// Service creates hosted checkout sessions and payment intents. It never
// writes orders; those exist only once payment is confirmed.
type Service struct {
	gateway  Gateway
	rates    RateResolver
	opts     Options
	validate *validator.Validate
	metrics  *metrics.Storefront
	logg     *logger.Logger
}

func NewService(gateway Gateway, rates RateResolver, opts Options, m *metrics.Storefront, logg *logger.Logger) (*Service, error) {
	if gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "checkout gateway required")
	}
	if rates == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shipping rate resolver required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	if len(opts.ShippingCountries) == 0 {
		opts.ShippingCountries = []string{"US"}
	}
	opts.FrontendURL = strings.TrimRight(opts.FrontendURL, "/")
	return &Service{
		gateway:  gateway,
		rates:    rates,
		opts:     opts,
		validate: validator.New(),
		metrics:  m,
		logg:     logg,
	}, nil
}

// Item is one line sent to the hosted checkout page. Price is in major units
// on the wire and held as minor units from decoding onward.
type Item struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Price       money.Money `json:"price"`
	Quantity    int64       `json:"quantity"`
	Image       string      `json:"image,omitempty"`
}

// SessionInput describes a checkout request.
type SessionInput struct {
	Items              []Item
	CustomerEmail      string
	ConnectedAccountID string
	SuccessURL         string
	CancelURL          string
	ShippingRateID     string
	UserID             string
}

// Session is the created hosted checkout session.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateCheckoutSession validates the cart, resolves the shipping rate and
// opens a hosted session. The platform fee and transfer destination are
// attached only for a real connected account.
func (s *Service) CreateCheckoutSession(ctx context.Context, input SessionInput) (*Session, error) {
	subtotal, err := s.validateSession(input)
	if err != nil {
		return nil, err
	}

	accountID := strings.TrimSpace(input.ConnectedAccountID)
	rate, err := s.rates.Resolve(ctx, accountID, input.ShippingRateID)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		CustomerEmail:      stripe.String(strings.TrimSpace(input.CustomerEmail)),
		SuccessURL:         stripe.String(s.successURL(input.SuccessURL)),
		CancelURL:          stripe.String(s.cancelURL(input.CancelURL)),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(s.opts.ShippingCountries),
		},
		ShippingOptions: []*stripe.CheckoutSessionShippingOptionParams{shippingOption(rate, s.opts.Currency)},
		Metadata: map[string]string{
			MetadataUserID:           strings.TrimSpace(input.UserID),
			MetadataCustomerEmail:    strings.TrimSpace(input.CustomerEmail),
			MetadataConnectedAccount: accountID,
		},
	}
	for _, item := range input.Items {
		params.LineItems = append(params.LineItems, s.lineItem(item))
	}

	marketplace := stripeclient.IsRealAccount(accountID, s.opts.PlaceholderAccount)
	if marketplace {
		fee := subtotal.Percent(s.opts.FeePercent)
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(fee.Cents()),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(accountID),
			},
		}
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"stripe_account_id": accountID,
		"marketplace":       marketplace,
		"subtotal_cents":    subtotal.Cents(),
		"item_count":        len(input.Items),
	})
	sess, err := s.gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		s.logg.Error(ctx, "checkout.session.create_failed", err)
		return nil, stripeclient.MapError(err, "failed to create checkout session")
	}
	s.metrics.CheckoutCreated(marketplace)
	s.logg.Info(s.logg.WithSessionID(ctx, sess.ID), "checkout.session.created")
	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

func (s *Service) validateSession(input SessionInput) (money.Money, error) {
	if len(input.Items) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	if err := s.validate.Var(strings.TrimSpace(input.CustomerEmail), "required,email"); err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "a valid customer email is required")
	}

	var subtotal money.Money
	for i, item := range input.Items {
		details := map[string]any{"index": i}
		if strings.TrimSpace(item.Name) == "" {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "item name is required").WithDetails(details)
		}
		if !item.Price.IsPositive() {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "item price must be greater than zero").WithDetails(details)
		}
		if item.Quantity < 1 {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be at least 1").WithDetails(details)
		}
		subtotal = subtotal.Add(item.Price.Mul(item.Quantity))
	}
	return subtotal, nil
}

func (s *Service) lineItem(item Item) *stripe.CheckoutSessionLineItemParams {
	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(strings.TrimSpace(item.Name)),
	}
	if d := strings.TrimSpace(item.Description); d != "" {
		product.Description = stripe.String(d)
	}
	if img := strings.TrimSpace(item.Image); img != "" {
		product.Images = stripe.StringSlice([]string{img})
	}
	if id := strings.TrimSpace(item.ID); id != "" {
		product.Metadata = map[string]string{MetadataProductID: id}
	}

	return &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:    stripe.String(s.opts.Currency),
			UnitAmount:  stripe.Int64(item.Price.Cents()),
			ProductData: product,
		},
		Quantity: stripe.Int64(item.Quantity),
	}
}

func shippingOption(rate *shipping.Rate, fallbackCurrency string) *stripe.CheckoutSessionShippingOptionParams {
	currency := rate.Currency
	if currency == "" {
		currency = fallbackCurrency
	}
	data := &stripe.CheckoutSessionShippingOptionShippingRateDataParams{
		DisplayName: stripe.String(rate.DisplayName),
		Type:        stripe.String(string(stripe.ShippingRateTypeFixedAmount)),
		FixedAmount: &stripe.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
			Amount:   stripe.Int64(rate.Amount.Cents()),
			Currency: stripe.String(currency),
		},
	}
	if est := rate.DeliveryEstimate; est != nil && est.Unit != "" {
		data.DeliveryEstimate = &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateParams{}
		if est.Min > 0 {
			data.DeliveryEstimate.Minimum = &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateMinimumParams{
				Unit:  stripe.String(est.Unit),
				Value: stripe.Int64(est.Min),
			}
		}
		if est.Max > 0 {
			data.DeliveryEstimate.Maximum = &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateMaximumParams{
				Unit:  stripe.String(est.Unit),
				Value: stripe.Int64(est.Max),
			}
		}
	}
	return &stripe.CheckoutSessionShippingOptionParams{ShippingRateData: data}
}

func (s *Service) successURL(override string) string {
	if u := strings.TrimSpace(override); u != "" {
		return u
	}
	return s.opts.FrontendURL + "/order-confirmation?session_id=" + sessionPlaceholder
}

func (s *Service) cancelURL(override string) string {
	if u := strings.TrimSpace(override); u != "" {
		return u
	}
	return s.opts.FrontendURL + "/cart"
}

// SessionDetails is the read view of a checkout session.
type SessionDetails struct {
	ID              string            `json:"id"`
	Status          string            `json:"status"`
	PaymentStatus   string            `json:"payment_status"`
	AmountSubtotal  money.Money       `json:"amount_subtotal"`
	AmountTotal     money.Money       `json:"amount_total"`
	Currency        string            `json:"currency"`
	CustomerEmail   string            `json:"customer_email,omitempty"`
	PaymentIntentID string            `json:"payment_intent_id,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

func (s *Service) GetCheckoutSession(ctx context.Context, id string) (*SessionDetails, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	sess, err := s.gateway.GetCheckoutSession(ctx, id)
	if err != nil {
		return nil, stripeclient.MapError(err, "failed to retrieve checkout session")
	}

	out := &SessionDetails{
		ID:             sess.ID,
		Status:         string(sess.Status),
		PaymentStatus:  string(sess.PaymentStatus),
		AmountSubtotal: money.FromCents(sess.AmountSubtotal),
		AmountTotal:    money.FromCents(sess.AmountTotal),
		Currency:       string(sess.Currency),
		CustomerEmail:  SessionEmail(sess),
		Metadata:       sess.Metadata,
	}
	if sess.PaymentIntent != nil {
		out.PaymentIntentID = sess.PaymentIntent.ID
	}
	return out, nil
}

// SessionEmail prefers the email the shopper typed on the hosted page.
func SessionEmail(sess *stripe.CheckoutSession) string {
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		return sess.CustomerDetails.Email
	}
	if sess.CustomerEmail != "" {
		return sess.CustomerEmail
	}
	return sess.Metadata[MetadataCustomerEmail]
}
