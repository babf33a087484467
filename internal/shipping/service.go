package shipping

import (
	"context"
	"strings"

	"github.com/stripe/stripe-go/v84"
	pkgerrors "github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/errors"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/logger"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/money"
	stripeclient "github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/stripe"
)

// Gateway is the slice of the payment platform the rate lookup needs.
type Gateway interface {
	ListShippingRates(ctx context.Context, accountID string) ([]*stripe.ShippingRate, error)
	GetShippingRate(ctx context.Context, accountID, id string) (*stripe.ShippingRate, error)
	SetShippingRateActive(ctx context.Context, accountID, id string, active bool) (*stripe.ShippingRate, error)
}

// Service looks up the shipping rates configured on a connected account.
type Service struct {
	gateway     Gateway
	placeholder string
	threshold   money.Money
	logg        *logger.Logger
}

// Options configures a Service.
type Options struct {
	PlaceholderAccount string
	Threshold          money.Money
}

func NewService(gateway Gateway, opts Options, logg *logger.Logger) (*Service, error) {
	if gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shipping gateway required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		gateway:     gateway,
		placeholder: opts.PlaceholderAccount,
		threshold:   opts.Threshold,
		logg:        logg,
	}, nil
}

// Threshold returns the configured free-shipping threshold.
func (s *Service) Threshold() money.Money {
	return s.threshold
}

// GetCheckoutRates returns the active fixed-amount rates of a real connected
// account. A missing or placeholder account is a validation error; an
// account with no rates yields an empty, valid result.
func (s *Service) GetCheckoutRates(ctx context.Context, accountID string, orderTotal money.Money) (*RatesResult, error) {
	accountID = strings.TrimSpace(accountID)
	if !stripeclient.IsRealAccount(accountID, s.placeholder) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a connected account id is required to load shipping rates")
	}

	ctx = s.logg.WithAccountID(ctx, accountID)
	raw, err := s.gateway.ListShippingRates(ctx, accountID)
	if err != nil {
		s.logg.Error(ctx, "shipping.rates.load_failed", err)
		return nil, stripeclient.MapError(err, "failed to load shipping options")
	}

	result := &RatesResult{
		Rates:                    make([]Rate, 0, len(raw)),
		QualifiesForFreeShipping: QualifiesForFreeShipping(orderTotal, s.threshold),
		Threshold:                s.threshold,
	}
	for _, sr := range raw {
		rate, ok := fromStripe(sr)
		if !ok || !rate.Active {
			continue
		}
		result.Rates = append(result.Rates, rate)
	}
	return result, nil
}

// Resolve loads a single rate for checkout. Placeholder or empty accounts
// read the platform's own rates so direct charges still carry shipping.
func (s *Service) Resolve(ctx context.Context, accountID, rateID string) (*Rate, error) {
	rateID = strings.TrimSpace(rateID)
	if rateID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a shipping rate must be selected")
	}
	scope := ""
	if stripeclient.IsRealAccount(accountID, s.placeholder) {
		scope = accountID
	}

	sr, err := s.gateway.GetShippingRate(ctx, scope, rateID)
	if err != nil {
		mapped := stripeclient.MapError(err, "failed to load shipping rate")
		if pkgerrors.IsCode(mapped, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "selected shipping rate does not exist")
		}
		return nil, mapped
	}
	rate, ok := fromStripe(sr)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "selected shipping rate is not a fixed amount")
	}
	if !rate.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "selected shipping rate is no longer available")
	}
	return &rate, nil
}

// SetActive toggles a rate on the connected account.
func (s *Service) SetActive(ctx context.Context, accountID, rateID string, active bool) (*Rate, error) {
	accountID = strings.TrimSpace(accountID)
	if !stripeclient.IsRealAccount(accountID, s.placeholder) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a connected account id is required")
	}
	if strings.TrimSpace(rateID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping rate id is required")
	}

	sr, err := s.gateway.SetShippingRateActive(ctx, accountID, rateID, active)
	if err != nil {
		return nil, stripeclient.MapError(err, "failed to update shipping rate")
	}
	rate, ok := fromStripe(sr)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping rate is not a fixed amount")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"stripe_account_id": accountID,
		"shipping_rate_id":  rateID,
		"active":            active,
	}), "shipping.rate.updated")
	return &rate, nil
}
