package shipping

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	pkgerrors "github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/errors"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/money"
)

type stubGateway struct {
	rates    []*stripe.ShippingRate
	listErr  error
	listed   []string
	getScope string
	getErr   error
}

func (s *stubGateway) ListShippingRates(_ context.Context, accountID string) ([]*stripe.ShippingRate, error) {
	s.listed = append(s.listed, accountID)
	return s.rates, s.listErr
}

func (s *stubGateway) GetShippingRate(_ context.Context, accountID, id string) (*stripe.ShippingRate, error) {
	s.getScope = accountID
	if s.getErr != nil {
		return nil, s.getErr
	}
	for _, r := range s.rates {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, &stripe.Error{Code: stripe.ErrorCodeResourceMissing, Msg: "No such shipping rate"}
}

func (s *stubGateway) SetShippingRateActive(_ context.Context, _ string, id string, active bool) (*stripe.ShippingRate, error) {
	for _, r := range s.rates {
		if r.ID == id {
			r.Active = active
			return r, nil
		}
	}
	return nil, &stripe.Error{Code: stripe.ErrorCodeResourceMissing}
}

func fixedRate(id, name string, cents int64, active bool) *stripe.ShippingRate {
	return &stripe.ShippingRate{
		ID:          id,
		DisplayName: name,
		Active:      active,
		Type:        stripe.ShippingRateTypeFixedAmount,
		FixedAmount: &stripe.ShippingRateFixedAmount{Amount: cents, Currency: stripe.CurrencyUSD},
		DeliveryEstimate: &stripe.ShippingRateDeliveryEstimate{
			Minimum: &stripe.ShippingRateDeliveryEstimateMinimum{Unit: "business_day", Value: 3},
			Maximum: &stripe.ShippingRateDeliveryEstimateMaximum{Unit: "business_day", Value: 5},
		},
	}
}

func newService(t *testing.T, gw Gateway) *Service {
	t.Helper()
	svc, err := NewService(gw, Options{PlaceholderAccount: "acct_placeholder", Threshold: money.FromCents(5000)}, nil)
	require.NoError(t, err)
	return svc
}

func TestGetCheckoutRatesRequiresRealAccount(t *testing.T) {
	gw := &stubGateway{}
	svc := newService(t, gw)

	for _, id := range []string{"", "  ", "acct_placeholder", "not-an-account"} {
		_, err := svc.GetCheckoutRates(context.Background(), id, money.FromCents(1000))
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "account %q", id)
	}
	assert.Empty(t, gw.listed)
}

func TestGetCheckoutRatesEmptyListIsValid(t *testing.T) {
	svc := newService(t, &stubGateway{})

	res, err := svc.GetCheckoutRates(context.Background(), "acct_123", money.FromCents(1000))
	require.NoError(t, err)
	assert.NotNil(t, res.Rates)
	assert.Empty(t, res.Rates)
}

func TestGetCheckoutRatesMapsActiveFixedRates(t *testing.T) {
	gw := &stubGateway{rates: []*stripe.ShippingRate{
		fixedRate("shr_std", "Standard", 799, true),
		fixedRate("shr_old", "Retired", 500, false),
		{ID: "shr_bad", Active: true},
	}}
	svc := newService(t, gw)

	res, err := svc.GetCheckoutRates(context.Background(), "acct_123", money.FromCents(1000))
	require.NoError(t, err)
	require.Len(t, res.Rates, 1)
	rate := res.Rates[0]
	assert.Equal(t, "shr_std", rate.ID)
	assert.Equal(t, int64(799), rate.AmountCents)
	assert.Equal(t, "usd", rate.Currency)
	require.NotNil(t, rate.DeliveryEstimate)
	assert.Equal(t, int64(3), rate.DeliveryEstimate.Min)
	assert.Equal(t, int64(5), rate.DeliveryEstimate.Max)
	assert.Equal(t, "business_day", rate.DeliveryEstimate.Unit)
	assert.Equal(t, []string{"acct_123"}, gw.listed)
}

func TestGetCheckoutRatesSurfacesPlatformFailure(t *testing.T) {
	svc := newService(t, &stubGateway{listErr: errors.New("connection reset")})

	res, err := svc.GetCheckoutRates(context.Background(), "acct_123", money.FromCents(1000))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePayment))
}

func TestFreeShippingBoundary(t *testing.T) {
	threshold := money.FromCents(5000)
	cases := []struct {
		total string
		want  bool
	}{
		{"49.99", false},
		{"50.00", true},
		{"50.01", true},
	}
	for _, tc := range cases {
		total, err := money.Parse(tc.total)
		require.NoError(t, err)
		assert.Equal(t, tc.want, QualifiesForFreeShipping(total, threshold), tc.total)
	}

	svc := newService(t, &stubGateway{})
	res, err := svc.GetCheckoutRates(context.Background(), "acct_123", money.FromCents(5000))
	require.NoError(t, err)
	assert.True(t, res.QualifiesForFreeShipping)
}

func TestResolveScopesPlaceholderToPlatform(t *testing.T) {
	gw := &stubGateway{rates: []*stripe.ShippingRate{fixedRate("shr_std", "Standard", 799, true)}}
	svc := newService(t, gw)

	rate, err := svc.Resolve(context.Background(), "acct_placeholder", "shr_std")
	require.NoError(t, err)
	assert.Equal(t, int64(799), rate.AmountCents)
	assert.Equal(t, "", gw.getScope)

	_, err = svc.Resolve(context.Background(), "acct_123", "shr_std")
	require.NoError(t, err)
	assert.Equal(t, "acct_123", gw.getScope)
}

func TestResolveRejectsMissingOrInactive(t *testing.T) {
	gw := &stubGateway{rates: []*stripe.ShippingRate{fixedRate("shr_old", "Retired", 500, false)}}
	svc := newService(t, gw)

	_, err := svc.Resolve(context.Background(), "acct_123", "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Resolve(context.Background(), "acct_123", "shr_missing")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Resolve(context.Background(), "acct_123", "shr_old")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSetActive(t *testing.T) {
	gw := &stubGateway{rates: []*stripe.ShippingRate{fixedRate("shr_std", "Standard", 799, true)}}
	svc := newService(t, gw)

	rate, err := svc.SetActive(context.Background(), "acct_123", "shr_std", false)
	require.NoError(t, err)
	assert.False(t, rate.Active)

	_, err = svc.SetActive(context.Background(), "acct_placeholder", "shr_std", true)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
