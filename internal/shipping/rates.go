package shipping

import (
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/money"
)

// DeliveryEstimate is the carrier window in business days (or the unit
// configured on the rate).
type DeliveryEstimate struct {
	Min  int64  `json:"min"`
	Max  int64  `json:"max"`
	Unit string `json:"unit"`
}

// Rate is a fixed-amount shipping option offered at checkout.
type Rate struct {
	ID               string            `json:"id"`
	DisplayName      string            `json:"display_name"`
	Amount           money.Money       `json:"amount"`
	AmountCents      int64             `json:"amount_cents"`
	Currency         string            `json:"currency"`
	DeliveryEstimate *DeliveryEstimate `json:"delivery_estimate,omitempty"`
	Active           bool              `json:"active"`
}

// IsFree reports a zero-amount rate.
func (r Rate) IsFree() bool {
	return r.Amount == 0
}

// RatesResult is the checkout view of an account's rates.
type RatesResult struct {
	Rates                    []Rate      `json:"rates"`
	QualifiesForFreeShipping bool        `json:"qualifies_for_free_shipping"`
	Threshold                money.Money `json:"free_shipping_threshold"`
}

// QualifiesForFreeShipping is the threshold comparison shared by the cart
// quote and the rate lookup.
func QualifiesForFreeShipping(total, threshold money.Money) bool {
	return total.AtLeast(threshold)
}

// fromStripe maps a platform rate; ok is false for rates that are not
// fixed-amount and therefore cannot be priced up front.
func fromStripe(sr *stripe.ShippingRate) (Rate, bool) {
	if sr == nil || sr.FixedAmount == nil {
		return Rate{}, false
	}
	if sr.Type != "" && sr.Type != stripe.ShippingRateTypeFixedAmount {
		return Rate{}, false
	}

	rate := Rate{
		ID:          sr.ID,
		DisplayName: sr.DisplayName,
		Amount:      money.FromCents(sr.FixedAmount.Amount),
		AmountCents: sr.FixedAmount.Amount,
		Currency:    strings.ToLower(string(sr.FixedAmount.Currency)),
		Active:      sr.Active,
	}
	if est := sr.DeliveryEstimate; est != nil && (est.Minimum != nil || est.Maximum != nil) {
		rate.DeliveryEstimate = &DeliveryEstimate{}
		if est.Minimum != nil {
			rate.DeliveryEstimate.Min = est.Minimum.Value
			rate.DeliveryEstimate.Unit = string(est.Minimum.Unit)
		}
		if est.Maximum != nil {
			rate.DeliveryEstimate.Max = est.Maximum.Value
			if rate.DeliveryEstimate.Unit == "" {
				rate.DeliveryEstimate.Unit = string(est.Maximum.Unit)
			}
		}
	}
	return rate, true
}
