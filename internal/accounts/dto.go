package accounts

import (
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/money"
)

// IsAccountFullyOnboarded reports whether the account can take payments and
// receive payouts with nothing outstanding.
func IsAccountFullyOnboarded(acct *stripe.Account) bool {
	if acct == nil {
		return false
	}
	if !acct.ChargesEnabled || !acct.PayoutsEnabled || !acct.DetailsSubmitted {
		return false
	}
	return acct.Requirements == nil || len(acct.Requirements.CurrentlyDue) == 0
}

type Requirements struct {
	CurrentlyDue   []string `json:"currently_due"`
	PastDue        []string `json:"past_due"`
	EventuallyDue  []string `json:"eventually_due"`
	DisabledReason string   `json:"disabled_reason,omitempty"`
}

type BusinessProfile struct {
	Name               string `json:"name,omitempty"`
	URL                string `json:"url,omitempty"`
	SupportEmail       string `json:"support_email,omitempty"`
	ProductDescription string `json:"product_description,omitempty"`
}

// Account is the API view of a connected account.
type Account struct {
	ID               string            `json:"id"`
	Type             string            `json:"type"`
	Email            string            `json:"email,omitempty"`
	Country          string            `json:"country,omitempty"`
	ChargesEnabled   bool              `json:"charges_enabled"`
	PayoutsEnabled   bool              `json:"payouts_enabled"`
	DetailsSubmitted bool              `json:"details_submitted"`
	Onboarded        bool              `json:"onboarded"`
	Requirements     Requirements      `json:"requirements"`
	BusinessProfile  *BusinessProfile  `json:"business_profile,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	Created          time.Time         `json:"created"`
}

func accountView(acct *stripe.Account) *Account {
	out := &Account{
		ID:               acct.ID,
		Type:             string(acct.Type),
		Email:            acct.Email,
		Country:          acct.Country,
		ChargesEnabled:   acct.ChargesEnabled,
		PayoutsEnabled:   acct.PayoutsEnabled,
		DetailsSubmitted: acct.DetailsSubmitted,
		Onboarded:        IsAccountFullyOnboarded(acct),
		Requirements:     Requirements{CurrentlyDue: []string{}, PastDue: []string{}, EventuallyDue: []string{}},
		Metadata:         acct.Metadata,
	}
	if acct.Created > 0 {
		out.Created = time.Unix(acct.Created, 0).UTC()
	}
	if req := acct.Requirements; req != nil {
		out.Requirements.CurrentlyDue = nonNil(req.CurrentlyDue)
		out.Requirements.PastDue = nonNil(req.PastDue)
		out.Requirements.EventuallyDue = nonNil(req.EventuallyDue)
		out.Requirements.DisabledReason = string(req.DisabledReason)
	}
	if bp := acct.BusinessProfile; bp != nil {
		out.BusinessProfile = &BusinessProfile{
			Name:               bp.Name,
			URL:                bp.URL,
			SupportEmail:       bp.SupportEmail,
			ProductDescription: bp.ProductDescription,
		}
	}
	return out
}

type Link struct {
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type BalanceAmount struct {
	Amount   money.Money `json:"amount"`
	Currency string      `json:"currency"`
}

type Balance struct {
	Available []BalanceAmount `json:"available"`
	Pending   []BalanceAmount `json:"pending"`
}

type Transfer struct {
	ID          string      `json:"id"`
	Amount      money.Money `json:"amount"`
	Currency    string      `json:"currency"`
	Description string      `json:"description,omitempty"`
	Reversed    bool        `json:"reversed"`
	Created     time.Time   `json:"created"`
}

type Payout struct {
	ID             string      `json:"id"`
	Amount         money.Money `json:"amount"`
	Currency       string      `json:"currency"`
	Status         string      `json:"status"`
	ArrivalDate    time.Time   `json:"arrival_date"`
	FailureMessage string      `json:"failure_message,omitempty"`
}

func balanceAmounts(in []*stripe.BalanceAmount) []BalanceAmount {
	out := make([]BalanceAmount, 0, len(in))
	for _, a := range in {
		if a == nil {
			continue
		}
		out = append(out, BalanceAmount{Amount: money.FromCents(a.Amount), Currency: string(a.Currency)})
	}
	return out
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
