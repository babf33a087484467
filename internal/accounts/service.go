package accounts

import (
	"context"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/db"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/db/models"
	pkgerrors "github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/errors"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/logger"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/money"
	stripeclient "github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/stripe"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// Gateway is the Connect surface of the payment platform.
type Gateway interface {
	CreateAccount(ctx context.Context, params *stripe.AccountParams) (*stripe.Account, error)
	GetAccount(ctx context.Context, id string) (*stripe.Account, error)
	UpdateAccount(ctx context.Context, id string, params *stripe.AccountParams) (*stripe.Account, error)
	DeleteAccount(ctx context.Context, id string) (*stripe.Account, error)
	CreateAccountLink(ctx context.Context, params *stripe.AccountLinkParams) (*stripe.AccountLink, error)
	CreateLoginLink(ctx context.Context, accountID string) (*stripe.LoginLink, error)
	GetBalance(ctx context.Context, accountID string) (*stripe.Balance, error)
	ListTransfers(ctx context.Context, accountID string, limit int64) ([]*stripe.Transfer, error)
	ListPayouts(ctx context.Context, accountID string, limit int64) ([]*stripe.Payout, error)
}

// Options configures the accounts service.
type Options struct {
	FrontendURL        string
	DefaultCountry     string
	PlaceholderAccount string
	// AllowDelete is false in production.
	AllowDelete bool
}

// Service manages the artist's connected account.
type Service struct {
	gateway Gateway
	artists ArtistRepository
	opts    Options
	now     func() time.Time
	logg    *logger.Logger
}

func NewService(gateway Gateway, artists ArtistRepository, opts Options, logg *logger.Logger) (*Service, error) {
	if gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "connect gateway required")
	}
	if artists == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "artist repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	if opts.DefaultCountry == "" {
		opts.DefaultCountry = "US"
	}
	opts.FrontendURL = strings.TrimRight(opts.FrontendURL, "/")
	return &Service{gateway: gateway, artists: artists, opts: opts, now: time.Now, logg: logg}, nil
}

type CreateAccountInput struct {
	Email        string
	Country      string
	BusinessName string
}

// CreateAccount opens an express account with card payments and transfers
// requested, and records it locally.
func (s *Service) CreateAccount(ctx context.Context, input CreateAccountInput) (*Account, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	country := strings.ToUpper(strings.TrimSpace(input.Country))
	if country == "" {
		country = s.opts.DefaultCountry
	}

	params := &stripe.AccountParams{
		Type:    stripe.String(string(stripe.AccountTypeExpress)),
		Country: stripe.String(country),
		Email:   stripe.String(email),
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
			Transfers:    &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	if name := strings.TrimSpace(input.BusinessName); name != "" {
		params.BusinessProfile = &stripe.AccountBusinessProfileParams{Name: stripe.String(name)}
	}

	acct, err := s.gateway.CreateAccount(ctx, params)
	if err != nil {
		s.logg.Error(ctx, "connect.account.create_failed", err)
		return nil, stripeclient.MapError(err, "failed to create connected account")
	}
	ctx = s.logg.WithAccountID(ctx, acct.ID)
	if _, err := s.SyncFromStripe(ctx, acct); err != nil {
		s.logg.Error(ctx, "connect.account.sync_failed", err)
	}
	s.logg.Info(ctx, "connect.account.created")
	return accountView(acct), nil
}

type LinkInput struct {
	AccountID  string
	RefreshURL string
	ReturnURL  string
}

// CreateAccountLink returns a hosted onboarding link.
func (s *Service) CreateAccountLink(ctx context.Context, input LinkInput) (*Link, error) {
	accountID, err := s.requireAccount(input.AccountID)
	if err != nil {
		return nil, err
	}
	refresh := strings.TrimSpace(input.RefreshURL)
	if refresh == "" {
		refresh = s.opts.FrontendURL + "/admin/connect?refresh=true"
	}
	ret := strings.TrimSpace(input.ReturnURL)
	if ret == "" {
		ret = s.opts.FrontendURL + "/admin/connect?success=true"
	}

	link, err := s.gateway.CreateAccountLink(ctx, &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refresh),
		ReturnURL:  stripe.String(ret),
		Type:       stripe.String("account_onboarding"),
	})
	if err != nil {
		return nil, stripeclient.MapError(err, "failed to create account link")
	}
	out := &Link{URL: link.URL}
	if link.ExpiresAt > 0 {
		exp := time.Unix(link.ExpiresAt, 0).UTC()
		out.ExpiresAt = &exp
	}
	return out, nil
}

func (s *Service) GetAccount(ctx context.Context, id string) (*Account, error) {
	accountID, err := s.requireAccount(id)
	if err != nil {
		return nil, err
	}
	acct, err := s.gateway.GetAccount(ctx, accountID)
	if err != nil {
		return nil, stripeclient.MapError(err, "failed to retrieve account")
	}
	return accountView(acct), nil
}

// UpdateInput holds the fields an admin may change. Identity and banking
// details are only editable through hosted onboarding.
type UpdateInput struct {
	BusinessProfile     *BusinessProfile
	Metadata            map[string]string
	PayoutInterval      string
	StatementDescriptor string
}

var payoutIntervals = map[string]struct{}{
	"manual": {}, "daily": {}, "weekly": {}, "monthly": {},
}

func (s *Service) UpdateAccount(ctx context.Context, id string, input UpdateInput) (*Account, error) {
	accountID, err := s.requireAccount(id)
	if err != nil {
		return nil, err
	}

	params := &stripe.AccountParams{}
	changed := false
	if bp := input.BusinessProfile; bp != nil {
		profile := &stripe.AccountBusinessProfileParams{}
		if bp.Name != "" {
			profile.Name = stripe.String(bp.Name)
		}
		if bp.URL != "" {
			profile.URL = stripe.String(bp.URL)
		}
		if bp.SupportEmail != "" {
			profile.SupportEmail = stripe.String(bp.SupportEmail)
		}
		if bp.ProductDescription != "" {
			profile.ProductDescription = stripe.String(bp.ProductDescription)
		}
		params.BusinessProfile = profile
		changed = true
	}
	if len(input.Metadata) > 0 {
		for k, v := range input.Metadata {
			params.AddMetadata(k, v)
		}
		changed = true
	}
	if interval := strings.TrimSpace(input.PayoutInterval); interval != "" || input.StatementDescriptor != "" {
		payouts := &stripe.AccountSettingsPayoutsParams{}
		if interval != "" {
			if _, ok := payoutIntervals[interval]; !ok {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payout interval")
			}
			payouts.Schedule = &stripe.AccountSettingsPayoutsScheduleParams{Interval: stripe.String(interval)}
		}
		if d := strings.TrimSpace(input.StatementDescriptor); d != "" {
			payouts.StatementDescriptor = stripe.String(d)
		}
		params.Settings = &stripe.AccountSettingsParams{Payouts: payouts}
		changed = true
	}
	if !changed {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no updatable fields supplied")
	}

	acct, err := s.gateway.UpdateAccount(ctx, accountID, params)
	if err != nil {
		return nil, stripeclient.MapError(err, "failed to update account")
	}
	return accountView(acct), nil
}

// DeleteAccount removes the connected account. Disabled in production.
func (s *Service) DeleteAccount(ctx context.Context, id string) error {
	if !s.opts.AllowDelete {
		return pkgerrors.New(pkgerrors.CodeForbidden, "account deletion is disabled in production")
	}
	accountID, err := s.requireAccount(id)
	if err != nil {
		return err
	}
	if _, err := s.gateway.DeleteAccount(ctx, accountID); err != nil {
		return stripeclient.MapError(err, "failed to delete account")
	}
	if err := s.artists.DeleteByAccountID(ctx, accountID); err != nil {
		s.logg.Error(s.logg.WithAccountID(ctx, accountID), "connect.artist.delete_failed", err)
	}
	s.logg.Info(s.logg.WithAccountID(ctx, accountID), "connect.account.deleted")
	return nil
}

func (s *Service) CreateLoginLink(ctx context.Context, id string) (*Link, error) {
	accountID, err := s.requireAccount(id)
	if err != nil {
		return nil, err
	}
	link, err := s.gateway.CreateLoginLink(ctx, accountID)
	if err != nil {
		return nil, stripeclient.MapError(err, "failed to create login link")
	}
	return &Link{URL: link.URL}, nil
}

func (s *Service) GetBalance(ctx context.Context, id string) (*Balance, error) {
	accountID, err := s.requireAccount(id)
	if err != nil {
		return nil, err
	}
	bal, err := s.gateway.GetBalance(ctx, accountID)
	if err != nil {
		return nil, stripeclient.MapError(err, "failed to retrieve balance")
	}
	return &Balance{Available: balanceAmounts(bal.Available), Pending: balanceAmounts(bal.Pending)}, nil
}

// ListTransfers returns transfers sent to the account, newest first.
func (s *Service) ListTransfers(ctx context.Context, id string, limit int) ([]Transfer, error) {
	accountID, err := s.requireAccount(id)
	if err != nil {
		return nil, err
	}
	rows, err := s.gateway.ListTransfers(ctx, accountID, clampLimit(limit))
	if err != nil {
		return nil, stripeclient.MapError(err, "failed to list transfers")
	}
	out := make([]Transfer, 0, len(rows))
	for _, t := range rows {
		out = append(out, Transfer{
			ID:          t.ID,
			Amount:      money.FromCents(t.Amount),
			Currency:    string(t.Currency),
			Description: t.Description,
			Reversed:    t.Reversed,
			Created:     time.Unix(t.Created, 0).UTC(),
		})
	}
	return out, nil
}

// ListPayouts returns payouts made by the account, newest first.
func (s *Service) ListPayouts(ctx context.Context, id string, limit int) ([]Payout, error) {
	accountID, err := s.requireAccount(id)
	if err != nil {
		return nil, err
	}
	rows, err := s.gateway.ListPayouts(ctx, accountID, clampLimit(limit))
	if err != nil {
		return nil, stripeclient.MapError(err, "failed to list payouts")
	}
	out := make([]Payout, 0, len(rows))
	for _, p := range rows {
		out = append(out, Payout{
			ID:             p.ID,
			Amount:         money.FromCents(p.Amount),
			Currency:       string(p.Currency),
			Status:         string(p.Status),
			ArrivalDate:    time.Unix(p.ArrivalDate, 0).UTC(),
			FailureMessage: p.FailureMessage,
		})
	}
	return out, nil
}

// SyncResult describes what changed when an account snapshot was stored.
type SyncResult struct {
	Artist          *models.Artist
	BecameOnboarded bool
	NewRequirements []string
}

// SyncFromStripe stores the account snapshot and reports transitions
// relative to the previous one.
func (s *Service) SyncFromStripe(ctx context.Context, acct *stripe.Account) (*SyncResult, error) {
	if acct == nil || strings.TrimSpace(acct.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account is required")
	}

	prev, err := s.artists.FindByAccountID(ctx, acct.ID)
	if err != nil && !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load artist")
	}

	now := s.now().UTC()
	next := &models.Artist{
		StripeAccountID:  acct.ID,
		ChargesEnabled:   acct.ChargesEnabled,
		PayoutsEnabled:   acct.PayoutsEnabled,
		DetailsSubmitted: acct.DetailsSubmitted,
		CurrentlyDue:     []string{},
		Onboarded:        IsAccountFullyOnboarded(acct),
		SyncedAt:         &now,
		UpdatedAt:        now,
	}
	if acct.Email != "" {
		next.Email = stripe.String(acct.Email)
	}
	if acct.Country != "" {
		next.Country = stripe.String(acct.Country)
	}
	if acct.BusinessProfile != nil && acct.BusinessProfile.Name != "" {
		next.BusinessName = stripe.String(acct.BusinessProfile.Name)
	}
	if req := acct.Requirements; req != nil {
		next.CurrentlyDue = nonNil(req.CurrentlyDue)
		if req.DisabledReason != "" {
			reason := string(req.DisabledReason)
			next.DisabledReason = &reason
		}
	}

	stored, err := s.artists.Upsert(ctx, next)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store artist")
	}

	result := &SyncResult{Artist: stored}
	var before []string
	if prev != nil {
		before = prev.CurrentlyDue
	}
	result.BecameOnboarded = next.Onboarded && (prev == nil || !prev.Onboarded)
	result.NewRequirements = added(before, next.CurrentlyDue)
	return result, nil
}

func (s *Service) requireAccount(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "account id is required").WithType("invalid_request_error")
	}
	if !stripeclient.IsRealAccount(id, s.opts.PlaceholderAccount) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "account id is not a connected account").WithType("invalid_request_error")
	}
	return id, nil
}

func clampLimit(limit int) int64 {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return int64(limit)
}

func added(before, after []string) []string {
	seen := make(map[string]struct{}, len(before))
	for _, r := range before {
		seen[r] = struct{}{}
	}
	var out []string
	for _, r := range after {
		if _, ok := seen[r]; !ok {
			out = append(out, r)
		}
	}
	return out
}
