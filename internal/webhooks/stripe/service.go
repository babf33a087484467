package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/accounts"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/checkout"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/notifications"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/orders"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/db/models"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/enums"
	pkgerrors "github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/errors"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/logger"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/mailer"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/metrics"
	"go.uber.org/multierr"
)

type orderRecorder interface {
	RecordPaymentIntent(ctx context.Context, pi *stripe.PaymentIntent) (*orders.Result, error)
}

type accountSyncer interface {
	SyncFromStripe(ctx context.Context, acct *stripe.Account) (*accounts.SyncResult, error)
}

type notifier interface {
	Notify(ctx context.Context, notice notifications.Notice) (*models.Notification, error)
}

// ServiceParams wires the webhook service.
type ServiceParams struct {
	Orders        orderRecorder
	Accounts      accountSyncer
	Mailer        mailer.Mailer
	Notifications notifier
	Events        EventLog
	// SellerEmail receives new-order and account emails.
	SellerEmail string
	// SellerRecipient is the notification inbox of the artist.
	SellerRecipient string
	Metrics         *metrics.Storefront
	Logger          *logger.Logger
}

// Service runs the side effects of verified payment events.
type Service struct {
	orders          orderRecorder
	accounts        accountSyncer
	mailer          mailer.Mailer
	notify          notifier
	events          EventLog
	sellerEmail     string
	sellerRecipient string
	metrics         *metrics.Storefront
	logg            *logger.Logger
	now             func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order recorder required")
	}
	if params.Accounts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "account syncer required")
	}
	if params.Mailer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "mailer required")
	}
	if params.Notifications == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifications required")
	}
	if params.Events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event log required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		orders:          params.Orders,
		accounts:        params.Accounts,
		mailer:          params.Mailer,
		notify:          params.Notifications,
		events:          params.Events,
		sellerEmail:     strings.TrimSpace(params.SellerEmail),
		sellerRecipient: strings.TrimSpace(params.SellerRecipient),
		metrics:         params.Metrics,
		logg:            logg,
		now:             time.Now,
	}, nil
}

// HandleEvent dispatches a verified event. The returned error covers the
// core effect only (order write, account sync); email, notification and
// event-log failures are logged and never fail the event.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	started := s.now()
	kind := ParseEventKind(string(event.Type))
	ctx = s.logg.WithEventID(ctx, event.ID)
	ctx = s.logg.WithFields(ctx, map[string]any{"event_type": string(event.Type), "event_kind": kind.String()})
	if event.Account != "" {
		ctx = s.logg.WithAccountID(ctx, event.Account)
	}

	var (
		outcome = OutcomeProcessed
		core    error
		fx      sideEffects
	)
	switch kind {
	case KindPaymentSucceeded:
		core = s.paymentSucceeded(ctx, event, &fx)
	case KindPaymentFailed:
		core = s.paymentFailed(ctx, event, &fx)
	case KindAccountUpdated:
		core = s.accountUpdated(ctx, event, &fx)
	case KindCheckoutCompleted:
		// Orders come from payment_intent.succeeded and the redirect.
		s.logg.Info(s.logg.WithField(ctx, "object_id", event.GetObjectValue("id")), "webhook.checkout_completed")
		outcome = OutcomeIgnored
	case KindAccountDeauthorized, KindTransferCreated, KindPayoutCreated, KindPayoutPaid, KindPayoutFailed:
		s.logg.Info(s.logg.WithField(ctx, "object_id", event.GetObjectValue("id")), "webhook.logged")
	case KindUnknown:
		s.logg.Warn(ctx, "webhook.unhandled_type")
		outcome = OutcomeIgnored
	}
	if core != nil {
		outcome = OutcomeFailed
	}

	fx.add(s.record(ctx, event, kind, outcome, core))
	if fx.err != nil {
		s.logg.Error(ctx, "webhook.side_effects_failed", fx.err)
	}
	s.metrics.WebhookEvent(kind.String(), outcome, s.now().Sub(started))
	return core
}

func (s *Service) paymentSucceeded(ctx context.Context, event *stripe.Event, fx *sideEffects) error {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
	}
	ctx = s.logg.WithField(ctx, "payment_intent_id", pi.ID)

	res, err := s.orders.RecordPaymentIntent(ctx, &pi)
	if err != nil {
		return err
	}
	order := res.Order
	ctx = s.logg.WithFields(ctx, map[string]any{"order_id": order.ID.String(), "order_created": res.Created})
	s.logg.Info(ctx, "webhook.payment_succeeded")

	if order.CustomerEmail != "" {
		fx.add(s.mailer.Send(ctx, customerConfirmationEmail(order)))
	}
	if s.sellerEmail != "" {
		fx.add(s.mailer.Send(ctx, sellerOrderEmail(s.sellerEmail, order)))
	}
	if order.UserID != nil {
		fx.add(s.send(ctx, notifications.Notice{
			Recipient: *order.UserID,
			Type:      enums.NotificationTypeOrderAlert,
			Title:     "Order confirmed",
			Message:   fmt.Sprintf("Your order #%s for $%s is confirmed.", shortID(order.ID.String()), order.Total),
			Link:      "/orders/" + order.ID.String(),
		}))
	}
	if s.sellerRecipient != "" {
		fx.add(s.send(ctx, notifications.Notice{
			Recipient: s.sellerRecipient,
			Type:      enums.NotificationTypeOrderAlert,
			Title:     "New order",
			Message:   fmt.Sprintf("%s placed order #%s for $%s.", order.CustomerEmail, shortID(order.ID.String()), order.Total),
			Link:      "/admin/orders/" + order.ID.String(),
		}))
	}
	return nil
}

func (s *Service) paymentFailed(ctx context.Context, event *stripe.Event, fx *sideEffects) error {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"payment_intent_id": pi.ID, "reason": failureReason(&pi)})
	s.logg.Warn(ctx, "webhook.payment_failed")

	email := pi.ReceiptEmail
	if email == "" {
		email = pi.Metadata[checkout.MetadataCustomerEmail]
	}
	if email != "" {
		fx.add(s.mailer.Send(ctx, paymentFailedEmail(email, &pi)))
	}
	if uid := strings.TrimSpace(pi.Metadata[checkout.MetadataUserID]); uid != "" {
		fx.add(s.send(ctx, notifications.Notice{
			Recipient: uid,
			Type:      enums.NotificationTypePaymentAlert,
			Title:     "Payment failed",
			Message:   "Your payment could not be processed: " + failureReason(&pi),
			Link:      "/cart",
		}))
	}
	return nil
}

func (s *Service) accountUpdated(ctx context.Context, event *stripe.Event, fx *sideEffects) error {
	var acct stripe.Account
	if err := json.Unmarshal(event.Data.Raw, &acct); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode account")
	}
	ctx = s.logg.WithAccountID(ctx, acct.ID)

	res, err := s.accounts.SyncFromStripe(ctx, &acct)
	if err != nil {
		return err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"onboarded":        res.Artist.Onboarded,
		"became_onboarded": res.BecameOnboarded,
		"new_requirements": len(res.NewRequirements),
	}), "webhook.account_synced")

	if !res.BecameOnboarded && len(res.NewRequirements) == 0 {
		return nil
	}

	notice := notifications.Notice{
		Recipient: acct.ID,
		Type:      enums.NotificationTypeAccountAlert,
		Link:      "/admin/connect",
	}
	if res.BecameOnboarded {
		notice.Title = "Payout account ready"
		notice.Message = "Card payments and payouts are now enabled."
	} else {
		notice.Title = "Payout account needs attention"
		notice.Message = "New information is required: " + strings.Join(res.NewRequirements, ", ")
	}
	if s.sellerRecipient != "" {
		notice.Recipient = s.sellerRecipient
	}
	fx.add(s.send(ctx, notice))

	to := s.sellerEmail
	if to == "" {
		to = acct.Email
	}
	if to != "" {
		fx.add(s.mailer.Send(ctx, accountStatusEmail(to, acct.ID, res.BecameOnboarded, res.NewRequirements)))
	}
	return nil
}

// sideEffects collects failures of best-effort work such as emails.
type sideEffects struct {
	err error
}

func (fx *sideEffects) add(err error) {
	fx.err = multierr.Append(fx.err, err)
}

func (s *Service) send(ctx context.Context, notice notifications.Notice) error {
	_, err := s.notify.Notify(ctx, notice)
	return err
}

func (s *Service) record(ctx context.Context, event *stripe.Event, kind EventKind, outcome string, core error) error {
	now := s.now().UTC()
	row := &models.WebhookEvent{
		EventID:     event.ID,
		Type:        string(event.Type),
		Kind:        kind.String(),
		Outcome:     outcome,
		ReceivedAt:  now,
		ProcessedAt: &now,
	}
	if event.Created > 0 {
		row.ReceivedAt = time.Unix(event.Created, 0).UTC()
	}
	if event.Account != "" {
		acct := event.Account
		row.AccountID = &acct
	}
	if id := event.GetObjectValue("id"); id != "" {
		row.ObjectID = &id
	}
	if core != nil {
		msg := core.Error()
		row.Error = &msg
	}
	if err := s.events.Record(ctx, row); err != nil {
		return fmt.Errorf("record webhook event: %w", err)
	}
	return nil
}
