package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/accounts"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/notifications"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/orders"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/db/dbtest"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/db/models"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/enums"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/mailer"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/money"
)

type stubOrders struct {
	mu     sync.Mutex
	calls  []string
	result *orders.Result
	err    error
}

func (s *stubOrders) RecordPaymentIntent(_ context.Context, pi *stripe.PaymentIntent) (*orders.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, pi.ID)
	return s.result, s.err
}

type stubAccounts struct {
	result *accounts.SyncResult
	err    error
	synced []string
}

func (s *stubAccounts) SyncFromStripe(_ context.Context, acct *stripe.Account) (*accounts.SyncResult, error) {
	s.synced = append(s.synced, acct.ID)
	return s.result, s.err
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

type recordingNotifier struct {
	notices []notifications.Notice
}

func (n *recordingNotifier) Notify(_ context.Context, notice notifications.Notice) (*models.Notification, error) {
	n.notices = append(n.notices, notice)
	return &models.Notification{ID: uuid.New(), Recipient: notice.Recipient}, nil
}

type fixture struct {
	svc      *Service
	orders   *stubOrders
	accounts *stubAccounts
	mail     *recordingMailer
	notify   *recordingNotifier
	events   EventLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	uid := "user-1"
	f := &fixture{
		orders: &stubOrders{result: &orders.Result{
			Created: true,
			Order: &orders.OrderDTO{
				ID:               uuid.New(),
				UserID:           &uid,
				CustomerEmail:    "buyer@example.com",
				Items:            []models.OrderItem{{ProductID: "p1", Name: "Morning Fog", UnitPrice: money.FromCents(5500), Quantity: 1}},
				Subtotal:         money.FromCents(5500),
				Total:            money.FromCents(5500),
				Currency:         "usd",
				Status:           enums.OrderStatusPaid,
				PaymentSessionID: "cs_test_1",
				Source:           enums.OrderSourceWebhook,
			},
		}},
		accounts: &stubAccounts{},
		mail:     &recordingMailer{},
		notify:   &recordingNotifier{},
		events:   NewEventLog(dbtest.Open(t)),
	}
	svc, err := NewService(ServiceParams{
		Orders:          f.orders,
		Accounts:        f.accounts,
		Mailer:          f.mail,
		Notifications:   f.notify,
		Events:          f.events,
		SellerEmail:     "artist@example.com",
		SellerRecipient: "acct_artist",
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func newEvent(t *testing.T, id, eventType string, object map[string]any) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":      id,
		"object":  "event",
		"type":    eventType,
		"created": 1760000000,
		"data":    map[string]any{"object": object},
	})
	require.NoError(t, err)
	var event stripe.Event
	require.NoError(t, json.Unmarshal(raw, &event))
	return &event
}

func TestHandleEventPaymentSucceeded(t *testing.T) {
	f := newFixture(t)
	event := newEvent(t, "evt_paid", "payment_intent.succeeded", map[string]any{
		"id": "pi_1", "object": "payment_intent", "amount": 5500, "currency": "usd", "status": "succeeded",
	})

	require.NoError(t, f.svc.HandleEvent(context.Background(), event))

	assert.Equal(t, []string{"pi_1"}, f.orders.calls)
	require.Len(t, f.mail.sent, 2)
	assert.Equal(t, "buyer@example.com", f.mail.sent[0].To)
	assert.Equal(t, "artist@example.com", f.mail.sent[1].To)
	require.Len(t, f.notify.notices, 2)
	assert.Equal(t, "user-1", f.notify.notices[0].Recipient)
	assert.Equal(t, "acct_artist", f.notify.notices[1].Recipient)

	row, err := f.events.FindByEventID(context.Background(), "evt_paid")
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, row.Outcome)
	assert.Equal(t, string(KindPaymentSucceeded), row.Kind)
	require.NotNil(t, row.ObjectID)
	assert.Equal(t, "pi_1", *row.ObjectID)
}

func TestHandleEventEmailFailureDoesNotFailEvent(t *testing.T) {
	f := newFixture(t)
	f.mail.err = errors.New("sendgrid down")
	event := newEvent(t, "evt_paid", "payment_intent.succeeded", map[string]any{"id": "pi_1", "object": "payment_intent"})

	require.NoError(t, f.svc.HandleEvent(context.Background(), event))
	assert.Len(t, f.mail.sent, 2)
	assert.Len(t, f.notify.notices, 2)
}

func TestHandleEventOrderFailureIsReturned(t *testing.T) {
	f := newFixture(t)
	f.orders.result = nil
	f.orders.err = errors.New("db unavailable")
	event := newEvent(t, "evt_paid", "payment_intent.succeeded", map[string]any{"id": "pi_1", "object": "payment_intent"})

	err := f.svc.HandleEvent(context.Background(), event)
	require.Error(t, err)
	assert.Empty(t, f.mail.sent)

	row, err := f.events.FindByEventID(context.Background(), "evt_paid")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, row.Outcome)
	require.NotNil(t, row.Error)
	assert.Contains(t, *row.Error, "db unavailable")
}

func TestHandleEventRetryOverwritesOutcome(t *testing.T) {
	f := newFixture(t)
	f.orders.err = errors.New("db unavailable")
	event := newEvent(t, "evt_paid", "payment_intent.succeeded", map[string]any{"id": "pi_1", "object": "payment_intent"})
	require.Error(t, f.svc.HandleEvent(context.Background(), event))

	f.orders.err = nil
	require.NoError(t, f.svc.HandleEvent(context.Background(), event))

	row, err := f.events.FindByEventID(context.Background(), "evt_paid")
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, row.Outcome)
}

func TestHandleEventPaymentFailed(t *testing.T) {
	f := newFixture(t)
	event := newEvent(t, "evt_failed", "payment_intent.payment_failed", map[string]any{
		"id":            "pi_2",
		"object":        "payment_intent",
		"amount":        2000,
		"receipt_email": "buyer@example.com",
		"metadata":      map[string]any{"user_id": "user-9"},
		"last_payment_error": map[string]any{
			"type":    "card_error",
			"message": "Your card was declined.",
		},
	})

	require.NoError(t, f.svc.HandleEvent(context.Background(), event))

	assert.Empty(t, f.orders.calls)
	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "buyer@example.com", f.mail.sent[0].To)
	assert.Contains(t, f.mail.sent[0].Text, "Your card was declined.")
	require.Len(t, f.notify.notices, 1)
	assert.Equal(t, "user-9", f.notify.notices[0].Recipient)
	assert.Equal(t, enums.NotificationTypePaymentAlert, f.notify.notices[0].Type)
}

func TestHandleEventAccountUpdated(t *testing.T) {
	f := newFixture(t)
	f.accounts.result = &accounts.SyncResult{
		Artist:          &models.Artist{StripeAccountID: "acct_artist", Onboarded: true},
		BecameOnboarded: true,
	}
	event := newEvent(t, "evt_acct", "account.updated", map[string]any{"id": "acct_artist", "object": "account"})

	require.NoError(t, f.svc.HandleEvent(context.Background(), event))

	assert.Equal(t, []string{"acct_artist"}, f.accounts.synced)
	require.Len(t, f.notify.notices, 1)
	assert.Equal(t, enums.NotificationTypeAccountAlert, f.notify.notices[0].Type)
	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "Your payout account is ready", f.mail.sent[0].Subject)
}

func TestHandleEventAccountUpdatedWithoutChangeIsQuiet(t *testing.T) {
	f := newFixture(t)
	f.accounts.result = &accounts.SyncResult{Artist: &models.Artist{StripeAccountID: "acct_artist"}}
	event := newEvent(t, "evt_acct", "account.updated", map[string]any{"id": "acct_artist", "object": "account"})

	require.NoError(t, f.svc.HandleEvent(context.Background(), event))
	assert.Empty(t, f.notify.notices)
	assert.Empty(t, f.mail.sent)
}

func TestHandleEventLogOnlyKinds(t *testing.T) {
	cases := map[string]string{
		"checkout.session.completed": OutcomeIgnored,
		"payout.paid":                OutcomeProcessed,
		"customer.created":           OutcomeIgnored,
	}
	for eventType, outcome := range cases {
		t.Run(eventType, func(t *testing.T) {
			f := newFixture(t)
			event := newEvent(t, "evt_"+eventType, eventType, map[string]any{"id": "obj_1"})

			require.NoError(t, f.svc.HandleEvent(context.Background(), event))
			assert.Empty(t, f.orders.calls)
			assert.Empty(t, f.mail.sent)

			row, err := f.events.FindByEventID(context.Background(), event.ID)
			require.NoError(t, err)
			assert.Equal(t, outcome, row.Outcome)
		})
	}
}

func TestParseEventKind(t *testing.T) {
	assert.Equal(t, KindPaymentSucceeded, ParseEventKind("payment_intent.succeeded"))
	assert.Equal(t, KindAccountDeauthorized, ParseEventKind("account.application.deauthorized"))
	assert.Equal(t, KindPayoutFailed, ParseEventKind("payout.failed"))
	assert.Equal(t, KindUnknown, ParseEventKind("invoice.paid"))
	assert.Equal(t, KindUnknown, ParseEventKind(""))
}
