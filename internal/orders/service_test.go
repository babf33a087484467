package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/db/dbtest"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/enums"
	pkgerrors "github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/errors"
)

type stubGateway struct {
	sessions map[string]*stripe.CheckoutSession
	byIntent map[string]string
	getCalls int
}

func (s *stubGateway) GetCheckoutSession(_ context.Context, id string) (*stripe.CheckoutSession, error) {
	s.getCalls++
	sess, ok := s.sessions[id]
	if !ok {
		return nil, &stripe.Error{Code: stripe.ErrorCodeResourceMissing, Msg: "No such checkout session"}
	}
	return sess, nil
}

func (s *stubGateway) FindCheckoutSessionByPaymentIntent(_ context.Context, piID string) (*stripe.CheckoutSession, error) {
	id, ok := s.byIntent[piID]
	if !ok {
		return nil, nil
	}
	return &stripe.CheckoutSession{ID: id}, nil
}

func paidSession(id, piID string) *stripe.CheckoutSession {
	return &stripe.CheckoutSession{
		ID:             id,
		PaymentStatus:  stripe.CheckoutSessionPaymentStatusPaid,
		AmountSubtotal: 5500,
		AmountTotal:    5500,
		Currency:       stripe.CurrencyUSD,
		CustomerEmail:  "buyer@example.com",
		Metadata:       map[string]string{"user_id": "user_1", "connected_account_id": "acct_1Seller"},
		ShippingCost:   &stripe.CheckoutSessionShippingCost{AmountTotal: 0},
		PaymentIntent: &stripe.PaymentIntent{
			ID: piID,
			Shipping: &stripe.ShippingDetails{
				Name:    "Ada Buyer",
				Address: &stripe.Address{Line1: "1 Main St", City: "Portland", State: "OR", PostalCode: "97201", Country: "US"},
			},
		},
		LineItems: &stripe.LineItemList{Data: []*stripe.LineItem{
			{
				Description:    "Harbor at Dusk",
				Quantity:       1,
				AmountSubtotal: 2000,
				Price: &stripe.Price{UnitAmount: 2000, Product: &stripe.Product{
					Name: "Harbor at Dusk", Images: []string{"harbor.jpg"}, Metadata: map[string]string{"product_id": "p1"},
				}},
			},
			{
				Description:    "Lilacs",
				Quantity:       1,
				AmountSubtotal: 3500,
				Price:          &stripe.Price{UnitAmount: 3500},
			},
		}},
	}
}

func newTestService(t *testing.T, gw *stubGateway) Service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.Open(t)), gw, nil, nil)
	require.NoError(t, err)
	return svc
}

func TestConfirmCheckoutSessionCreatesOnce(t *testing.T) {
	gw := &stubGateway{sessions: map[string]*stripe.CheckoutSession{"cs_1": paidSession("cs_1", "pi_1")}}
	svc := newTestService(t, gw)
	ctx := context.Background()

	first, err := svc.ConfirmCheckoutSession(ctx, ConfirmInput{SessionID: "cs_1"})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, enums.OrderSourceRedirect, first.Order.Source)
	assert.Equal(t, "55.00", first.Order.Total.String())
	require.Len(t, first.Order.Items, 2)
	assert.Equal(t, "p1", first.Order.Items[0].ProductID)
	assert.Equal(t, "harbor.jpg", first.Order.Items[0].Image)
	require.NotNil(t, first.Order.ShippingAddress)
	assert.Equal(t, "Portland", first.Order.ShippingAddress.City)
	require.NotNil(t, first.Order.UserID)
	assert.Equal(t, "user_1", *first.Order.UserID)

	second, err := svc.ConfirmCheckoutSession(ctx, ConfirmInput{SessionID: "cs_1"})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Order.ID, second.Order.ID)
}

func TestConfirmCheckoutSessionRequiresPayment(t *testing.T) {
	sess := paidSession("cs_unpaid", "pi_2")
	sess.PaymentStatus = stripe.CheckoutSessionPaymentStatusUnpaid
	svc := newTestService(t, &stubGateway{sessions: map[string]*stripe.CheckoutSession{"cs_unpaid": sess}})

	_, err := svc.ConfirmCheckoutSession(context.Background(), ConfirmInput{SessionID: "cs_unpaid"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPaymentIncomplete))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestConfirmCheckoutSessionUnknownSession(t *testing.T) {
	svc := newTestService(t, &stubGateway{sessions: map[string]*stripe.CheckoutSession{}})

	_, err := svc.ConfirmCheckoutSession(context.Background(), ConfirmInput{SessionID: "cs_missing"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.ConfirmCheckoutSession(context.Background(), ConfirmInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestWebhookFirstThenRedirect(t *testing.T) {
	gw := &stubGateway{
		sessions: map[string]*stripe.CheckoutSession{"cs_1": paidSession("cs_1", "pi_1")},
		byIntent: map[string]string{"pi_1": "cs_1"},
	}
	svc := newTestService(t, gw)
	ctx := context.Background()

	fromWebhook, err := svc.RecordPaymentIntent(ctx, &stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusSucceeded})
	require.NoError(t, err)
	assert.True(t, fromWebhook.Created)
	assert.Equal(t, enums.OrderSourceWebhook, fromWebhook.Order.Source)
	assert.Equal(t, "cs_1", fromWebhook.Order.PaymentSessionID)

	fromRedirect, err := svc.ConfirmCheckoutSession(ctx, ConfirmInput{SessionID: "cs_1"})
	require.NoError(t, err)
	assert.False(t, fromRedirect.Created)
	assert.Equal(t, fromWebhook.Order.ID, fromRedirect.Order.ID)
}

func TestRecordPaymentIntentWithoutSession(t *testing.T) {
	svc := newTestService(t, &stubGateway{})
	pi := &stripe.PaymentIntent{
		ID:           "pi_bare",
		Amount:       4200,
		Currency:     stripe.CurrencyUSD,
		ReceiptEmail: "buyer@example.com",
		TransferData: &stripe.PaymentIntentTransferData{Destination: &stripe.Account{ID: "acct_1Seller"}},
	}

	res, err := svc.RecordPaymentIntent(context.Background(), pi)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, "pi_bare", res.Order.PaymentSessionID)
	assert.Equal(t, enums.OrderSourceIntent, res.Order.Source)
	assert.Equal(t, "42.00", res.Order.Total.String())
	require.NotNil(t, res.Order.ConnectedAccountID)
	assert.Equal(t, "acct_1Seller", *res.Order.ConnectedAccountID)

	again, err := svc.RecordPaymentIntent(context.Background(), pi)
	require.NoError(t, err)
	assert.False(t, again.Created)
}

func TestOrderVisibility(t *testing.T) {
	gw := &stubGateway{sessions: map[string]*stripe.CheckoutSession{"cs_1": paidSession("cs_1", "pi_1")}}
	svc := newTestService(t, gw)
	ctx := context.Background()

	res, err := svc.ConfirmCheckoutSession(ctx, ConfirmInput{SessionID: "cs_1"})
	require.NoError(t, err)
	id := res.Order.ID

	_, err = svc.Get(ctx, id, Viewer{UserID: "user_1"})
	require.NoError(t, err)
	_, err = svc.Get(ctx, id, Viewer{UserID: "someone_else"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = svc.Get(ctx, id, Viewer{IsAdmin: true})
	require.NoError(t, err)

	_, err = svc.GetBySession(ctx, "cs_1", Viewer{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = svc.GetBySession(ctx, "cs_1", Viewer{UserID: "user_1"})
	require.NoError(t, err)

	page, err := svc.ListForUser(ctx, "user_1", ListInput{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	_, err = svc.ListForUser(ctx, "", ListInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestUpdateStatusTransitions(t *testing.T) {
	gw := &stubGateway{sessions: map[string]*stripe.CheckoutSession{"cs_1": paidSession("cs_1", "pi_1")}}
	svc := newTestService(t, gw)
	ctx := context.Background()

	res, err := svc.ConfirmCheckoutSession(ctx, ConfirmInput{SessionID: "cs_1"})
	require.NoError(t, err)
	id := res.Order.ID

	updated, err := svc.UpdateStatus(ctx, id, "processing")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, updated.Status)

	_, err = svc.UpdateStatus(ctx, id, "paid")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.UpdateStatus(ctx, id, "teleported")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	page, err := svc.ListAll(ctx, ListInput{Status: "processing"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}
