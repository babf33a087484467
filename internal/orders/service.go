package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/db"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/db/models"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/enums"
	pkgerrors "github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/errors"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/logger"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/metrics"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/pagination"
	stripeclient "github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/stripe"
)

// ErrPaymentIncomplete marks a session whose payment has not been collected.
var ErrPaymentIncomplete = errors.New("payment not completed")

// Gateway is the payment platform surface the order writers need.
type Gateway interface {
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	FindCheckoutSessionByPaymentIntent(ctx context.Context, paymentIntentID string) (*stripe.CheckoutSession, error)
}

// Viewer identifies who is reading an order.
type Viewer struct {
	UserID  string
	IsAdmin bool
}

// ConfirmInput is the redirect-back confirmation request.
type ConfirmInput struct {
	SessionID     string
	UserID        string
	CustomerEmail string
}

// ListInput pages through orders.
type ListInput struct {
	Status string
	Limit  int
	Cursor string
}

// Service owns order creation and reads. Both writers funnel into
// Repository.CreateIfAbsent keyed by the payment session id.
type Service interface {
	ConfirmCheckoutSession(ctx context.Context, input ConfirmInput) (*Result, error)
	RecordPaymentIntent(ctx context.Context, pi *stripe.PaymentIntent) (*Result, error)
	Get(ctx context.Context, id uuid.UUID, viewer Viewer) (*OrderDTO, error)
	GetBySession(ctx context.Context, sessionID string, viewer Viewer) (*OrderDTO, error)
	ListForUser(ctx context.Context, userID string, input ListInput) (*pagination.Page[OrderDTO], error)
	ListAll(ctx context.Context, input ListInput) (*pagination.Page[OrderDTO], error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*OrderDTO, error)
}

type service struct {
	repo    Repository
	gateway Gateway
	metrics *metrics.Storefront
	logg    *logger.Logger
}

// NewService wires the orders service.
func NewService(repo Repository, gateway Gateway, m *metrics.Storefront, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders gateway required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, gateway: gateway, metrics: m, logg: logg}, nil
}

// ConfirmCheckoutSession verifies payment with the platform and creates the
// order for the session if no writer has yet.
func (s *service) ConfirmCheckoutSession(ctx context.Context, input ConfirmInput) (*Result, error) {
	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	ctx = s.logg.WithSessionID(ctx, sessionID)

	sess, err := s.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, stripeclient.MapError(err, "failed to verify checkout session")
	}
	if !sessionPaid(sess) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrPaymentIncomplete, "payment has not been completed").
			WithDetails(map[string]any{"session_id": sessionID, "payment_status": string(sess.PaymentStatus)})
	}

	order := orderFromSession(sess, enums.OrderSourceRedirect)
	if uid := strings.TrimSpace(input.UserID); uid != "" && order.UserID == nil {
		order.UserID = &uid
	}
	if order.CustomerEmail == "" {
		order.CustomerEmail = strings.TrimSpace(input.CustomerEmail)
	}
	return s.write(ctx, order)
}

// RecordPaymentIntent is the webhook writer. Intents that came from hosted
// checkout are keyed by their session so they collapse with the redirect.
func (s *service) RecordPaymentIntent(ctx context.Context, pi *stripe.PaymentIntent) (*Result, error) {
	if pi == nil || pi.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent is required")
	}
	ctx = s.logg.WithField(ctx, "payment_intent_id", pi.ID)

	owner, err := s.gateway.FindCheckoutSessionByPaymentIntent(ctx, pi.ID)
	if err != nil {
		return nil, stripeclient.MapError(err, "failed to resolve checkout session")
	}
	if owner == nil {
		return s.write(ctx, orderFromIntent(pi))
	}

	sess, err := s.gateway.GetCheckoutSession(ctx, owner.ID)
	if err != nil {
		return nil, stripeclient.MapError(err, "failed to load checkout session")
	}
	order := orderFromSession(sess, enums.OrderSourceWebhook)
	if order.PaymentIntentID == nil {
		id := pi.ID
		order.PaymentIntentID = &id
	}
	if order.ShippingAddress == nil {
		order.ShippingAddress = shippingAddress(pi.Shipping)
	}
	return s.write(s.logg.WithSessionID(ctx, sess.ID), order)
}

func (s *service) write(ctx context.Context, order *models.Order) (*Result, error) {
	if order.CustomerEmail == "" {
		s.logg.Warn(ctx, "orders.create.missing_email")
	}
	stored, created, err := s.repo.CreateIfAbsent(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to store order")
	}
	s.metrics.OrderWritten(order.Source.String(), created)

	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id": stored.ID.String(),
		"source":   order.Source.String(),
	})
	if created {
		s.logg.Info(ctx, "orders.created")
	} else {
		s.logg.Info(ctx, "orders.already_exists")
	}
	return &Result{Order: toDTO(stored), Created: created}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, viewer Viewer) (*OrderDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadErr(err)
	}
	if !viewer.IsAdmin && !ownedBy(order, viewer.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return toDTO(order), nil
}

// GetBySession serves the confirmation page. Guest orders are visible to
// whoever holds the session id; account orders only to their owner.
func (s *service) GetBySession(ctx context.Context, sessionID string, viewer Viewer) (*OrderDTO, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	order, err := s.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, mapLoadErr(err)
	}
	if order.UserID != nil && !viewer.IsAdmin && !ownedBy(order, viewer.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return toDTO(order), nil
}

func (s *service) ListForUser(ctx context.Context, userID string, input ListInput) (*pagination.Page[OrderDTO], error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return s.list(ctx, &userID, input)
}

func (s *service) ListAll(ctx context.Context, input ListInput) (*pagination.Page[OrderDTO], error) {
	return s.list(ctx, nil, input)
}

func (s *service) list(ctx context.Context, userID *string, input ListInput) (*pagination.Page[OrderDTO], error) {
	filter := ListFilter{UserID: userID, Limit: pagination.LimitWithBuffer(input.Limit)}
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filter.Status = &status
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter.Cursor = cursor

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	page := pagination.Trim(rows, input.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	out := &pagination.Page[OrderDTO]{Items: make([]OrderDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, *toDTO(&page.Items[i]))
	}
	return out, nil
}

// UpdateStatus moves an order along its lifecycle. Admin-driven; the last
// accepted write wins.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, raw string) (*OrderDTO, error) {
	next, err := enums.ParseOrderStatus(strings.TrimSpace(raw))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadErr(err)
	}
	if order.Status == next {
		return toDTO(order), nil
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition not allowed").
			WithDetails(map[string]any{"from": order.Status, "to": next})
	}
	if err := s.repo.UpdateStatus(ctx, id, next); err != nil {
		return nil, mapLoadErr(err)
	}
	order.Status = next

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id": id.String(),
		"status":   next.String(),
	}), "orders.status.updated")
	return toDTO(order), nil
}

func ownedBy(order *models.Order, userID string) bool {
	return userID != "" && order.UserID != nil && *order.UserID == userID
}

func mapLoadErr(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
