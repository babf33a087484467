// Package reconcile confirms orders when the shopper returns from hosted
// checkout. It collapses repeated confirmations for one session; the
// orders store is what guarantees a single order.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/orders"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/logger"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/metrics"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/redis"
	"golang.org/x/sync/singleflight"
)

// State is the confirmation page state.
type State string

const (
	StateVerifying State = "verifying"
	StateConfirmed State = "confirmed"
	StateFailed    State = "failed"
	StateError     State = "error"
)

const (
	defaultProcessedTTL = 30 * time.Minute
	verifyingTTL        = 30 * time.Second
)

// Confirmer creates the order for a paid session.
type Confirmer interface {
	ConfirmCheckoutSession(ctx context.Context, input orders.ConfirmInput) (*orders.Result, error)
}

// Request is a confirmation attempt from the browser.
type Request struct {
	SessionID     string
	UserID        string
	CustomerEmail string
}

// Outcome is what the confirmation page renders. SessionID is always set
// so support can trace failures; OrderID only once an order exists.
type Outcome struct {
	State     State  `json:"state"`
	SessionID string `json:"session_id"`
	OrderID   string `json:"order_id,omitempty"`
	Created   bool   `json:"created"`
	Message   string `json:"message,omitempty"`
}

// Reconciler debounces order confirmations per session.
type Reconciler struct {
	confirmer Confirmer
	cache     redis.SessionCache
	ttl       time.Duration
	group     singleflight.Group
	metrics   *metrics.Storefront
	logg      *logger.Logger
}

// New builds a Reconciler. cache may be nil, in which case only in-flight
// duplicates are collapsed.
func New(confirmer Confirmer, cache redis.SessionCache, ttl time.Duration, m *metrics.Storefront, logg *logger.Logger) (*Reconciler, error) {
	if confirmer == nil {
		return nil, errors.New("order confirmer required")
	}
	if ttl <= 0 {
		ttl = defaultProcessedTTL
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Reconciler{confirmer: confirmer, cache: cache, ttl: ttl, metrics: m, logg: logg}, nil
}

// Confirm returns the outcome for req.SessionID, issuing at most one order
// creation call per session while a result is remembered.
func (r *Reconciler) Confirm(ctx context.Context, req Request) Outcome {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return Outcome{State: StateError, Message: "Missing checkout session id."}
	}
	ctx = r.logg.WithSessionID(ctx, sessionID)

	v, _, _ := r.group.Do(sessionID, func() (any, error) {
		// Joined callers must not inherit the first caller's cancellation.
		return r.confirm(context.WithoutCancel(ctx), sessionID, req), nil
	})
	outcome := v.(Outcome)
	r.metrics.Confirmation(string(outcome.State))
	return outcome
}

func (r *Reconciler) confirm(ctx context.Context, sessionID string, req Request) Outcome {
	if cached, ok := r.lookup(ctx, sessionID); ok {
		r.logg.Debug(ctx, "reconcile.cache_hit")
		return cached
	}
	r.remember(ctx, Outcome{State: StateVerifying, SessionID: sessionID}, verifyingTTL)

	res, err := r.confirmer.ConfirmCheckoutSession(ctx, orders.ConfirmInput{
		SessionID:     sessionID,
		UserID:        req.UserID,
		CustomerEmail: req.CustomerEmail,
	})
	if err != nil {
		r.forget(ctx, sessionID)
		if errors.Is(err, orders.ErrPaymentIncomplete) {
			r.logg.Warn(ctx, "reconcile.payment_incomplete")
			return Outcome{
				State:     StateFailed,
				SessionID: sessionID,
				Message:   fmt.Sprintf("Payment was not completed for checkout session %s.", sessionID),
			}
		}
		r.logg.Error(ctx, "reconcile.confirm_failed", err)
		return Outcome{
			State:     StateError,
			SessionID: sessionID,
			Message:   fmt.Sprintf("We could not confirm your order yet. Please contact us with reference %s.", sessionID),
		}
	}

	outcome := Outcome{
		State:     StateConfirmed,
		SessionID: sessionID,
		OrderID:   res.Order.ID.String(),
		Created:   res.Created,
	}
	r.remember(ctx, outcome, r.ttl)
	return outcome
}

func (r *Reconciler) lookup(ctx context.Context, sessionID string) (Outcome, bool) {
	if r.cache == nil {
		return Outcome{}, false
	}
	raw, err := r.cache.Get(ctx, r.cache.CheckoutSessionKey(sessionID))
	if err != nil {
		if !redis.IsMiss(err) {
			r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "reconcile.cache_read_failed")
		}
		return Outcome{}, false
	}
	var outcome Outcome
	if err := json.Unmarshal([]byte(raw), &outcome); err != nil {
		return Outcome{}, false
	}
	// Replays never claim to have created the order.
	outcome.Created = false
	return outcome, true
}

func (r *Reconciler) remember(ctx context.Context, outcome Outcome, ttl time.Duration) {
	if r.cache == nil {
		return
	}
	raw, err := json.Marshal(outcome)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, r.cache.CheckoutSessionKey(outcome.SessionID), string(raw), ttl); err != nil {
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "reconcile.cache_write_failed")
	}
}

// forget clears the verifying marker so a retry is not answered with it.
func (r *Reconciler) forget(ctx context.Context, sessionID string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Del(ctx, r.cache.CheckoutSessionKey(sessionID)); err != nil {
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "reconcile.cache_clear_failed")
	}
}
