package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/api/responses"
	pkgerrors "github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/errors"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/logger"
)

const (
	signatureHeader = "Stripe-Signature"
	maxPayloadBytes = 1 << 20
)

// EventGuard claims event ids so redeliveries are acknowledged once.
type EventGuard interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// EventDispatcher hands verified events to background processing.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event *stripe.Event) error
}

type receipt struct {
	Received  bool   `json:"received"`
	EventType string `json:"eventType"`
	EventID   string `json:"eventId"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// StripeWebhook verifies the signature over the raw body before anything
// is parsed, acknowledges verified events immediately and hands them to the
// dispatcher. Handler failures never change the response.
func StripeWebhook(signingSecret string, guard EventGuard, dispatcher EventDispatcher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if logg == nil {
			logg = logger.Nop()
		}

		if signingSecret == "" || dispatcher == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook receiver not configured"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
		if err != nil {
			http.Error(w, "Webhook Error: unable to read body", http.StatusBadRequest)
			return
		}

		sigHeader := r.Header.Get(signatureHeader)
		if sigHeader == "" {
			logg.Warn(ctx, "webhook.signature_missing")
			http.Error(w, "Webhook Error: missing stripe-signature header", http.StatusBadRequest)
			return
		}

		event, err := webhook.ConstructEventWithOptions(payload, sigHeader, signingSecret, webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "webhook.signature_invalid")
			http.Error(w, "Webhook Error: "+err.Error(), http.StatusBadRequest)
			return
		}

		ctx = logg.WithEventID(ctx, event.ID)
		ctx = logg.WithField(ctx, "event_type", string(event.Type))
		ack := receipt{Received: true, EventType: string(event.Type), EventID: event.ID}

		if guard != nil {
			first, err := guard.Claim(ctx, event.ID)
			switch {
			case err != nil:
				// Process anyway; order writes are idempotent on their own.
				logg.Error(ctx, "webhook.guard_failed", err)
			case !first:
				logg.Info(ctx, "webhook.duplicate")
				ack.Duplicate = true
				responses.WriteJSON(w, http.StatusOK, ack)
				return
			}
		}

		if err := dispatcher.Dispatch(ctx, &event); err != nil {
			if guard != nil {
				if relErr := guard.Release(context.WithoutCancel(ctx), event.ID); relErr != nil {
					logg.Error(ctx, "webhook.guard_release_failed", relErr)
				}
			}
			// Only a shutting-down dispatcher refuses work; ask for a redelivery.
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook dispatch unavailable"))
			return
		}

		logg.Info(ctx, "webhook.accepted")
		responses.WriteJSON(w, http.StatusOK, ack)
	}
}
