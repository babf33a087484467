package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/redis"
)

const guardScope = "stripe-webhook"

// EventGuard claims event ids in redis so redeliveries of an event that was
// already accepted are acknowledged without running handlers again.
type EventGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewEventGuard(store redis.IdempotencyStore, ttl time.Duration) (*EventGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	return &EventGuard{store: store, ttl: ttl}, nil
}

// Claim returns true when this is the first delivery of eventID.
func (g *EventGuard) Claim(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	first, err := g.store.SetNX(ctx, g.store.IdempotencyKey(guardScope, eventID), time.Now().UTC().Format(time.RFC3339), g.ttl)
	if err != nil {
		return false, fmt.Errorf("claim webhook event: %w", err)
	}
	return first, nil
}

// Release forgets eventID so a later delivery is processed again.
func (g *EventGuard) Release(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(guardScope, eventID))
}
