package stripewebhook

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/logger"
)

// ErrDispatcherClosed is returned once Shutdown has been called.
var ErrDispatcherClosed = errors.New("webhook dispatcher closed")

// EventHandler runs the side effects of one verified event.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type eventReleaser interface {
	Release(ctx context.Context, eventID string) error
}

// Dispatcher runs handlers off the request goroutine so the platform gets
// its acknowledgement without waiting on email or database work.
type Dispatcher struct {
	handler EventHandler
	guard   eventReleaser
	timeout time.Duration
	logg    *logger.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(handler EventHandler, guard eventReleaser, timeout time.Duration, logg *logger.Logger) (*Dispatcher, error) {
	if handler == nil {
		return nil, errors.New("event handler is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Dispatcher{handler: handler, guard: guard, timeout: timeout, logg: logg}, nil
}

// Dispatch schedules event. The request context only contributes its
// logging fields; cancellation of the request does not stop the handler.
func (d *Dispatcher) Dispatch(ctx context.Context, event *stripe.Event) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		d.run(context.WithoutCancel(ctx), event)
	}()
	return nil
}

func (d *Dispatcher) run(ctx context.Context, event *stripe.Event) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.logg.Error(ctx, "webhook.handler_panic", errors.New("panic while handling webhook event"))
			d.release(ctx, event.ID)
		}
	}()

	if err := d.handler.HandleEvent(ctx, event); err != nil {
		d.logg.Error(d.logg.WithEventID(ctx, event.ID), "webhook.handler_failed", err)
		d.release(ctx, event.ID)
	}
}

func (d *Dispatcher) release(ctx context.Context, eventID string) {
	if d.guard == nil {
		return
	}
	// The handler context may already be past its deadline.
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := d.guard.Release(releaseCtx, eventID); err != nil {
		d.logg.Error(d.logg.WithEventID(ctx, eventID), "webhook.guard_release_failed", err)
	}
}

// Shutdown stops accepting events and waits for in-flight handlers or ctx.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
