package reconcile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/orders"
	pkgerrors "github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/errors"
)

type memoryCache struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCache) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryCache) CheckoutSessionKey(id string) string {
	return "moroz:checkout:session:" + id
}

type countingConfirmer struct {
	calls   atomic.Int32
	orderID uuid.UUID
	err     error
	gate    chan struct{}
}

func (c *countingConfirmer) ConfirmCheckoutSession(_ context.Context, _ orders.ConfirmInput) (*orders.Result, error) {
	c.calls.Add(1)
	if c.gate != nil {
		<-c.gate
	}
	if c.err != nil {
		return nil, c.err
	}
	return &orders.Result{Order: &orders.OrderDTO{ID: c.orderID}, Created: true}, nil
}

func TestConfirmTwiceIssuesOneCall(t *testing.T) {
	confirmer := &countingConfirmer{orderID: uuid.New()}
	cache := newMemoryCache()
	r, err := New(confirmer, cache, time.Minute, nil, nil)
	require.NoError(t, err)

	first := r.Confirm(context.Background(), Request{SessionID: "cs_1"})
	second := r.Confirm(context.Background(), Request{SessionID: "cs_1"})

	assert.Equal(t, int32(1), confirmer.calls.Load())
	assert.Equal(t, StateConfirmed, first.State)
	assert.True(t, first.Created)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.False(t, second.Created)
	assert.Equal(t, time.Minute, cache.ttls[cache.CheckoutSessionKey("cs_1")])
}

func TestConfirmCollapsesInFlightCalls(t *testing.T) {
	confirmer := &countingConfirmer{orderID: uuid.New(), gate: make(chan struct{})}
	r, err := New(confirmer, newMemoryCache(), time.Minute, nil, nil)
	require.NoError(t, err)

	const callers = 5
	outcomes := make([]Outcome, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = r.Confirm(context.Background(), Request{SessionID: "cs_1"})
		}(i)
	}
	require.Eventually(t, func() bool { return confirmer.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(confirmer.gate)
	wg.Wait()

	assert.Equal(t, int32(1), confirmer.calls.Load())
	for _, o := range outcomes {
		assert.Equal(t, StateConfirmed, o.State)
		assert.Equal(t, confirmer.orderID.String(), o.OrderID)
	}
}

func TestConfirmPaymentIncomplete(t *testing.T) {
	confirmer := &countingConfirmer{err: pkgerrors.Wrap(pkgerrors.CodeStateConflict, orders.ErrPaymentIncomplete, "payment has not been completed")}
	cache := newMemoryCache()
	r, err := New(confirmer, cache, time.Minute, nil, nil)
	require.NoError(t, err)

	out := r.Confirm(context.Background(), Request{SessionID: "cs_unpaid"})
	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, "cs_unpaid", out.SessionID)
	assert.Contains(t, out.Message, "cs_unpaid")
	assert.Empty(t, out.OrderID)

	_, cached := cache.data[cache.CheckoutSessionKey("cs_unpaid")]
	assert.False(t, cached)

	r.Confirm(context.Background(), Request{SessionID: "cs_unpaid"})
	assert.Equal(t, int32(2), confirmer.calls.Load())
}

func TestConfirmErrorKeepsSessionID(t *testing.T) {
	r, err := New(&countingConfirmer{err: errors.New("db down")}, newMemoryCache(), time.Minute, nil, nil)
	require.NoError(t, err)

	out := r.Confirm(context.Background(), Request{SessionID: "cs_err"})
	assert.Equal(t, StateError, out.State)
	assert.Equal(t, "cs_err", out.SessionID)
	assert.Empty(t, out.OrderID)
	assert.Contains(t, out.Message, "cs_err")
}

func TestConfirmMissingSession(t *testing.T) {
	confirmer := &countingConfirmer{}
	r, err := New(confirmer, nil, 0, nil, nil)
	require.NoError(t, err)

	out := r.Confirm(context.Background(), Request{SessionID: "  "})
	assert.Equal(t, StateError, out.State)
	assert.Equal(t, int32(0), confirmer.calls.Load())
}

func TestConfirmReportsVerifyingFromAnotherInstance(t *testing.T) {
	confirmer := &countingConfirmer{orderID: uuid.New()}
	cache := newMemoryCache()
	require.NoError(t, cache.Set(context.Background(), cache.CheckoutSessionKey("cs_1"), `{"state":"verifying","session_id":"cs_1"}`, verifyingTTL))
	r, err := New(confirmer, cache, time.Minute, nil, nil)
	require.NoError(t, err)

	out := r.Confirm(context.Background(), Request{SessionID: "cs_1"})
	assert.Equal(t, StateVerifying, out.State)
	assert.Equal(t, int32(0), confirmer.calls.Load())
}
