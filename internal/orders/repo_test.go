package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/db"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/db/dbtest"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/db/models"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/enums"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/money"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/pagination"
)

func newOrder(sessionID string, source enums.OrderSource) *models.Order {
	return &models.Order{
		CustomerEmail:    "buyer@example.com",
		Items:            []models.OrderItem{{ProductID: "p1", Name: "Harbor", UnitPrice: money.FromCents(2000), Quantity: 1}},
		SubtotalCents:    money.FromCents(2000),
		TotalCents:       money.FromCents(2000),
		Currency:         "usd",
		Status:           enums.OrderStatusPaid,
		PaymentSessionID: sessionID,
		Source:           source,
	}
}

func TestCreateIfAbsentIsIdempotent(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	first, created, err := repo.CreateIfAbsent(ctx, newOrder("cs_1", enums.OrderSourceWebhook))
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := repo.CreateIfAbsent(ctx, newOrder("cs_1", enums.OrderSourceRedirect))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, enums.OrderSourceWebhook, second.Source)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "Harbor", second.Items[0].Name)
}

func TestCreateIfAbsentConcurrentWriters(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	const writers = 8
	ids := make([]uuid.UUID, writers)
	createdCount := 0
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			source := enums.OrderSourceRedirect
			if i%2 == 0 {
				source = enums.OrderSourceWebhook
			}
			order, created, err := repo.CreateIfAbsent(ctx, newOrder("cs_race", source))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			ids[i] = order.ID
			if created {
				createdCount++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, createdCount)
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	var count int64
	require.NoError(t, conn.Model(&models.Order{}).Where("payment_session_id = ?", "cs_race").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestListFiltersByUserAndStatus(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	alice := "user_alice"
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, sid := range []string{"cs_a", "cs_b", "cs_c"} {
		o := newOrder(sid, enums.OrderSourceRedirect)
		o.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if sid != "cs_c" {
			o.UserID = &alice
		}
		_, _, err := repo.CreateIfAbsent(ctx, o)
		require.NoError(t, err)
	}

	rows, err := repo.List(ctx, ListFilter{UserID: &alice, Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "cs_b", rows[0].PaymentSessionID)

	cursor := &pagination.Cursor{CreatedAt: rows[0].CreatedAt, ID: rows[0].ID}
	rows, err = repo.List(ctx, ListFilter{UserID: &alice, Limit: 10, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "cs_a", rows[0].PaymentSessionID)

	shipped := enums.OrderStatusShipped
	rows, err = repo.List(ctx, ListFilter{Status: &shipped, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUpdateStatusMissingOrder(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	err := repo.UpdateStatus(context.Background(), uuid.New(), enums.OrderStatusShipped)
	assert.True(t, db.IsNotFound(err))
}
