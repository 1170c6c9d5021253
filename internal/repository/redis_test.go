package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisSessions_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	s := NewRedisSessions(client, "", time.Hour)
	require.NoError(t, s.Ping(ctx))

	_, err := s.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)

	st := &domain.SessionState{
		Cart: domain.Cart{
			IsOpen: true,
			Items: []domain.CartItem{
				{ID: "dew-stick", Name: "The Dew Stick", Price: decimal.RequireFromString("15.30"), Quantity: 2, IsSubscription: true},
			},
		},
		View: domain.ProductView{ProductID: "dew-stick", Mode: domain.PurchaseSubscribe},
	}
	require.NoError(t, s.Save(ctx, "abc", st))
	assert.True(t, mr.Exists(defaultSessionPrefix+"abc"))

	got, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, got.Cart.IsOpen)
	require.Len(t, got.Cart.Items, 1)
	assert.True(t, got.Cart.Items[0].Price.Equal(decimal.RequireFromString("15.3")))
	assert.Equal(t, domain.PurchaseSubscribe, got.View.Mode)

	require.NoError(t, s.Delete(ctx, "abc"))
	_, err = s.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisSessions_TTL(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	s := NewRedisSessions(client, "test:", time.Minute)

	require.NoError(t, s.Save(ctx, "abc", &domain.SessionState{}))
	assert.Equal(t, time.Minute, mr.TTL("test:abc"))

	mr.FastForward(2 * time.Minute)
	_, err := s.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisSessions_CorruptValue(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	s := NewRedisSessions(client, "", 0)

	require.NoError(t, mr.Set(defaultSessionPrefix+"bad", "{not json"))
	_, err := s.Get(ctx, "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
