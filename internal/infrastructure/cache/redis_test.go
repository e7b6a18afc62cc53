package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/example/ec-cart/internal/domain/cart"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisCartCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCartCache(client), mr
}

func testCart() *cart.Cart {
	now := time.Now().UTC().Truncate(time.Second)
	return &cart.Cart{
		ID:         "c1",
		OwnerID:    "owner-1",
		TotalPrice: decimal.RequireFromString("150.00"),
		Items: []*cart.Item{{
			ID:                "i1",
			CartID:            "c1",
			ProductID:         "42",
			ProductName:       "Keyboard",
			Quantity:          2,
			CapturedUnitPrice: decimal.RequireFromString("75.00"),
			CapturedDiscount:  decimal.RequireFromString("25"),
			AddedAt:           now,
			UpdatedAt:         now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestRedisCartCache_SetThenGet(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "owner-1", testCart(), 0))
	assert.True(t, mr.Exists("cart:owner-1"))

	ttl := mr.TTL("cart:owner-1")
	assert.GreaterOrEqual(t, ttl, defaultBaseTTL)
	assert.Less(t, ttl, defaultBaseTTL+5*time.Minute)

	got, err := c.Get(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ID)
	assert.Equal(t, "150.00", got.TotalPrice.StringFixed(2))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "75.00", got.Items[0].CapturedUnitPrice.StringFixed(2))
	assert.True(t, got.TotalPrice.Equal(got.ComputedTotal()))
}

func TestRedisCartCache_Miss(t *testing.T) {
	c, _ := setupTestRedis(t)

	got, err := c.Get(context.Background(), "nobody")

	assert.ErrorIs(t, err, cart.ErrCacheMiss)
	assert.Nil(t, got)
}

func TestRedisCartCache_InvalidJSON(t *testing.T) {
	c, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("cart:owner-1", "{not json"))

	_, err := c.Get(context.Background(), "owner-1")

	require.Error(t, err)
	assert.NotErrorIs(t, err, cart.ErrCacheMiss)
}

func TestRedisCartCache_Delete(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "owner-1", testCart(), 0))

	require.NoError(t, c.Delete(ctx, "owner-1"))
	assert.False(t, mr.Exists("cart:owner-1"))

	// Deleting an absent key is not an error.
	assert.NoError(t, c.Delete(ctx, "owner-1"))
}

func TestRedisCartCache_ServerDown(t *testing.T) {
	c, mr := setupTestRedis(t)
	mr.Close()

	_, err := c.Get(context.Background(), "owner-1")

	require.Error(t, err)
	assert.NotErrorIs(t, err, cart.ErrCacheMiss)
}

func TestRedisCartCache_Expires(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	stale := testCart()
	require.NoError(t, c.Set(ctx, "owner-1", stale, 0))
	mr.FastForward(defaultBaseTTL + 5*time.Minute)

	_, err := c.Get(ctx, "owner-1")
	assert.ErrorIs(t, err, cart.ErrCacheMiss)
}

func TestRedisCartCache_DeleteBumpsGeneration(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	gen, err := c.Generation(ctx, "owner-1")
	require.NoError(t, err)
	assert.Zero(t, gen)

	require.NoError(t, c.Delete(ctx, "owner-1"))
	require.NoError(t, c.Delete(ctx, "owner-1"))

	gen, err = c.Generation(ctx, "owner-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, gen)
	assert.Greater(t, mr.TTL("cart:gen:owner-1"), time.Duration(0))
}

func TestRedisCartCache_SetRefusedAfterConcurrentDelete(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	// A reader takes the generation, then a write invalidates the owner
	// before the reader's fill lands.
	gen, err := c.Generation(ctx, "owner-1")
	require.NoError(t, err)
	require.NoError(t, c.Delete(ctx, "owner-1"))

	err = c.Set(ctx, "owner-1", testCart(), gen)
	assert.ErrorIs(t, err, cart.ErrStaleFill)
	assert.False(t, mr.Exists("cart:owner-1"))

	gen, err = c.Generation(ctx, "owner-1")
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "owner-1", testCart(), gen))
	assert.True(t, mr.Exists("cart:owner-1"))
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()

	client, err := NewClient(context.Background(), addr, "")
	require.NoError(t, err)
	defer client.Close()

	mr.Close()
	_, err = NewClient(context.Background(), addr, "")
	assert.Error(t, err)
}
