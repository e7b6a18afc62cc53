package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/example/ec-cart/internal/domain/cart"
	"github.com/redis/go-redis/v9"
)

const (
	defaultBaseTTL = 15 * time.Minute
	// generationTTL outlives any cart entry and is refreshed on every bump.
	generationTTL = 24 * time.Hour
)

// RedisCartCache keeps owner cart views in Redis. Entries expire after the
// base TTL plus up to five minutes of jitter; writes evict them explicitly.
type RedisCartCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisCartCache(client *redis.Client) *RedisCartCache {
	return &RedisCartCache{
		client:  client,
		baseTTL: defaultBaseTTL,
	}
}

// NewClient connects to addr and checks the connection.
func NewClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func (r *RedisCartCache) Get(ctx context.Context, ownerID string) (*cart.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cart.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var c cart.Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &c, nil
}

// Generation returns the owner's invalidation counter; an owner never
// invalidated is at generation 0.
func (r *RedisCartCache) Generation(ctx context.Context, ownerID string) (int64, error) {
	gen, err := r.client.Get(ctx, generationKey(ownerID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation failed: %w", err)
	}
	return gen, nil
}

// Set stores c under WATCH of the owner's generation key, so the write is
// dropped if Delete ran after generation was read.
func (r *RedisCartCache) Set(ctx context.Context, ownerID string, c *cart.Cart, generation int64) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	genKey := generationKey(ownerID)
	jitter := time.Duration(rand.Intn(5)) * time.Minute
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return cart.ErrStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, cacheKey(ownerID), data, r.baseTTL+jitter)
			return nil
		})
		return err
	}, genKey)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, cart.ErrStaleFill), errors.Is(err, redis.TxFailedErr):
		return cart.ErrStaleFill
	default:
		return fmt.Errorf("redis set failed: %w", err)
	}
}

// Delete evicts the owner's entry and bumps its generation in one MULTI.
func (r *RedisCartCache) Delete(ctx context.Context, ownerID string) error {
	genKey := generationKey(ownerID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, cacheKey(ownerID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(ownerID string) string {
	return fmt.Sprintf("cart:%s", ownerID)
}

func generationKey(ownerID string) string {
	return fmt.Sprintf("cart:gen:%s", ownerID)
}
