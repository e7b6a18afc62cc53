package cart

import (
	"context"
	"errors"
)

var (
	ErrCacheMiss = errors.New("cache miss")
	// ErrStaleFill is returned by Cache.Set when the owner's entry was
	// invalidated after the caller read its generation.
	ErrStaleFill = errors.New("cache fill superseded by a newer write")
)

// Cache holds read views of carts keyed by owner.
//
// Every Delete bumps the owner's generation. A reader that misses reads
// the generation before loading from the store and hands it to Set, which
// refuses the fill if a write invalidated the owner in between.
type Cache interface {
	Get(ctx context.Context, ownerID string) (*Cart, error)
	Generation(ctx context.Context, ownerID string) (int64, error)
	Set(ctx context.Context, ownerID string, c *Cart, generation int64) error
	Delete(ctx context.Context, ownerID string) error
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (*Cart, error)        { return nil, ErrCacheMiss }
func (noopCache) Generation(context.Context, string) (int64, error) { return 0, nil }
func (noopCache) Set(context.Context, string, *Cart, int64) error   { return nil }
func (noopCache) Delete(context.Context, string) error              { return nil }
