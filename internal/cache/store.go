package cache

import (
	"context"
	"time"
)

// Store is the key/value backend behind the query caches.
// A missing key is reported as (nil, false, nil), never as an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	// AddToIndex records key as a member of the index set so it can be found
	// again for scoped invalidation.
	AddToIndex(ctx context.Context, index, key string, ttl time.Duration) error
	Members(ctx context.Context, index string) ([]string, error)
}
