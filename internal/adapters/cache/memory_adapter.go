package cache

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/zatekoja/caretriage/internal/domain/providers"
)

// MemoryAdapter is an in-process cache backed by ristretto. Values are weighed by size.
type MemoryAdapter struct {
	c *ristretto.Cache[string, []byte]
}

// NewMemoryAdapter creates an in-process cache holding at most maxCostBytes of values.
func NewMemoryAdapter(maxCostBytes int64) (*MemoryAdapter, error) {
	if maxCostBytes <= 0 {
		maxCostBytes = 64 << 20
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCostBytes / 100 * 10,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &MemoryAdapter{c: c}, nil
}

// Get retrieves a value from cache
func (a *MemoryAdapter) Get(_ context.Context, key string) ([]byte, error) {
	val, found := a.c.Get(key)
	if !found {
		return nil, providers.ErrCacheMiss
	}
	return append([]byte(nil), val...), nil
}

// Set stores a copy of value. Writes are applied before Set returns.
func (a *MemoryAdapter) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	a.c.SetWithTTL(key, append([]byte(nil), value...), int64(len(value)), ttl)
	a.c.Wait()
	return nil
}

// Delete removes a value from cache
func (a *MemoryAdapter) Delete(_ context.Context, key string) error {
	a.c.Del(key)
	return nil
}

// Close releases the cache's background goroutines.
func (a *MemoryAdapter) Close() {
	a.c.Close()
}
