package cache

import (
	"context"
	"errors"
	"time"

	"github.com/zatekoja/caretriage/internal/domain/providers"
	"github.com/zatekoja/caretriage/internal/infrastructure/observability"
)

// TieredAdapter reads through an in-process L1 in front of a shared L2.
// L2 failures are logged and treated as misses.
type TieredAdapter struct {
	l1    providers.CacheProvider
	l2    providers.CacheProvider
	l1TTL time.Duration
}

// NewTieredAdapter creates a two-level cache. l1TTL bounds how stale the L1 copy may get.
func NewTieredAdapter(l1, l2 providers.CacheProvider, l1TTL time.Duration) *TieredAdapter {
	if l1TTL <= 0 {
		l1TTL = 5 * time.Minute
	}
	return &TieredAdapter{l1: l1, l2: l2, l1TTL: l1TTL}
}

// Get checks L1 then L2, backfilling L1 on an L2 hit.
func (a *TieredAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	if val, err := a.l1.Get(ctx, key); err == nil {
		return val, nil
	}

	val, err := a.l2.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("L2 cache read failed")
		}
		return nil, providers.ErrCacheMiss
	}
	_ = a.l1.Set(ctx, key, val, a.l1TTL)
	return val, nil
}

// Set writes both levels. Only an L2 failure is reported.
func (a *TieredAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	l1TTL := a.l1TTL
	if ttl > 0 && ttl < l1TTL {
		l1TTL = ttl
	}
	_ = a.l1.Set(ctx, key, value, l1TTL)
	return a.l2.Set(ctx, key, value, ttl)
}

// Delete removes the key from both levels.
func (a *TieredAdapter) Delete(ctx context.Context, key string) error {
	_ = a.l1.Delete(ctx, key)
	return a.l2.Delete(ctx, key)
}
