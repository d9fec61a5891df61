package port

import (
	"context"

	"wallet_tracker/internal/domain/entity"
)

// Cache stores transaction pages. Expiry is decided by the caller from the entry itself,
// so stores keep expired entries until they are deleted or swept.
type Cache interface {
	Get(ctx context.Context, key string) (entity.CacheEntry, bool, error)
	Set(ctx context.Context, key string, entry entity.CacheEntry) error
	Delete(ctx context.Context, keys ...string) error
	Entries(ctx context.Context) (map[string]entity.CacheEntry, error)
	Clear(ctx context.Context) error
}
