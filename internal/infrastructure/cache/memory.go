package cache

import (
	"context"
	"time"

	"wallet_tracker/internal/domain/entity"

	gocache "github.com/patrickmn/go-cache"
)

// retentionFactor keeps expired entries around long enough to show up in stats.
const retentionFactor = 2

// MemoryStore is an in-process port.Cache. Each TransactionService owns its own store.
type MemoryStore struct {
	items *gocache.Cache
}

// NewMemoryStore creates a store whose janitor purges long-dead entries every cleanupInterval.
// A zero interval disables the janitor.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{items: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (entity.CacheEntry, bool, error) {
	v, ok := s.items.Get(key)
	if !ok {
		return entity.CacheEntry{}, false, nil
	}
	entry, ok := v.(entity.CacheEntry)
	return entry, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, entry entity.CacheEntry) error {
	s.items.Set(key, entry, retention(entry.TTL))
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		s.items.Delete(k)
	}
	return nil
}

// Entries returns a snapshot of every retained entry, expired ones included.
func (s *MemoryStore) Entries(_ context.Context) (map[string]entity.CacheEntry, error) {
	items := s.items.Items()
	out := make(map[string]entity.CacheEntry, len(items))
	for k, item := range items {
		if entry, ok := item.Object.(entity.CacheEntry); ok {
			out[k] = entry
		}
	}
	return out, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.items.Flush()
	return nil
}

func retention(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl * retentionFactor
}
