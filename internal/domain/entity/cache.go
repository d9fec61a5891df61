package entity

import "time"

// CacheEntry is a cached transaction page with its insertion time and lifetime.
type CacheEntry struct {
	Data       TransactionPage `json:"data"`
	InsertedAt time.Time       `json:"insertedAt"`
	TTL        time.Duration   `json:"ttl"`
}

// Expired reports whether the entry is stale at now. An entry exactly TTL old is still valid.
func (e CacheEntry) Expired(now time.Time) bool {
	return now.Sub(e.InsertedAt) > e.TTL
}

// CacheStats summarizes a transaction cache. HitRate is Valid/Total, the share of
// entries that are still fresh, not a lookup hit ratio.
type CacheStats struct {
	Total   int     `json:"total"`
	Expired int     `json:"expired"`
	Valid   int     `json:"valid"`
	HitRate float64 `json:"hitRate"`
}
