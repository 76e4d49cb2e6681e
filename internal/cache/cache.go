// Package cache provides the TTL key/value store backing the repository
// listing page cache. Entries expire via the store's own TTL, independently of
// the freshness window applied by the reader.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/debtcheck/debtcheck/internal/models"
)

// TTLStore is a TTL-backed key/value store for cached listing pages.
// There are no transactions and no compare-and-swap; entries are
// idempotently overwritable and last-writer-wins per key.
type TTLStore interface {
	// Get returns the stored entry for key, or ok=false when absent/expired.
	Get(ctx context.Context, key string) (*models.CacheEntry, bool, error)
	// Set stores the entry under key with the given TTL.
	Set(ctx context.Context, key string, entry *models.CacheEntry, ttl time.Duration) error
	// Close releases store resources.
	Close() error
}

// PageKey derives the deterministic cache key for one listing page.
// Only (userID, page, pageSize) participate; sort order is fixed upstream and
// deliberately unkeyed.
func PageKey(userID string, page, pageSize int) string {
	return fmt.Sprintf("repos:%s:%d:%d", userID, page, pageSize)
}
