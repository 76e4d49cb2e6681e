package cache

import (
	"context"
	"sync"
	"time"

	"github.com/debtcheck/debtcheck/internal/models"
)

type memoryItem struct {
	entry     models.CacheEntry
	expiresAt time.Time
}

// MemoryTTLStore is an in-process TTLStore. It is thread-safe; a background
// janitor evicts expired items so the map does not grow unbounded.
type MemoryTTLStore struct {
	mu       sync.RWMutex
	items    map[string]memoryItem
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewMemoryTTLStore creates a memory store and starts its janitor.
func NewMemoryTTLStore() *MemoryTTLStore {
	s := &MemoryTTLStore{
		items:    make(map[string]memoryItem),
		stopChan: make(chan struct{}),
	}
	go s.janitor(time.Minute)
	return s
}

func (s *MemoryTTLStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for key, item := range s.items {
				if now.After(item.expiresAt) {
					delete(s.items, key)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Get returns the stored entry for key, or ok=false when absent or expired
func (s *MemoryTTLStore) Get(_ context.Context, key string) (*models.CacheEntry, bool, error) {
	s.mu.RLock()
	item, ok := s.items[key]
	s.mu.RUnlock()

	if !ok || time.Now().After(item.expiresAt) {
		return nil, false, nil
	}
	cp := item.entry
	return &cp, true, nil
}

// Set stores the entry under key with the given TTL
func (s *MemoryTTLStore) Set(_ context.Context, key string, entry *models.CacheEntry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = memoryItem{
		entry:     *entry,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Close stops the janitor
func (s *MemoryTTLStore) Close() error {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	return nil
}
