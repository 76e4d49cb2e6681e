package store

import (
	"sync"
	"time"

	"github.com/debtcheck/debtcheck/internal/models"
)

// MemoryStore provides an in-memory account store. It is thread-safe and
// supports concurrent access; used in tests and single-process setups.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account // key: userID + "/" + provider
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*models.Account),
	}
}

func accountKey(userID string, provider models.Provider) string {
	return userID + "/" + string(provider)
}

// GetAccount retrieves the account for a user and provider family
func (s *MemoryStore) GetAccount(userID string, provider models.Provider) (*models.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[accountKey(userID, provider)]
	if !ok {
		return nil, false
	}
	cp := *acc
	return &cp, true
}

// SetAccount stores or replaces an account
func (s *MemoryStore) SetAccount(acc *models.Account) error {
	if err := acc.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *acc
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	cp.UpdatedAt = time.Now().UTC()
	s.accounts[accountKey(cp.UserID, cp.Provider)] = &cp
	return nil
}

// UpdateAccountTokens persists a refreshed token set for an account row
func (s *MemoryStore) UpdateAccountTokens(id, accessToken, refreshToken string, expiresAt *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acc := range s.accounts {
		if acc.ID != id {
			continue
		}
		acc.AccessToken = accessToken
		if refreshToken != "" {
			acc.RefreshToken = refreshToken
		}
		acc.ExpiresAt = expiresAt
		acc.NeedsReconnect = false
		acc.UpdatedAt = time.Now().UTC()
		return nil
	}
	return nil
}

// SetNeedsReconnect flags an account whose refresh path is broken
func (s *MemoryStore) SetNeedsReconnect(id string, needs bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acc := range s.accounts {
		if acc.ID == id {
			acc.NeedsReconnect = needs
			acc.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return nil
}

// DeleteAccount removes the account row if present
func (s *MemoryStore) DeleteAccount(userID string, provider models.Provider) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := accountKey(userID, provider)
	if _, ok := s.accounts[key]; !ok {
		return false
	}
	delete(s.accounts, key)
	return true
}

// ListAccounts returns all linked accounts
func (s *MemoryStore) ListAccounts() []*models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		cp := *acc
		result = append(result, &cp)
	}
	return result
}

// Close is a no-op for the memory store
func (s *MemoryStore) Close() error {
	return nil
}
