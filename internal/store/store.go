package store

import "github.com/debtcheck/debtcheck/internal/models"

// Store is the persistent account store consumed by the token lifecycle
// manager. One row exists per (user, provider family).
type Store interface {
	// GetAccount returns the linked account for a user and provider family.
	GetAccount(userID string, provider models.Provider) (*models.Account, bool)
	// SetAccount inserts or replaces the account row for (UserID, Provider).
	SetAccount(acc *models.Account) error
	// UpdateAccountTokens persists a refreshed token set for an account row.
	UpdateAccountTokens(id, accessToken, refreshToken string, expiresAt *int64) error
	// SetNeedsReconnect flags an account whose refresh path is broken.
	SetNeedsReconnect(id string, needs bool) error
	// DeleteAccount removes the row if present; returns false when absent.
	DeleteAccount(userID string, provider models.Provider) bool
	// ListAccounts returns all linked accounts.
	ListAccounts() []*models.Account
	// Close releases store resources.
	Close() error
}
