package models

import (
	"fmt"
	"time"
)

// Account represents a linked OAuth account for one user and provider family.
// At most one account exists per (UserID, Provider).
type Account struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Provider          Provider  `json:"provider"`
	ProviderAccountID string    `json:"provider_account_id"`
	AccessToken       string    `json:"-"`
	RefreshToken      string    `json:"-"`
	ExpiresAt         *int64    `json:"expires_at,omitempty"` // epoch seconds, nil = never expires
	Scope             string    `json:"scope,omitempty"`
	TokenType         string    `json:"token_type,omitempty"`
	NeedsReconnect    bool      `json:"needs_reconnect"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Validate checks if the account is valid.
func (a *Account) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("account ID is required")
	}
	if a.UserID == "" {
		return fmt.Errorf("user ID is required")
	}
	if !a.Provider.Valid() {
		return fmt.Errorf("provider is required")
	}
	if a.AccessToken == "" {
		return fmt.Errorf("access token is required")
	}
	return nil
}

// IsExpired reports whether the stored access token is expired at the given time.
// A nil ExpiresAt means the token never expires.
func (a *Account) IsExpired(now time.Time) bool {
	if a.ExpiresAt == nil {
		return false
	}
	return *a.ExpiresAt <= now.Unix()
}

// SetExpiry stores the expiry as epoch seconds.
func (a *Account) SetExpiry(t time.Time) {
	epoch := t.Unix()
	a.ExpiresAt = &epoch
}
