package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeProvider(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Provider
		wantErr bool
	}{
		{name: "github", raw: "github", want: ProviderGitHub},
		{name: "atlassian", raw: "atlassian", want: ProviderAtlassian},
		{name: "jira maps to atlassian", raw: "jira", want: ProviderAtlassian},
		{name: "unknown", raw: "gitlab", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeProvider(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAccount_Validate(t *testing.T) {
	tests := []struct {
		name    string
		account Account
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid account",
			account: Account{
				ID:          "acc-1",
				UserID:      "user-1",
				Provider:    ProviderGitHub,
				AccessToken: "gho_token",
			},
			wantErr: false,
		},
		{
			name:    "missing ID",
			account: Account{UserID: "user-1", Provider: ProviderGitHub, AccessToken: "t"},
			wantErr: true,
			errMsg:  "account ID is required",
		},
		{
			name:    "missing user ID",
			account: Account{ID: "acc-1", Provider: ProviderGitHub, AccessToken: "t"},
			wantErr: true,
			errMsg:  "user ID is required",
		},
		{
			name:    "invalid provider",
			account: Account{ID: "acc-1", UserID: "user-1", Provider: "jira", AccessToken: "t"},
			wantErr: true,
			errMsg:  "provider is required",
		},
		{
			name:    "missing access token",
			account: Account{ID: "acc-1", UserID: "user-1", Provider: ProviderAtlassian},
			wantErr: true,
			errMsg:  "access token is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.account.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAccount_IsExpired(t *testing.T) {
	now := time.Now()

	var acc Account
	assert.False(t, acc.IsExpired(now), "nil expiry never expires")

	acc.SetExpiry(now.Add(time.Hour))
	assert.False(t, acc.IsExpired(now))

	acc.SetExpiry(now.Add(-time.Second))
	assert.True(t, acc.IsExpired(now))

	// expiry exactly now counts as expired
	acc.SetExpiry(now)
	assert.True(t, acc.IsExpired(now))
}
