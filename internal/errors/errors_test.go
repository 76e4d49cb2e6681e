package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/debtcheck/debtcheck/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenErrors(t *testing.T) {
	notLinked := &ErrNotLinked{UserID: "user-1", Provider: models.ProviderGitHub}
	assert.Contains(t, notLinked.Error(), "user-1")
	assert.Contains(t, notLinked.Error(), "github")

	unavailable := &ErrRefreshUnavailable{Provider: models.ProviderAtlassian}
	assert.Contains(t, unavailable.Error(), "no refresh token")

	inner := stderrors.New("invalid_grant")
	failed := &ErrRefreshFailed{Provider: models.ProviderGitHub, Err: inner}
	assert.Contains(t, failed.Error(), "invalid_grant")
	assert.ErrorIs(t, failed, inner)

	bare := &ErrRefreshFailed{Provider: models.ProviderGitHub}
	assert.Equal(t, "github token refresh failed", bare.Error())
}

func TestErrorsAsMatching(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", &ErrNotLinked{UserID: "u", Provider: models.ProviderGitHub})

	var notLinked *ErrNotLinked
	require.True(t, stderrors.As(wrapped, &notLinked))
	assert.Equal(t, "u", notLinked.UserID)

	var refreshFailed *ErrRefreshFailed
	assert.False(t, stderrors.As(wrapped, &refreshFailed))
}

func TestUpstreamErrors(t *testing.T) {
	up := &ErrUpstreamStatus{Upstream: "github", Status: 503}
	assert.Equal(t, "github responded with status 503", up.Error())

	var rl *RateLimitError
	assert.Equal(t, "rate limit", rl.Error())

	rl = &RateLimitError{RetryAfter: 30 * time.Second}
	assert.Equal(t, "rate limit exceeded", rl.Error())

	rl = &RateLimitError{Message: "API rate limit exceeded"}
	assert.Equal(t, "API rate limit exceeded", rl.Error())
}

func TestWrappedUnwrap(t *testing.T) {
	inner := stderrors.New("disk full")
	tests := []struct {
		name string
		err  error
	}{
		{"config parse", &ErrConfigParse{Err: inner}},
		{"config validation", &ErrConfigValidation{Err: inner}},
		{"database open", &ErrDatabaseOpen{Path: "/tmp/db", Err: inner}},
		{"database query", &ErrDatabaseQuery{Operation: "get_account", Err: inner}},
		{"server start", &ErrServerStart{Addr: ":8080", Err: inner}},
		{"file read", &ErrFileRead{Path: "/etc/cfg", Err: inner}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, inner)
			assert.Contains(t, tt.err.Error(), "disk full")
		})
	}
}
