package errors

import (
	"fmt"
	"time"

	"github.com/debtcheck/debtcheck/internal/models"
)

// Config errors

type ErrConfigNotFound struct {
	Path string
}

func (e *ErrConfigNotFound) Error() string {
	return fmt.Sprintf("config file not found: %s", e.Path)
}

type ErrConfigParse struct {
	Err error
}

func (e *ErrConfigParse) Error() string {
	return fmt.Sprintf("failed to parse YAML: %v", e.Err)
}

func (e *ErrConfigParse) Unwrap() error {
	return e.Err
}

type ErrConfigValidation struct {
	Err error
}

func (e *ErrConfigValidation) Error() string {
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ErrConfigValidation) Unwrap() error {
	return e.Err
}

// Database errors

type ErrDatabaseOpen struct {
	Path string
	Err  error
}

func (e *ErrDatabaseOpen) Error() string {
	return fmt.Sprintf("failed to open database %s: %v", e.Path, e.Err)
}

func (e *ErrDatabaseOpen) Unwrap() error {
	return e.Err
}

type ErrDatabaseMigration struct {
	Version int
	Err     error
}

func (e *ErrDatabaseMigration) Error() string {
	return fmt.Sprintf("database migration %d failed: %v", e.Version, e.Err)
}

func (e *ErrDatabaseMigration) Unwrap() error {
	return e.Err
}

type ErrDatabaseQuery struct {
	Operation string
	Err       error
}

func (e *ErrDatabaseQuery) Error() string {
	return fmt.Sprintf("database query failed for operation %s: %v", e.Operation, e.Err)
}

func (e *ErrDatabaseQuery) Unwrap() error {
	return e.Err
}

// Token lifecycle errors. All three surface as HTTP 401.

// ErrNotLinked means no account row (or no stored access token) exists for the
// user and provider family.
type ErrNotLinked struct {
	UserID   string
	Provider models.Provider
}

func (e *ErrNotLinked) Error() string {
	return fmt.Sprintf("no %s account linked for user %s", e.Provider, e.UserID)
}

// ErrRefreshUnavailable means the stored token is expired and no refresh token
// was stored alongside it.
type ErrRefreshUnavailable struct {
	Provider models.Provider
}

func (e *ErrRefreshUnavailable) Error() string {
	return fmt.Sprintf("%s token expired and no refresh token stored", e.Provider)
}

// ErrRefreshFailed means the provider rejected the refresh exchange, or the
// account was previously marked as needing a reconnect.
type ErrRefreshFailed struct {
	Provider models.Provider
	Err      error
}

func (e *ErrRefreshFailed) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s token refresh failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s token refresh failed", e.Provider)
}

func (e *ErrRefreshFailed) Unwrap() error {
	return e.Err
}

// Upstream errors

// ErrUpstreamStatus means an upstream API answered with a non-success status
// and no cached fallback exists. Surfaced as HTTP 502 with the status echoed.
type ErrUpstreamStatus struct {
	Upstream string
	Status   int
}

func (e *ErrUpstreamStatus) Error() string {
	return fmt.Sprintf("%s responded with status %d", e.Upstream, e.Status)
}

// RateLimitError means GitHub signaled a rate limit. RetryAfter is derived from
// the X-RateLimit-Reset header when present.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e == nil {
		return "rate limit"
	}
	if e.Message != "" {
		return e.Message
	}
	return "rate limit exceeded"
}

// Server errors

type ErrServerStart struct {
	Addr string
	Err  error
}

func (e *ErrServerStart) Error() string {
	return fmt.Sprintf("failed to start server on %s: %v", e.Addr, e.Err)
}

func (e *ErrServerStart) Unwrap() error {
	return e.Err
}

type ErrServerShutdown struct {
	Err error
}

func (e *ErrServerShutdown) Error() string {
	return fmt.Sprintf("server shutdown failed: %v", e.Err)
}

func (e *ErrServerShutdown) Unwrap() error {
	return e.Err
}

// Filesystem errors

type ErrDirectoryCreate struct {
	Path string
	Err  error
}

func (e *ErrDirectoryCreate) Error() string {
	return fmt.Sprintf("failed to create directory %s: %v", e.Path, e.Err)
}

func (e *ErrDirectoryCreate) Unwrap() error {
	return e.Err
}

type ErrFileRead struct {
	Path string
	Err  error
}

func (e *ErrFileRead) Error() string {
	return fmt.Sprintf("failed to read file %s: %v", e.Path, e.Err)
}

func (e *ErrFileRead) Unwrap() error {
	return e.Err
}
