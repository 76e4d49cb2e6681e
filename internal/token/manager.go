// Package token owns the OAuth token lifecycle for linked provider accounts:
// callers always receive a non-expired access token or an explicit failure.
package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/debtcheck/debtcheck/internal/config"
	apperrors "github.com/debtcheck/debtcheck/internal/errors"
	"github.com/debtcheck/debtcheck/internal/logging"
	"github.com/debtcheck/debtcheck/internal/metrics"
	"github.com/debtcheck/debtcheck/internal/models"
	"github.com/debtcheck/debtcheck/internal/store"
)

// expiryMargin is subtracted from provider-reported expiry to avoid races
// with the provider's own clock.
const expiryMargin = 60 * time.Second

const (
	defaultGitHubTokenURL     = "https://github.com/login/oauth/access_token"
	defaultGitHubRevokeURL    = "https://api.github.com/applications/%s/token"
	defaultAtlassianTokenURL  = "https://auth.atlassian.com/oauth/token"
	defaultAtlassianRevokeURL = "https://auth.atlassian.com/oauth/revoke"
)

// Manager refreshes and revokes provider access tokens, lazily on read.
// Concurrent refreshes for the same account are not de-duplicated; the
// persisted row is last-writer-wins, which providers tolerate.
type Manager struct {
	store     store.Store
	github    config.OAuthClientConfig
	atlassian config.OAuthClientConfig
	client    *http.Client
	logger    *logging.Logger
	metrics   *metrics.Metrics
	now       func() time.Time

	githubTokenURL     string
	githubRevokeURL    string
	atlassianTokenURL  string
	atlassianRevokeURL string
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// WithMetrics enables refresh instrumentation.
func WithMetrics(m *metrics.Metrics) ManagerOption {
	return func(mgr *Manager) { mgr.metrics = m }
}

// WithHTTPClient sets the HTTP client used for refresh and revoke calls.
func WithHTTPClient(c *http.Client) ManagerOption {
	return func(m *Manager) { m.client = c }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithEndpoints overrides provider endpoint URLs, for tests.
func WithEndpoints(githubToken, githubRevoke, atlassianToken, atlassianRevoke string) ManagerOption {
	return func(m *Manager) {
		if githubToken != "" {
			m.githubTokenURL = githubToken
		}
		if githubRevoke != "" {
			m.githubRevokeURL = githubRevoke
		}
		if atlassianToken != "" {
			m.atlassianTokenURL = atlassianToken
		}
		if atlassianRevoke != "" {
			m.atlassianRevokeURL = atlassianRevoke
		}
	}
}

// NewManager creates a token lifecycle manager for the two provider families.
func NewManager(s store.Store, providers config.ProvidersConfig, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:              s,
		github:             providers.GitHub,
		atlassian:          providers.Atlassian,
		client:             &http.Client{Timeout: 15 * time.Second},
		logger:             logging.NewLogger(),
		now:                time.Now,
		githubTokenURL:     defaultGitHubTokenURL,
		githubRevokeURL:    defaultGitHubRevokeURL,
		atlassianTokenURL:  defaultAtlassianTokenURL,
		atlassianRevokeURL: defaultAtlassianRevokeURL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EnsureFreshAccessToken returns a currently-valid access token for the user
// and provider family, refreshing transparently when the stored token is
// expired. An unexpired stored token is returned without any provider I/O.
func (m *Manager) EnsureFreshAccessToken(ctx context.Context, userID string, provider models.Provider) (string, *models.Account, error) {
	if userID == "" {
		return "", nil, fmt.Errorf("user ID is required")
	}
	if !provider.Valid() {
		return "", nil, fmt.Errorf("unsupported provider: %q", provider)
	}

	acc, ok := m.store.GetAccount(userID, provider)
	if !ok || acc.AccessToken == "" {
		return "", nil, &apperrors.ErrNotLinked{UserID: userID, Provider: provider}
	}

	// A broken refresh path fails fast until the user reconnects.
	if acc.NeedsReconnect {
		return "", nil, &apperrors.ErrRefreshFailed{Provider: provider, Err: fmt.Errorf("account needs reconnect")}
	}

	if !acc.IsExpired(m.now()) {
		return acc.AccessToken, acc, nil
	}

	if acc.RefreshToken == "" {
		return "", nil, &apperrors.ErrRefreshUnavailable{Provider: provider}
	}

	newTok, err := m.refresh(ctx, provider, acc.RefreshToken)
	if err != nil {
		if m.metrics != nil {
			m.metrics.RecordTokenRefresh(string(provider), "failure")
		}
		if serr := m.store.SetNeedsReconnect(acc.ID, true); serr != nil {
			m.logger.ErrorWithContext(ctx, "failed to flag account for reconnect", "account_id", acc.ID, "error", serr.Error())
		}
		logging.NewAuditEvent(logging.TokenRefresh, "token refresh", logging.StatusFailure).
			WithUserID(userID).WithProvider(string(provider)).WithError(err.Error()).Emit(m.logger)
		return "", nil, &apperrors.ErrRefreshFailed{Provider: provider, Err: err}
	}

	var expiresAt *int64
	if !newTok.Expiry.IsZero() {
		epoch := newTok.Expiry.Add(-expiryMargin).Unix()
		expiresAt = &epoch
	}

	if err := m.store.UpdateAccountTokens(acc.ID, newTok.AccessToken, newTok.RefreshToken, expiresAt); err != nil {
		return "", nil, err
	}

	acc.AccessToken = newTok.AccessToken
	if newTok.RefreshToken != "" {
		acc.RefreshToken = newTok.RefreshToken
	}
	acc.ExpiresAt = expiresAt
	acc.NeedsReconnect = false

	if m.metrics != nil {
		m.metrics.RecordTokenRefresh(string(provider), "success")
	}
	logging.NewAuditEvent(logging.TokenRefresh, "token refreshed", logging.StatusSuccess).
		WithUserID(userID).WithProvider(string(provider)).Emit(m.logger)

	return acc.AccessToken, acc, nil
}

// refresh performs the grant_type=refresh_token exchange for the family.
func (m *Manager) refresh(ctx context.Context, provider models.Provider, refreshToken string) (*oauth2.Token, error) {
	var cfg oauth2.Config
	switch provider {
	case models.ProviderGitHub:
		cfg = oauth2.Config{
			ClientID:     m.github.ClientID,
			ClientSecret: m.github.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: m.githubTokenURL},
		}
	case models.ProviderAtlassian:
		cfg = oauth2.Config{
			ClientID:     m.atlassian.ClientID,
			ClientSecret: m.atlassian.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: m.atlassianTokenURL, AuthStyle: oauth2.AuthStyleInParams},
		}
	default:
		return nil, fmt.Errorf("unsupported provider: %q", provider)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.client)
	src := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	tok, err := src.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("provider response missing access_token")
	}
	return tok, nil
}

// Disconnect revokes the stored token at the provider (best effort, failures
// are swallowed) and deletes the local account row. Absence of a row is
// treated as success.
func (m *Manager) Disconnect(ctx context.Context, userID string, provider models.Provider) error {
	acc, ok := m.store.GetAccount(userID, provider)
	if !ok {
		return nil
	}

	if err := m.revoke(ctx, provider, acc); err != nil {
		m.logger.WarnWithContext(ctx, "token revocation failed",
			"user_id", userID, "provider", string(provider), "error", err.Error())
	}

	m.store.DeleteAccount(userID, provider)

	logging.NewAuditEvent(logging.AccountDisconnect, "account disconnected", logging.StatusSuccess).
		WithUserID(userID).WithProvider(string(provider)).Emit(m.logger)

	return nil
}

func (m *Manager) revoke(ctx context.Context, provider models.Provider, acc *models.Account) error {
	switch provider {
	case models.ProviderGitHub:
		body, _ := json.Marshal(map[string]string{"access_token": acc.AccessToken})
		url := fmt.Sprintf(m.githubRevokeURL, m.github.ClientID)
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.SetBasicAuth(m.github.ClientID, m.github.ClientSecret)
		req.Header.Set("Accept", "application/vnd.github+json")
		return m.doRevoke(req)

	case models.ProviderAtlassian:
		tok := acc.RefreshToken
		if tok == "" {
			tok = acc.AccessToken
		}
		body, _ := json.Marshal(map[string]string{"token": tok})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.atlassianRevokeURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		return m.doRevoke(req)
	}
	return nil
}

func (m *Manager) doRevoke(req *http.Request) error {
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("revoke endpoint responded with status %d", resp.StatusCode)
	}
	return nil
}

// Status reports the link state for both provider families for one user.
func (m *Manager) Status(userID string) map[string]ProviderStatus {
	result := make(map[string]ProviderStatus, 2)
	for _, provider := range []models.Provider{models.ProviderGitHub, models.ProviderAtlassian} {
		st := ProviderStatus{}
		if acc, ok := m.store.GetAccount(userID, provider); ok {
			st.Linked = true
			st.ExpiresAt = acc.ExpiresAt
			st.NeedsReconnect = acc.NeedsReconnect
		}
		result[string(provider)] = st
	}
	return result
}

// ProviderStatus is the link state of one provider family.
type ProviderStatus struct {
	Linked         bool   `json:"linked"`
	ExpiresAt      *int64 `json:"expiresAt,omitempty"`
	NeedsReconnect bool   `json:"needsReconnect"`
}
