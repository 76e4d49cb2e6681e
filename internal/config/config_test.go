package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/debtcheck/debtcheck/internal/errors"
)

const minimalYAML = `
version: "1"
server:
  http_port: 9090
database:
  path: ./data/test.db
cache:
  fresh_window: 10m
  ttl: 1h
providers:
  github:
    client_id: abc
    client_secret: secret
`

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 30, cfg.Cache.PageSize)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.BaseURL)
	assert.Equal(t, 20*time.Second, cfg.GitHub.Timeout)
	assert.Equal(t, "X-API-Key", cfg.API.Auth.HeaderName)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Parse([]byte(minimalYAML))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "bad port",
			mutate: func(c *Config) { c.Server.HTTPPort = 70000 },
			errMsg: "http_port",
		},
		{
			name:   "unknown cache backend",
			mutate: func(c *Config) { c.Cache.Backend = "memcached" },
			errMsg: "cache.backend",
		},
		{
			name:   "redis backend without addr",
			mutate: func(c *Config) { c.Cache.Backend = "redis" },
			errMsg: "cache.redis.addr",
		},
		{
			name:   "ttl below fresh window",
			mutate: func(c *Config) { c.Cache.TTL = c.Cache.FreshWindow - time.Minute },
			errMsg: "must be >= cache.fresh_window",
		},
		{
			name:   "page size too large",
			mutate: func(c *Config) { c.Cache.PageSize = 500 },
			errMsg: "page_size",
		},
		{
			name:   "missing database path",
			mutate: func(c *Config) { c.Database.Path = "" },
			errMsg: "database.path",
		},
		{
			name:   "invalid analysis url",
			mutate: func(c *Config) { c.Analysis.URL = "not a url" },
			errMsg: "analysis.url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("server: [not a map"))
	require.Error(t, err)

	var parseErr *apperrors.ErrConfigParse
	assert.ErrorAs(t, err, &parseErr)
}

func TestLoaderEnvSubstitution(t *testing.T) {
	t.Setenv("DEBTCHECK_TEST_SECRET", "from-env")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := minimalYAML + `
analysis:
  url: http://localhost:9999
api:
  auth:
    session_secret: ${DEBTCHECK_TEST_SECRET}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	loader := NewLoader(path)
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.API.Auth.SessionSecret)
	assert.Same(t, cfg, loader.Get())
}

func TestLoaderMissingFile(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := loader.Load()
	require.Error(t, err)

	var notFound *apperrors.ErrConfigNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestLoaderReloadCallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o600))

	loader := NewLoader(path)
	_, err := loader.Load()
	require.NoError(t, err)

	var got *Config
	loader.SetOnChange(func(c *Config) { got = c })

	updated := []byte(minimalYAML + "\nanalysis:\n  url: http://localhost:9999\n")
	require.NoError(t, os.WriteFile(path, updated, 0o600))

	cfg, err := loader.Reload()
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
	assert.Equal(t, "http://localhost:9999", got.Analysis.URL)
}
