package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config represents the complete application configuration.
type Config struct {
	Version   string          `yaml:"version"`
	Server    ServerConfig    `yaml:"server"`
	API       APIConfig       `yaml:"api"`
	Database  DatabaseConfig  `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
	Providers ProvidersConfig `yaml:"providers"`
	GitHub    GitHubConfig    `yaml:"github"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
}

// ServerConfig contains server-related configuration.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	HTTPPort        int           `yaml:"http_port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`
}

// APIConfig contains API-related configuration.
type APIConfig struct {
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// AuthConfig contains authentication configuration.
type AuthConfig struct {
	APIKeys       []string `yaml:"api_keys"`
	HeaderName    string   `yaml:"header_name"`
	SessionSecret string   `yaml:"session_secret"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

// DatabaseConfig contains the account store configuration.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig configures the repository-listing page cache.
// FreshWindow governs how soon a stored page must be revalidated upstream;
// TTL governs how long the backing store keeps an entry available as a
// degraded fallback. TTL must be >= FreshWindow.
type CacheConfig struct {
	Backend     string        `yaml:"backend"` // "memory" or "redis"
	Redis       RedisConfig   `yaml:"redis"`
	FreshWindow time.Duration `yaml:"fresh_window"`
	TTL         time.Duration `yaml:"ttl"`
	PageSize    int           `yaml:"page_size"`
}

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ProvidersConfig holds OAuth client credentials per provider family.
type ProvidersConfig struct {
	GitHub    OAuthClientConfig `yaml:"github"`
	Atlassian OAuthClientConfig `yaml:"atlassian"`
}

// OAuthClientConfig contains one OAuth application's credentials.
type OAuthClientConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// GitHubConfig contains GitHub REST API client configuration.
type GitHubConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// AnalysisConfig configures the external static-analysis service client.
type AnalysisConfig struct {
	URL      string        `yaml:"url"`
	Timeout  time.Duration `yaml:"timeout"`
	RetryMax int           `yaml:"retry_max"`
	Demo     bool          `yaml:"demo"`
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port must be between 1 and 65535, got %d", c.Server.HTTPPort)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout cannot be negative")
	}

	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be \"memory\" or \"redis\", got %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required for the redis backend")
	}
	if c.Cache.FreshWindow <= 0 {
		return fmt.Errorf("cache.fresh_window must be positive")
	}
	if c.Cache.TTL < c.Cache.FreshWindow {
		return fmt.Errorf("cache.ttl (%s) must be >= cache.fresh_window (%s)", c.Cache.TTL, c.Cache.FreshWindow)
	}
	if c.Cache.PageSize < 1 || c.Cache.PageSize > 100 {
		return fmt.Errorf("cache.page_size must be between 1 and 100, got %d", c.Cache.PageSize)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Analysis.URL != "" {
		if _, err := url.ParseRequestURI(c.Analysis.URL); err != nil {
			return fmt.Errorf("analysis.url is not a valid URL: %v", err)
		}
	}
	if c.Analysis.RetryMax < 0 {
		return fmt.Errorf("analysis.retry_max cannot be negative")
	}

	if c.API.RateLimit.RequestsPerMinute < 0 || c.API.RateLimit.Burst < 0 {
		return fmt.Errorf("api.rate_limit values cannot be negative")
	}

	return nil
}

// applyDefaults fills in defaults for fields left unset in the YAML.
func (c *Config) applyDefaults() {
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8480
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.FreshWindow == 0 {
		c.Cache.FreshWindow = 10 * time.Minute
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = time.Hour
	}
	if c.Cache.PageSize == 0 {
		c.Cache.PageSize = 30
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/debtcheck.db"
	}
	if c.GitHub.BaseURL == "" {
		c.GitHub.BaseURL = "https://api.github.com"
	}
	if c.GitHub.Timeout == 0 {
		c.GitHub.Timeout = 20 * time.Second
	}
	if c.Analysis.Timeout == 0 {
		c.Analysis.Timeout = 60 * time.Second
	}
	if c.Analysis.RetryMax == 0 {
		c.Analysis.RetryMax = 2
	}
	if c.API.Auth.HeaderName == "" {
		c.API.Auth.HeaderName = "X-API-Key"
	}
}
