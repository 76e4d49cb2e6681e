// Package api exposes DebtCheck over HTTP: the cached repository listing,
// provider account lifecycle, Jira integration and analysis delegation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/debtcheck/debtcheck/internal/analysis"
	"github.com/debtcheck/debtcheck/internal/cache"
	"github.com/debtcheck/debtcheck/internal/config"
	"github.com/debtcheck/debtcheck/internal/errors"
	"github.com/debtcheck/debtcheck/internal/github"
	"github.com/debtcheck/debtcheck/internal/jira"
	"github.com/debtcheck/debtcheck/internal/logging"
	"github.com/debtcheck/debtcheck/internal/metrics"
	"github.com/debtcheck/debtcheck/internal/models"
	"github.com/debtcheck/debtcheck/internal/repocache"
	"github.com/debtcheck/debtcheck/internal/store"
	"github.com/debtcheck/debtcheck/internal/token"
)

// Deps bundles the service dependencies the server routes requests to.
type Deps struct {
	Store    store.Store
	Cache    cache.TTLStore
	Tokens   *token.Manager
	Repos    *repocache.Fetcher
	GitHub   *github.Client
	Jira     *jira.Client
	Analysis *analysis.Client
	Metrics  *metrics.Metrics
	Logger   *logging.Logger
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	config      config.ServerConfig
	apiConfig   config.APIConfig
	deps        Deps
	metrics     *metrics.Metrics
	logger      *logging.Logger
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
	demo        bool
}

// Router returns the gin router for testing purposes
func (s *Server) Router() *gin.Engine {
	return s.router
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)

	m := deps.Metrics
	if m == nil {
		m = metrics.NewMetrics("debtcheck")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewLogger()
	}

	requestsPerMinute := cfg.API.RateLimit.RequestsPerMinute
	if requestsPerMinute <= 0 {
		requestsPerMinute = 1000
	}
	burst := cfg.API.RateLimit.Burst
	if burst <= 0 {
		burst = 100
	}
	rateLimiter := newIPRateLimiter(time.Minute/time.Duration(requestsPerMinute), burst)

	server := &Server{
		router:      gin.New(),
		config:      cfg.Server,
		apiConfig:   cfg.API,
		deps:        deps,
		metrics:     m,
		logger:      logger,
		rateLimiter: rateLimiter,
		demo:        cfg.Analysis.Demo,
	}
	server.router.HandleMethodNotAllowed = true

	server.router.Use(gin.Recovery())
	server.router.Use(rateLimitMiddleware(rateLimiter))
	server.router.Use(bodyLimitMiddleware(1 << 20))
	server.router.Use(metrics.Middleware(m, logger))
	server.router.Use(loggingMiddleware(logger))

	server.setupRoutes()
	return server
}

// loggingMiddleware provides structured logging for all requests
func loggingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		correlationID := c.GetHeader("X-Correlation-ID")
		if correlationID == "" {
			correlationID = logging.GenerateCorrelationID()
		}

		ctx := logging.WithCorrelationID(c.Request.Context(), correlationID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		duration := time.Since(start).Seconds()
		logger.InfoWithContext(ctx, "request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_seconds", duration,
		)
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint - NO authentication required
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	// Health check - NO authentication required
	s.router.GET("/health", s.handleHealth)

	apiKeyAuth := APIKeyAuth(s.apiConfig.Auth.APIKeys, s.apiConfig.Auth.HeaderName, s.logger)
	sessionAuth := SessionAuth(s.apiConfig.Auth.SessionSecret, s.logger)

	// Account linking - service-to-service, API key only. The auth frontend
	// calls this after completing an OAuth flow on the user's behalf.
	linkGroup := s.router.Group("/api/accounts")
	linkGroup.Use(apiKeyAuth)
	{
		linkGroup.POST("/link", s.handleLinkAccount)
	}

	// User-facing endpoints - require an authenticated session
	userGroup := s.router.Group("/api")
	userGroup.Use(apiKeyAuth, sessionAuth)
	{
		userGroup.GET("/github/repos", s.handleListRepos)
		userGroup.GET("/github/health", s.handleRepoHealth)
		userGroup.DELETE("/github", s.handleDisconnect(models.ProviderGitHub))

		userGroup.GET("/providers/status", s.handleProviderStatus)

		userGroup.GET("/jira/projects", s.handleJiraProjects)
		userGroup.GET("/jira/issues", s.handleJiraIssues)
		userGroup.POST("/jira/issues", s.handleCreateJiraIssue)
		userGroup.DELETE("/jira", s.handleDisconnect(models.ProviderAtlassian))

		userGroup.POST("/analyze", s.handleAnalyze)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.HTTPPort)

	if s.httpServer == nil {
		s.httpServer = NewHTTPServer(addr, s.router)
	}

	s.logger.Info("starting HTTP server", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// StartWithServer starts the server with a pre-configured http.Server
func (s *Server) StartWithServer(srv *http.Server) error {
	s.httpServer = srv
	s.logger.Info("starting HTTP server", "addr", srv.Addr)
	return srv.ListenAndServe()
}

// Shutdown gracefully shuts down the server and its stores
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	var wg sync.WaitGroup
	errs := make(chan error, 3)

	if s.httpServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.logger.Info("shutting down HTTP server")
			if err := s.httpServer.Shutdown(ctx); err != nil {
				s.logger.Error("HTTP server shutdown error", "error", err.Error())
				errs <- &errors.ErrServerShutdown{Err: err}
			}
		}()
	}

	if s.deps.Cache != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.deps.Cache.Close(); err != nil {
				errs <- fmt.Errorf("cache close: %w", err)
			}
		}()
	}

	if s.deps.Store != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.deps.Store.Close(); err != nil {
				errs <- fmt.Errorf("store close: %w", err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	close(errs)
	var errList []error
	for err := range errs {
		if err != nil {
			errList = append(errList, err)
		}
	}
	if len(errList) > 0 {
		return fmt.Errorf("shutdown errors: %v", errList)
	}

	s.logger.Info("graceful shutdown completed")
	return nil
}

// handleHealth returns health status
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}
