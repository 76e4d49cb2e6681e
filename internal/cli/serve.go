package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/debtcheck/debtcheck/internal/analysis"
	"github.com/debtcheck/debtcheck/internal/api"
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

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s", "server", "run"},
	Short:   "Start the DebtCheck server",
	Long: `Start the DebtCheck API server in main mode.

This command starts the HTTP server that serves the cached repository
listing, the provider account lifecycle, Jira integration and analysis
delegation.

Example:
  debtcheck serve --config config.yaml --db ./data/debtcheck.db

The server will start listening on the address configured in the config file.`,
	RunE: runServe,
}

var serveFlags struct {
	Host    string
	Port    int
	Timeout time.Duration
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.Host, "host", "", "Server host (overrides config)")
	serveCmd.Flags().IntVar(&serveFlags.Port, "port", 0, "Server port (overrides config)")
	serveCmd.Flags().DurationVar(&serveFlags.Timeout, "timeout", envDuration("SHUTDOWN_TIMEOUT", 30*time.Second), "Shutdown timeout")

	RootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if globalFlags.Verbose {
		log.Println("Starting DebtCheck server...")
		log.Printf("Config path: %s", globalFlags.Config)
		log.Printf("Database path: %s", globalFlags.DBPath)
	}

	// Load configuration
	loader := config.NewLoader(globalFlags.Config)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Apply CLI flags to config
	if serveFlags.Host != "" {
		cfg.Server.Host = serveFlags.Host
	}
	if serveFlags.Port != 0 {
		cfg.Server.HTTPPort = serveFlags.Port
	}
	if globalFlags.DBPath != "" {
		cfg.Database.Path = globalFlags.DBPath
	}

	logger := logging.NewLogger(
		logging.WithService("debtcheck"),
		logging.WithLevel(logging.LogLevel(cfg.Server.LogLevel)),
	)
	m := metrics.NewMetrics("debtcheck")

	// Create SQLite account store with WAL mode enabled
	accountStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create SQLite store: %w", err)
	}

	pageStore, err := buildPageStore(cfg)
	if err != nil {
		accountStore.Close()
		return err
	}

	if globalFlags.Verbose {
		log.Printf("Database initialized at: %s", cfg.Database.Path)
		log.Printf("Cache backend: %s (fresh=%s ttl=%s)", cfg.Cache.Backend, cfg.Cache.FreshWindow, cfg.Cache.TTL)
	}

	tokens := token.NewManager(accountStore, cfg.Providers, token.WithLogger(logger), token.WithMetrics(m))
	ghClient := github.NewClient(cfg.GitHub.BaseURL, cfg.GitHub.Timeout)
	fetcher := repocache.NewFetcher(pageStore, ghClient,
		cfg.Cache.FreshWindow, cfg.Cache.TTL, cfg.Cache.PageSize,
		repocache.WithLogger(logger), repocache.WithMetrics(m),
	)

	publishLinkedAccounts(accountStore, m)

	server := api.NewServer(cfg, api.Deps{
		Store:    accountStore,
		Cache:    pageStore,
		Tokens:   tokens,
		Repos:    fetcher,
		GitHub:   ghClient,
		Jira:     jira.NewClient("", cfg.GitHub.Timeout),
		Analysis: analysis.NewClient(cfg.Analysis.URL, cfg.Analysis.Timeout, cfg.Analysis.RetryMax, cfg.Analysis.Demo),
		Metrics:  m,
		Logger:   logger,
	})

	// Hot reload only surfaces config changes; live rewiring is not supported.
	loader.SetOnChange(func(updated *config.Config) {
		logging.NewAuditEvent(logging.ConfigChange, "configuration file changed", logging.StatusSuccess).
			WithResource(globalFlags.Config).Emit(logger)
		logger.Warn("configuration changed on disk, restart to apply", "path", globalFlags.Config)
	})
	if err := loader.StartWatcher(); err != nil {
		logger.Warn("config watcher unavailable", "error", err.Error())
	}
	defer loader.StopWatcher()

	setupGracefulShutdown(server, serveFlags.Timeout)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort)
	log.Printf("Starting DebtCheck HTTP server on %s", addr)
	log.Printf("Database: %s (WAL mode enabled)", cfg.Database.Path)

	if err := server.Run(); err != nil && err != http.ErrServerClosed {
		return &errors.ErrServerStart{Addr: addr, Err: err}
	}

	return nil
}

// buildPageStore creates the cache backend the config selects.
func buildPageStore(cfg *config.Config) (cache.TTLStore, error) {
	if cfg.Cache.Backend == "redis" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		pageStore, err := cache.NewRedisTTLStore(ctx, cfg.Cache.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return pageStore, nil
	}
	return cache.NewMemoryTTLStore(), nil
}

// publishLinkedAccounts seeds the linked-account gauges at startup.
func publishLinkedAccounts(s store.Store, m *metrics.Metrics) {
	counts := map[models.Provider]int{
		models.ProviderGitHub:    0,
		models.ProviderAtlassian: 0,
	}
	for _, acc := range s.ListAccounts() {
		counts[acc.Provider]++
	}
	for provider, count := range counts {
		m.SetLinkedAccounts(string(provider), count)
	}
}

// setupGracefulShutdown handles graceful shutdown on SIGINT/SIGTERM
func setupGracefulShutdown(server *api.Server, timeout time.Duration) {
	sigChan := api.SetupSignalHandler()

	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v", sig)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		log.Println("Shutting down API server...")
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Error during server shutdown: %v", err)
		}

		log.Println("Graceful shutdown completed")
		os.Exit(0)
	}()
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	return fallback
}
