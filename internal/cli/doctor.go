package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/debtcheck/debtcheck/internal/cache"
	"github.com/debtcheck/debtcheck/internal/config"
	"github.com/debtcheck/debtcheck/internal/store"
)

// doctorCmd represents the doctor command
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose system and configuration issues",
	Long: `Perform a system diagnostic for DebtCheck.

This command checks:
- System information (OS, Go version)
- Configuration file validity
- Database accessibility
- Cache backend reachability
- Provider credential presence

Example:
  debtcheck doctor`,
	RunE: runDoctor,
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}

// DoctorCheck represents a single diagnostic check
type DoctorCheck struct {
	Category    string `json:"category"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	Remediation string `json:"remediation,omitempty"`
}

// DoctorReport represents the complete diagnostic report
type DoctorReport struct {
	Timestamp time.Time     `json:"timestamp"`
	Checks    []DoctorCheck `json:"checks"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	report := DoctorReport{
		Timestamp: time.Now().UTC(),
		Checks:    []DoctorCheck{},
	}

	report.Checks = append(report.Checks, DoctorCheck{
		Category: "System",
		Name:     "Runtime",
		Status:   "ok",
		Message:  fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
	})

	cfg, cfgChecks := checkConfiguration(globalFlags.Config)
	report.Checks = append(report.Checks, cfgChecks...)
	report.Checks = append(report.Checks, checkDatabase(globalFlags.DBPath))
	if cfg != nil {
		report.Checks = append(report.Checks, checkCacheBackend(cfg))
		report.Checks = append(report.Checks, checkProviders(cfg)...)
	}

	return outputDoctorReport(report)
}

func checkConfiguration(path string) (*config.Config, []DoctorCheck) {
	if _, err := os.Stat(path); err != nil {
		return nil, []DoctorCheck{{
			Category:    "Config",
			Name:        "File",
			Status:      "fail",
			Message:     fmt.Sprintf("configuration file not found: %s", path),
			Remediation: "create a config file or pass --config",
		}}
	}

	loader := config.NewLoader(path)
	cfg, err := loader.Load()
	if err != nil {
		return nil, []DoctorCheck{{
			Category:    "Config",
			Name:        "Parse",
			Status:      "fail",
			Message:     err.Error(),
			Remediation: "fix the configuration file",
		}}
	}

	return cfg, []DoctorCheck{{
		Category: "Config",
		Name:     "File",
		Status:   "ok",
		Message:  fmt.Sprintf("loaded and validated %s", path),
	}}
}

func checkDatabase(path string) DoctorCheck {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return DoctorCheck{
			Category:    "Database",
			Name:        "Directory",
			Status:      "fail",
			Message:     err.Error(),
			Remediation: "check directory permissions for " + dir,
		}
	}

	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return DoctorCheck{
			Category:    "Database",
			Name:        "Open",
			Status:      "fail",
			Message:     err.Error(),
			Remediation: "check the database file at " + path,
		}
	}
	defer s.Close()

	return DoctorCheck{
		Category: "Database",
		Name:     "Open",
		Status:   "ok",
		Message:  fmt.Sprintf("%s opened, %d linked account(s)", path, len(s.ListAccounts())),
	}
}

func checkCacheBackend(cfg *config.Config) DoctorCheck {
	if cfg.Cache.Backend != "redis" {
		return DoctorCheck{
			Category: "Cache",
			Name:     "Backend",
			Status:   "ok",
			Message:  "in-memory cache configured",
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	c, err := cache.NewRedisTTLStore(ctx, cfg.Cache.Redis)
	if err != nil {
		return DoctorCheck{
			Category:    "Cache",
			Name:        "Redis",
			Status:      "fail",
			Message:     err.Error(),
			Remediation: "check cache.redis.addr and that Redis is running",
		}
	}
	c.Close()

	return DoctorCheck{
		Category: "Cache",
		Name:     "Redis",
		Status:   "ok",
		Message:  "redis reachable at " + cfg.Cache.Redis.Addr,
	}
}

func checkProviders(cfg *config.Config) []DoctorCheck {
	checks := []DoctorCheck{}
	for name, creds := range map[string]config.OAuthClientConfig{
		"GitHub":    cfg.Providers.GitHub,
		"Atlassian": cfg.Providers.Atlassian,
	} {
		check := DoctorCheck{Category: "Providers", Name: name, Status: "ok", Message: "client credentials configured"}
		if creds.ClientID == "" || creds.ClientSecret == "" {
			check.Status = "warn"
			check.Message = "client credentials missing, token refresh and revocation will fail"
			check.Remediation = "set providers." + name + " client_id and client_secret"
		}
		checks = append(checks, check)
	}
	return checks
}

func outputDoctorReport(report DoctorReport) error {
	failed := false
	for _, check := range report.Checks {
		if check.Status == "fail" {
			failed = true
		}
	}

	if globalFlags.JSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CATEGORY\tCHECK\tSTATUS\tMESSAGE")
		for _, check := range report.Checks {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", check.Category, check.Name, check.Status, check.Message)
			if check.Remediation != "" {
				fmt.Fprintf(w, "\t\t\t-> %s\n", check.Remediation)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if failed {
		return fmt.Errorf("one or more checks failed")
	}
	return nil
}
