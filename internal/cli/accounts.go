package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/debtcheck/debtcheck/internal/store"
)

// accountsCmd lists linked provider accounts from the local store.
var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List linked provider accounts",
	Long: `List the provider accounts linked in the local database, including
token expiry and whether the account needs a reconnect.

Example:
  debtcheck accounts --db ./data/debtcheck.db`,
	RunE: runAccounts,
}

func init() {
	RootCmd.AddCommand(accountsCmd)
}

// accountRow is the JSON shape of one listed account. Token material is
// never printed.
type accountRow struct {
	UserID         string `json:"user_id"`
	Provider       string `json:"provider"`
	ExpiresAt      string `json:"expires_at,omitempty"`
	HasRefresh     bool   `json:"has_refresh_token"`
	NeedsReconnect bool   `json:"needs_reconnect"`
}

func runAccounts(cmd *cobra.Command, args []string) error {
	s, err := store.NewSQLiteStore(globalFlags.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	rows := []accountRow{}
	for _, acc := range s.ListAccounts() {
		row := accountRow{
			UserID:         acc.UserID,
			Provider:       string(acc.Provider),
			HasRefresh:     acc.RefreshToken != "",
			NeedsReconnect: acc.NeedsReconnect,
		}
		if acc.ExpiresAt != nil {
			row.ExpiresAt = time.Unix(*acc.ExpiresAt, 0).UTC().Format(time.RFC3339)
		}
		rows = append(rows, row)
	}

	if globalFlags.JSON {
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if len(rows) == 0 {
		fmt.Println("No linked accounts.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USER\tPROVIDER\tEXPIRES\tREFRESH\tRECONNECT")
	for _, row := range rows {
		expires := "never"
		if row.ExpiresAt != "" {
			expires = row.ExpiresAt
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%v\n", row.UserID, row.Provider, expires, row.HasRefresh, row.NeedsReconnect)
	}
	return w.Flush()
}
