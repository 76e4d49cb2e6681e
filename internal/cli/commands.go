package cli

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"
)

var initOnce sync.Once

// InitCLI registers the command tree. Safe to call more than once.
func InitCLI() {
	initOnce.Do(InitRoot)
}

// GetRootCommand returns the root command, for tests that inspect the tree.
func GetRootCommand() *cobra.Command {
	return RootCmd
}

// Execute runs the root command with the given arguments.
func Execute(args []string) error {
	RootCmd.SetArgs(args)
	if err := RootCmd.Execute(); err != nil {
		return fmt.Errorf("command execution failed: %w", err)
	}
	return nil
}

// ExecuteWithErrorCode runs the root command and maps the outcome to a
// process exit code.
func ExecuteWithErrorCode(args []string) int {
	RootCmd.SetArgs(args)
	if err := RootCmd.Execute(); err != nil {
		if globalFlags.Verbose {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}
