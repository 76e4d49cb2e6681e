package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitCLIIsIdempotent(t *testing.T) {
	InitCLI()
	InitCLI()
	assert.NotNil(t, GetRootCommand())
}

func TestExecuteVersion(t *testing.T) {
	InitCLI()
	require.NoError(t, Execute([]string{"version"}))
}

func TestExecuteUnknownCommand(t *testing.T) {
	InitCLI()
	assert.Error(t, Execute([]string{"no-such-command"}))
}

func TestAccountsWithEmptyDatabase(t *testing.T) {
	InitCLI()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	require.NoError(t, Execute([]string{"accounts", "--db", dbPath}))
}

func TestDoctorWithValidConfig(t *testing.T) {
	InitCLI()
	dir := t.TempDir()

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("version: \"1\"\n"), 0o644))
	dbPath := filepath.Join(dir, "doctor.db")

	require.NoError(t, Execute([]string{"doctor", "--config", cfgPath, "--db", dbPath, "--json"}))
}

func TestDoctorMissingConfigFails(t *testing.T) {
	InitCLI()
	dir := t.TempDir()

	err := Execute([]string{"doctor", "--config", filepath.Join(dir, "missing.yaml"), "--db", filepath.Join(dir, "d.db"), "--json"})
	assert.Error(t, err)
}
