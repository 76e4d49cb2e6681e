package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/debtcheck/debtcheck/internal/errors"
	"github.com/debtcheck/debtcheck/internal/logging"
	"github.com/debtcheck/debtcheck/internal/models"
	_ "modernc.org/sqlite"
)

// SQLiteStore provides a SQLite-backed account store with WAL mode.
// It is thread-safe and supports concurrent access.
type SQLiteStore struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewSQLiteStore creates a new SQLite store with WAL mode enabled
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &errors.ErrDirectoryCreate{Path: dir, Err: err}
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, &errors.ErrDatabaseOpen{Path: dbPath, Err: err}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &errors.ErrDatabaseOpen{Path: dbPath, Err: err}
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{
		db:     db,
		logger: logging.NewLogger(),
	}, nil
}

func runMigrations(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	provider TEXT NOT NULL,
	provider_account_id TEXT,
	access_token TEXT NOT NULL,
	refresh_token TEXT,
	expires_at INTEGER,
	scope TEXT,
	token_type TEXT,
	needs_reconnect INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE(user_id, provider)
);
CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id);
`
	if _, err := db.Exec(schema); err != nil {
		return &errors.ErrDatabaseMigration{Version: 1, Err: err}
	}
	return nil
}

// GetAccount retrieves the account for a user and provider family
func (s *SQLiteStore) GetAccount(userID string, provider models.Provider) (*models.Account, bool) {
	row := s.db.QueryRow(`
		SELECT id, user_id, provider, provider_account_id, access_token,
		       refresh_token, expires_at, scope, token_type, needs_reconnect,
		       created_at, updated_at
		FROM accounts WHERE user_id = ? AND provider = ?`, userID, string(provider))

	acc, err := scanAccount(row)
	if err != nil {
		if err != sql.ErrNoRows {
			s.logger.Error("failed to read account", "user_id", userID, "provider", string(provider), "error", err.Error())
		}
		return nil, false
	}
	return acc, true
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		acc               models.Account
		providerRaw       string
		providerAccountID sql.NullString
		refreshToken      sql.NullString
		expiresAt         sql.NullInt64
		scope             sql.NullString
		tokenType         sql.NullString
		needsReconnect    int
	)

	err := row.Scan(&acc.ID, &acc.UserID, &providerRaw, &providerAccountID,
		&acc.AccessToken, &refreshToken, &expiresAt, &scope, &tokenType,
		&needsReconnect, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return nil, err
	}

	acc.Provider = models.Provider(providerRaw)
	acc.ProviderAccountID = providerAccountID.String
	acc.RefreshToken = refreshToken.String
	if expiresAt.Valid {
		v := expiresAt.Int64
		acc.ExpiresAt = &v
	}
	acc.Scope = scope.String
	acc.TokenType = tokenType.String
	acc.NeedsReconnect = needsReconnect != 0

	return &acc, nil
}

// SetAccount inserts or replaces the account row for (UserID, Provider)
func (s *SQLiteStore) SetAccount(acc *models.Account) error {
	if err := acc.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	createdAt := acc.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	var expiresAt interface{}
	if acc.ExpiresAt != nil {
		expiresAt = *acc.ExpiresAt
	}

	_, err := s.db.Exec(`
		INSERT INTO accounts (id, user_id, provider, provider_account_id, access_token,
			refresh_token, expires_at, scope, token_type, needs_reconnect, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, provider) DO UPDATE SET
			provider_account_id = excluded.provider_account_id,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			scope = excluded.scope,
			token_type = excluded.token_type,
			needs_reconnect = excluded.needs_reconnect,
			updated_at = excluded.updated_at`,
		acc.ID, acc.UserID, string(acc.Provider), acc.ProviderAccountID, acc.AccessToken,
		acc.RefreshToken, expiresAt, acc.Scope, acc.TokenType, boolToInt(acc.NeedsReconnect),
		createdAt, now)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "set_account", Err: err}
	}
	return nil
}

// UpdateAccountTokens persists a refreshed token set for an account row.
// An empty refreshToken keeps the stored one (providers may not rotate it).
func (s *SQLiteStore) UpdateAccountTokens(id, accessToken, refreshToken string, expiresAt *int64) error {
	var expires interface{}
	if expiresAt != nil {
		expires = *expiresAt
	}

	_, err := s.db.Exec(`
		UPDATE accounts SET
			access_token = ?,
			refresh_token = CASE WHEN ? != '' THEN ? ELSE refresh_token END,
			expires_at = ?,
			needs_reconnect = 0,
			updated_at = ?
		WHERE id = ?`,
		accessToken, refreshToken, refreshToken, expires, time.Now().UTC(), id)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "update_account_tokens", Err: err}
	}
	return nil
}

// SetNeedsReconnect flags an account whose refresh path is broken
func (s *SQLiteStore) SetNeedsReconnect(id string, needs bool) error {
	_, err := s.db.Exec(`UPDATE accounts SET needs_reconnect = ?, updated_at = ? WHERE id = ?`,
		boolToInt(needs), time.Now().UTC(), id)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "set_needs_reconnect", Err: err}
	}
	return nil
}

// DeleteAccount removes the account row if present
func (s *SQLiteStore) DeleteAccount(userID string, provider models.Provider) bool {
	res, err := s.db.Exec(`DELETE FROM accounts WHERE user_id = ? AND provider = ?`,
		userID, string(provider))
	if err != nil {
		s.logger.Error("failed to delete account", "user_id", userID, "provider", string(provider), "error", err.Error())
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

// ListAccounts returns all linked accounts
func (s *SQLiteStore) ListAccounts() []*models.Account {
	rows, err := s.db.Query(`
		SELECT id, user_id, provider, provider_account_id, access_token,
		       refresh_token, expires_at, scope, token_type, needs_reconnect,
		       created_at, updated_at
		FROM accounts ORDER BY user_id, provider`)
	if err != nil {
		s.logger.Error("failed to list accounts", "error", err.Error())
		return nil
	}
	defer rows.Close()

	var result []*models.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			s.logger.Error("failed to scan account row", "error", err.Error())
			continue
		}
		result = append(result, acc)
	}
	return result
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
