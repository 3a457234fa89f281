package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/dialndine/omnidesk/backend/internal/types"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// SQLiteStore is the default override store: a single-table SQLite file.
// WAL mode keeps the post-merge read consistent with the latest write.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	logger zerolog.Logger
}

// NewSQLiteStore opens (and migrates) the override database at path.
// Use ":memory:" for an in-memory database in tests.
func NewSQLiteStore(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open override database: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger.With().Str("component", "sqlite_store").Logger(),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate override database: %w", err)
	}

	s.logger.Info().Str("path", path).Msg("SQLite override store initialized")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS status_overrides (
		agent_key  TEXT PRIMARY KEY,
		status     TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`
	_, err := s.db.Exec(schema)
	return err
}

// Overrides returns the full persisted override map
func (s *SQLiteStore) Overrides(ctx context.Context) (map[string]types.AgentStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT agent_key, status FROM status_overrides`)
	if err != nil {
		return nil, fmt.Errorf("failed to query overrides: %w", err)
	}
	defer rows.Close()

	overrides := make(map[string]types.AgentStatus)
	for rows.Next() {
		var key, status string
		if err := rows.Scan(&key, &status); err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		overrides[key] = types.AgentStatus(status)
	}
	return overrides, rows.Err()
}

// SetStatus upserts one override. Last write wins.
func (s *SQLiteStore) SetStatus(ctx context.Context, agentKey string, status types.AgentStatus) error {
	if agentKey == "" {
		return fmt.Errorf("agent key is required")
	}
	if err := validateStatus(status); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO status_overrides (agent_key, status, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(agent_key) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at`,
		agentKey, string(status), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to persist override: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
