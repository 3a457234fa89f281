// Package store persists the status overrides - the single piece of
// state that survives reconciliation passes and process restarts. Every
// mutation path (login, logout, manual status change) goes through
// SetStatus so the persisted map and the in-memory agent set stay
// consistent.
package store

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dialndine/omnidesk/backend/internal/types"
	"github.com/rs/zerolog"
)

// Store defines the status override storage interface
type Store interface {
	// Overrides returns the full agentKey -> status map
	Overrides(ctx context.Context) (map[string]types.AgentStatus, error)
	// SetStatus persists an override immediately
	SetStatus(ctx context.Context, agentKey string, status types.AgentStatus) error
	Close() error
}

// Mode selects the storage backend
type Mode string

const (
	ModeSQLite      Mode = "sqlite"
	ModeDynamoLocal Mode = "dynamo-local"
	ModeDynamoAWS   Mode = "dynamo-aws"
)

// Config holds storage configuration
type Config struct {
	Mode Mode

	// SQLite
	Path string

	// DynamoDB
	Endpoint string // for local mode
	Region   string
	Table    string
}

// LoadConfig loads storage config from environment
func LoadConfig() Config {
	mode := Mode(getEnv("STORE_MODE", "sqlite"))
	if mode != ModeDynamoLocal && mode != ModeDynamoAWS {
		mode = ModeSQLite
	}

	return Config{
		Mode:     mode,
		Path:     getEnv("STORE_PATH", "omnidesk.db"),
		Endpoint: getEnv("DYNAMO_ENDPOINT", "http://localhost:8000"),
		Region:   getEnv("DYNAMO_REGION", "eu-central-1"),
		Table:    getEnv("DYNAMO_OVERRIDES_TABLE", "omnidesk-status-overrides"),
	}
}

// New creates the appropriate store based on configuration
func New(ctx context.Context, logger zerolog.Logger) (Store, error) {
	cfg := LoadConfig()

	switch cfg.Mode {
	case ModeDynamoLocal, ModeDynamoAWS:
		return NewDynamoStore(ctx, cfg, logger)
	default:
		return NewSQLiteStore(cfg.Path, logger)
	}
}

// ApplyOverrides replaces the merge-computed status of every agent that
// has a stored override. Override keys are matched against the agent key
// and, because an agent first seen without an email is keyed by name
// slug, against the lowercased email as well. Agents with no override
// keep their merge-computed default.
func ApplyOverrides(agents []*types.Agent, overrides map[string]types.AgentStatus) {
	if len(overrides) == 0 {
		return
	}
	for _, a := range agents {
		if status, ok := overrides[a.ID]; ok {
			a.Status = status
			continue
		}
		if a.Email != "" {
			if status, ok := overrides[strings.ToLower(a.Email)]; ok {
				a.Status = status
			}
		}
	}
}

// OverrideKey returns the canonical override key for an agent: the
// lowercased email when known, otherwise the agent ID.
func OverrideKey(a *types.Agent) string {
	if a.Email != "" {
		return strings.ToLower(a.Email)
	}
	return a.ID
}

func validateStatus(status types.AgentStatus) error {
	if !types.ValidStatus(status) {
		return fmt.Errorf("invalid status %q", status)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
