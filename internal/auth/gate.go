// Package auth implements the role gate: email-asserted identity mapped
// to one of two fixed roles. There is no password or token exchange with
// an identity provider; the session token exists only so API requests
// after login carry who the user is.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/dialndine/omnidesk/backend/internal/cache"
	"github.com/dialndine/omnidesk/backend/internal/config"
	"github.com/dialndine/omnidesk/backend/internal/types"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when an email matches neither the admin
// address nor any agent in the merged roster
var ErrNotFound = errors.New("email not found in roster")

// Identity is the result of a successful authentication
type Identity struct {
	Role  types.UserRole
	Email string
	Name  string
	Agent *types.Agent // nil for the admin
}

// Gate classifies authenticating emails against the merged roster
type Gate struct {
	adminEmail string
	roster     *cache.SnapshotCache
	secret     []byte
	ttl        time.Duration
	logger     zerolog.Logger
}

// NewGate creates a Gate
func NewGate(cfg *config.Config, roster *cache.SnapshotCache, logger zerolog.Logger) *Gate {
	return &Gate{
		adminEmail: strings.ToLower(strings.TrimSpace(cfg.AdminEmail)),
		roster:     roster,
		secret:     []byte(cfg.JWTSecret),
		ttl:        cfg.SessionTTL,
		logger:     logger.With().Str("component", "auth").Logger(),
	}
}

// Authenticate classifies an email. The admin address is checked first;
// otherwise the merged roster is searched by exact email. On an agent
// match the caller is responsible for transitioning the agent ONLINE
// through the override store.
func (g *Gate) Authenticate(email string) (*Identity, error) {
	mail := strings.ToLower(strings.TrimSpace(email))
	if mail == "" {
		return nil, ErrNotFound
	}

	if mail == g.adminEmail {
		return &Identity{
			Role:  types.RoleAdmin,
			Email: mail,
			Name:  "System Admin",
		}, nil
	}

	if agent := g.roster.FindByEmail(mail); agent != nil {
		return &Identity{
			Role:  types.RoleAgent,
			Email: mail,
			Name:  agent.Name,
			Agent: agent,
		}, nil
	}

	g.logger.Debug().Str("email", mail).Msg("login rejected: unknown email")
	return nil, ErrNotFound
}
