package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dialndine/omnidesk/backend/internal/auth"
	"github.com/dialndine/omnidesk/backend/internal/cache"
	"github.com/dialndine/omnidesk/backend/internal/store"
	"github.com/dialndine/omnidesk/backend/internal/types"
	"github.com/rs/zerolog"
)

// AuthHandler handles login and logout
type AuthHandler struct {
	gate   *auth.Gate
	store  store.Store
	cache  *cache.SnapshotCache
	logger zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(gate *auth.Gate, st store.Store, c *cache.SnapshotCache, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		gate:   gate,
		store:  st,
		cache:  c,
		logger: logger.With().Str("component", "auth_handler").Logger(),
	}
}

type loginRequest struct {
	Email string `json:"email"`
}

type loginResponse struct {
	Token string    `json:"token"`
	User  loginUser `json:"user"`
}

type loginUser struct {
	Role    types.UserRole `json:"role"`
	Email   string         `json:"email"`
	Name    string         `json:"name"`
	AgentID string         `json:"agentId,omitempty"`
}

// Login handles POST /api/login. An agent login transitions the agent
// ONLINE through the override store so the status survives the next
// reconciliation pass.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	id, err := h.gate.Authenticate(req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "email not found in roster")
			return
		}
		h.logger.Error().Err(err).Msg("authentication failed")
		writeError(w, http.StatusInternalServerError, "authentication failed")
		return
	}

	token, err := h.gate.IssueToken(id)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to issue session token")
		writeError(w, http.StatusInternalServerError, "failed to issue session token")
		return
	}

	resp := loginResponse{
		Token: token,
		User: loginUser{
			Role:  id.Role,
			Email: id.Email,
			Name:  id.Name,
		},
	}

	if id.Agent != nil {
		resp.User.AgentID = id.Agent.ID
		h.setStatus(r, id.Agent, types.StatusOnline)
	}

	h.logger.Info().Str("email", id.Email).Str("role", string(id.Role)).Msg("login")
	writeJSON(w, http.StatusOK, resp)
}

// Logout handles POST /api/logout. Agents go OFFLINE; the admin has no
// presence to clear.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing session")
		return
	}

	if claims.AgentID != "" {
		if agent := h.cache.FindByID(claims.AgentID); agent != nil {
			h.setStatus(r, agent, types.StatusOffline)
		}
	}

	h.logger.Info().Str("email", claims.Email).Msg("logout")
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// setStatus persists the override and patches the live snapshot in one
// motion so the change is visible before the next pass
func (h *AuthHandler) setStatus(r *http.Request, agent *types.Agent, status types.AgentStatus) {
	if err := h.store.SetStatus(r.Context(), store.OverrideKey(agent), status); err != nil {
		h.logger.Error().Err(err).Str("agent_id", agent.ID).Msg("failed to persist status override")
	}
	h.cache.SetStatus(agent.ID, status)
}
