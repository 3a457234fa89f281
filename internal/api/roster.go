package api

import (
	"encoding/json"
	"net/http"

	"github.com/dialndine/omnidesk/backend/internal/auth"
	"github.com/dialndine/omnidesk/backend/internal/cache"
	"github.com/dialndine/omnidesk/backend/internal/store"
	"github.com/dialndine/omnidesk/backend/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// RosterHandler serves the merged agent roster
type RosterHandler struct {
	cache  *cache.SnapshotCache
	store  store.Store
	logger zerolog.Logger
}

// NewRosterHandler creates a new RosterHandler
func NewRosterHandler(c *cache.SnapshotCache, st store.Store, logger zerolog.Logger) *RosterHandler {
	return &RosterHandler{
		cache:  c,
		store:  st,
		logger: logger.With().Str("component", "roster_handler").Logger(),
	}
}

// ListAgents handles GET /api/agents
func (h *RosterHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	if !requireSynced(w, h.cache) {
		return
	}

	agents := h.cache.Agents()
	if agents == nil {
		agents = []*types.Agent{}
	}
	writeJSON(w, http.StatusOK, agents)
}

// GetAgent handles GET /api/agents/{agentId}
func (h *RosterHandler) GetAgent(w http.ResponseWriter, r *http.Request) {
	if !requireSynced(w, h.cache) {
		return
	}

	agent := h.cache.FindByID(chi.URLParam(r, "agentId"))
	if agent == nil {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

// GetDates handles GET /api/dates, the sorted union of dates seen
// across all three source tables
func (h *RosterHandler) GetDates(w http.ResponseWriter, r *http.Request) {
	if !requireSynced(w, h.cache) {
		return
	}

	dates := h.cache.AvailableDates()
	if dates == nil {
		dates = []string{}
	}
	writeJSON(w, http.StatusOK, dates)
}

type statusRequest struct {
	Status types.AgentStatus `json:"status"`
}

// UpdateStatus handles PUT /api/agents/{agentId}/status. Admins may set
// any agent's status; agents only their own.
func (h *RosterHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if !requireSynced(w, h.cache) {
		return
	}

	agentID := chi.URLParam(r, "agentId")

	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing session")
		return
	}
	if !claims.IsAdmin() && claims.AgentID != agentID {
		writeError(w, http.StatusForbidden, "cannot change another agent's status")
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !types.ValidStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	agent := h.cache.FindByID(agentID)
	if agent == nil {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}

	if err := h.store.SetStatus(r.Context(), store.OverrideKey(agent), req.Status); err != nil {
		h.logger.Error().Err(err).Str("agent_id", agentID).Msg("failed to persist status override")
		writeError(w, http.StatusInternalServerError, "failed to persist status")
		return
	}
	h.cache.SetStatus(agentID, req.Status)

	h.logger.Info().
		Str("agent_id", agentID).
		Str("status", string(req.Status)).
		Str("by", claims.Email).
		Msg("status updated")

	writeJSON(w, http.StatusOK, map[string]string{
		"agentId": agentID,
		"status":  string(req.Status),
	})
}
