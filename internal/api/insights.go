package api

import (
	"net/http"

	"github.com/dialndine/omnidesk/backend/internal/auth"
	"github.com/dialndine/omnidesk/backend/internal/cache"
	"github.com/dialndine/omnidesk/backend/internal/insights"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// InsightsHandler serves AI-generated summaries
type InsightsHandler struct {
	service *insights.Service
	cache   *cache.SnapshotCache
	logger  zerolog.Logger
}

// NewInsightsHandler creates a new InsightsHandler
func NewInsightsHandler(service *insights.Service, c *cache.SnapshotCache, logger zerolog.Logger) *InsightsHandler {
	return &InsightsHandler{
		service: service,
		cache:   c,
		logger:  logger.With().Str("component", "insights_handler").Logger(),
	}
}

// TeamAnalysis handles GET /api/insights/team (admin only, enforced by
// route middleware)
func (h *InsightsHandler) TeamAnalysis(w http.ResponseWriter, r *http.Request) {
	if !requireSynced(w, h.cache) {
		return
	}

	text := h.service.TeamAnalysis(r.Context(), h.cache.Agents())
	writeJSON(w, http.StatusOK, map[string]string{"analysis": text})
}

// CoachingTips handles GET /api/agents/{agentId}/coaching. An agent may
// read their own tips; the admin anyone's.
func (h *InsightsHandler) CoachingTips(w http.ResponseWriter, r *http.Request) {
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
		writeError(w, http.StatusForbidden, "cannot read another agent's coaching tips")
		return
	}

	agent := h.cache.FindByID(agentID)
	if agent == nil {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}

	text := h.service.CoachingTips(r.Context(), agent)
	writeJSON(w, http.StatusOK, map[string]string{"tips": text})
}
