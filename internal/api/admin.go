package api

import (
	"context"
	"net/http"
	"time"

	"github.com/dialndine/omnidesk/backend/internal/cache"
	"github.com/dialndine/omnidesk/backend/internal/metrics"
	"github.com/rs/zerolog"
)

// Refresher triggers a reconciliation pass outside the timer
type Refresher interface {
	RunOnce(ctx context.Context) error
}

// AdminHandler serves the admin-only operational endpoints
type AdminHandler struct {
	refresher Refresher
	cache     *cache.SnapshotCache
	logger    zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(refresher Refresher, c *cache.SnapshotCache, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		refresher: refresher,
		cache:     c,
		logger:    logger.With().Str("component", "admin_handler").Logger(),
	}
}

// Refresh handles POST /api/admin/refresh, forcing a pass now instead
// of waiting for the next tick
func (h *AdminHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := h.refresher.RunOnce(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("manual refresh failed")
		writeError(w, http.StatusBadGateway, "refresh failed: "+err.Error())
		return
	}

	h.logger.Info().Dur("elapsed", time.Since(start)).Msg("manual refresh completed")

	resp := map[string]interface{}{
		"status": "refreshed",
		"agents": h.cache.Count(),
	}
	if snap := h.cache.Snapshot(); snap != nil {
		resp["syncedAt"] = snap.SyncedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// Stats handles GET /api/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Get().Snapshot()
	stats["cached_agents"] = h.cache.Count()
	stats["synced"] = h.cache.Synced()
	writeJSON(w, http.StatusOK, stats)
}
