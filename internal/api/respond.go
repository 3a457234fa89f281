// Package api exposes the dashboard REST endpoints over the merged
// snapshot. Handlers read from the snapshot cache and never touch the
// source tables directly; the only writes are status overrides.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/dialndine/omnidesk/backend/internal/cache"
	"github.com/dialndine/omnidesk/backend/internal/metrics"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// requireSynced guards read endpoints until the first pass has
// published a snapshot. The body distinguishes a pass still in flight
// from one that already failed so the frontend can message accordingly.
func requireSynced(w http.ResponseWriter, c *cache.SnapshotCache) bool {
	if c.Synced() {
		return true
	}

	m := metrics.Get().Snapshot()
	if failed, ok := m["passes_failed"].(int64); ok && failed > 0 {
		writeError(w, http.StatusServiceUnavailable, "initial sync failed, retrying")
	} else {
		writeError(w, http.StatusServiceUnavailable, "sync in progress")
	}
	return false
}
