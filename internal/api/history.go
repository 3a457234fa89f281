package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dialndine/omnidesk/backend/internal/cache"
	"github.com/dialndine/omnidesk/backend/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// HistoryHandler serves per-agent daily stats and evaluations
type HistoryHandler struct {
	cache  *cache.SnapshotCache
	logger zerolog.Logger
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(c *cache.SnapshotCache, logger zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{
		cache:  c,
		logger: logger.With().Str("component", "history_handler").Logger(),
	}
}

// GetHistory handles GET /api/agents/{agentId}/history. With
// ?format=csv the history is exported as a download, optionally
// filtered to one day with ?date=YYYY-MM-DD.
func (h *HistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if !requireSynced(w, h.cache) {
		return
	}

	agent := h.cache.FindByID(chi.URLParam(r, "agentId"))
	if agent == nil {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}

	history := agent.History
	if date := r.URL.Query().Get("date"); date != "" {
		filtered := make([]types.DailyStats, 0, 1)
		for _, d := range history {
			if d.Date == date {
				filtered = append(filtered, d)
			}
		}
		history = filtered
	}

	if r.URL.Query().Get("format") == "csv" {
		h.writeCSV(w, agent, history)
		return
	}

	if history == nil {
		history = []types.DailyStats{}
	}
	writeJSON(w, http.StatusOK, history)
}

// GetEvaluations handles GET /api/agents/{agentId}/evaluations
func (h *HistoryHandler) GetEvaluations(w http.ResponseWriter, r *http.Request) {
	if !requireSynced(w, h.cache) {
		return
	}

	agent := h.cache.FindByID(chi.URLParam(r, "agentId"))
	if agent == nil {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}

	evals := agent.Evaluations
	if evals == nil {
		evals = []types.Evaluation{}
	}
	writeJSON(w, http.StatusOK, evals)
}

func (h *HistoryHandler) writeCSV(w http.ResponseWriter, agent *types.Agent, history []types.DailyStats) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", agent.ID+"-history.csv"))

	cw := csv.NewWriter(w)
	cw.Write([]string{"date", "answeredCalls", "abandonedCalls", "transactions", "aht", "resolutionRate"})
	for _, d := range history {
		cw.Write([]string{
			d.Date,
			strconv.Itoa(d.AnsweredCalls),
			strconv.Itoa(d.AbandonedCalls),
			strconv.Itoa(d.Transactions),
			d.AHT,
			strconv.Itoa(d.ResolutionRate),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Error().Err(err).Str("agent_id", agent.ID).Msg("failed to write csv export")
	}
}
