package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dialndine/omnidesk/backend/internal/auth"
	"github.com/dialndine/omnidesk/backend/internal/cache"
	"github.com/dialndine/omnidesk/backend/internal/config"
	"github.com/dialndine/omnidesk/backend/internal/insights"
	"github.com/dialndine/omnidesk/backend/internal/metrics"
	"github.com/dialndine/omnidesk/backend/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu        sync.Mutex
	overrides map[string]types.AgentStatus
	failSet   bool
}

func newMemStore() *memStore {
	return &memStore{overrides: make(map[string]types.AgentStatus)}
}

func (s *memStore) Overrides(_ context.Context) (map[string]types.AgentStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]types.AgentStatus, len(s.overrides))
	for k, v := range s.overrides {
		out[k] = v
	}
	return out, nil
}

func (s *memStore) SetStatus(_ context.Context, key string, status types.AgentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSet {
		return errors.New("store down")
	}
	s.overrides[key] = status
	return nil
}

func (s *memStore) Close() error { return nil }

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) RunOnce(_ context.Context) error {
	f.calls++
	return f.err
}

type harness struct {
	router    *chi.Mux
	cache     *cache.SnapshotCache
	store     *memStore
	gate      *auth.Gate
	refresher *fakeRefresher
}

func newHarness(t *testing.T, synced bool) *harness {
	t.Helper()
	metrics.Get().Reset()

	c := cache.NewSnapshotCache()
	if synced {
		c.Replace(testSnapshot())
	}

	cfg := &config.Config{
		AdminEmail: "callcenter@dialndine.com",
		JWTSecret:  "test-secret",
		SessionTTL: time.Hour,
	}
	gate := auth.NewGate(cfg, c, zerolog.Nop())
	st := newMemStore()
	refresher := &fakeRefresher{}
	insightsSvc := insights.NewServiceWithGenerator(nil, zerolog.Nop())

	authH := NewAuthHandler(gate, st, c, zerolog.Nop())
	rosterH := NewRosterHandler(c, st, zerolog.Nop())
	historyH := NewHistoryHandler(c, zerolog.Nop())
	insightsH := NewInsightsHandler(insightsSvc, c, zerolog.Nop())
	adminH := NewAdminHandler(refresher, c, zerolog.Nop())

	r := chi.NewRouter()
	r.Post("/api/login", authH.Login)
	r.Group(func(r chi.Router) {
		r.Use(gate.Middleware)
		r.Post("/api/logout", authH.Logout)
		r.Get("/api/agents", rosterH.ListAgents)
		r.Get("/api/agents/{agentId}", rosterH.GetAgent)
		r.Get("/api/agents/{agentId}/history", historyH.GetHistory)
		r.Get("/api/agents/{agentId}/evaluations", historyH.GetEvaluations)
		r.Get("/api/agents/{agentId}/coaching", insightsH.CoachingTips)
		r.Put("/api/agents/{agentId}/status", rosterH.UpdateStatus)
		r.Get("/api/dates", rosterH.GetDates)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Get("/api/insights/team", insightsH.TeamAnalysis)
			r.Post("/api/admin/refresh", adminH.Refresh)
			r.Get("/api/admin/stats", adminH.Stats)
		})
	})

	return &harness{router: r, cache: c, store: st, gate: gate, refresher: refresher}
}

func testSnapshot() *types.Snapshot {
	return &types.Snapshot{
		Agents: []*types.Agent{
			{
				ID:     "sarah-jenkins",
				Name:   "Sarah Jenkins",
				Email:  "sarah.j@dialndine.com",
				Status: types.StatusOffline,
				History: []types.DailyStats{
					{Date: "2026-02-01", AnsweredCalls: 45, AbandonedCalls: 2, Transactions: 30, AHT: "90s", ResolutionRate: 92},
					{Date: "2026-02-02", AnsweredCalls: 38, AHT: "85s", ResolutionRate: 88},
				},
				Evaluations: []types.Evaluation{
					{Date: "2026-02-01", Evaluator: "QA Team", Score: 94},
				},
			},
			{
				ID:     "david-miller",
				Name:   "David Miller",
				Email:  "david.m@dialndine.com",
				Status: types.StatusOffline,
			},
		},
		AvailableDates: []string{"2026-02-01", "2026-02-02"},
		SyncedAt:       time.Now(),
	}
}

func (h *harness) token(t *testing.T, email string) string {
	t.Helper()
	id, err := h.gate.Authenticate(email)
	require.NoError(t, err)
	token, err := h.gate.IssueToken(id)
	require.NoError(t, err)
	return token
}

func (h *harness) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(data)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func TestLoginAdmin(t *testing.T) {
	h := newHarness(t, true)

	rec := h.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": "callcenter@dialndine.com"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, types.RoleAdmin, resp.User.Role)
	assert.Empty(t, resp.User.AgentID)
}

func TestLoginAgentGoesOnline(t *testing.T) {
	h := newHarness(t, true)

	rec := h.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": "Sarah.J@dialndine.com"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, types.RoleAgent, resp.User.Role)
	assert.Equal(t, "sarah-jenkins", resp.User.AgentID)

	// Live snapshot patched
	assert.Equal(t, types.StatusOnline, h.cache.FindByID("sarah-jenkins").Status)
	// Override persisted under the email key
	overrides, _ := h.store.Overrides(context.Background())
	assert.Equal(t, types.StatusOnline, overrides["sarah.j@dialndine.com"])
}

func TestLoginUnknownEmail(t *testing.T) {
	h := newHarness(t, true)

	rec := h.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": "nobody@x.com"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutGoesOffline(t *testing.T) {
	h := newHarness(t, true)
	h.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": "sarah.j@dialndine.com"})
	token := h.token(t, "sarah.j@dialndine.com")

	rec := h.do(t, http.MethodPost, "/api/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.StatusOffline, h.cache.FindByID("sarah-jenkins").Status)
}

func TestListAgentsBeforeFirstSync(t *testing.T) {
	h := newHarness(t, false)
	// An admin token still works before the first pass: the gate's
	// admin match does not depend on the roster
	token := h.token(t, "callcenter@dialndine.com")

	rec := h.do(t, http.MethodGet, "/api/agents", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "sync in progress")

	metrics.Get().RecordPassFailure()
	rec = h.do(t, http.MethodGet, "/api/agents", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "initial sync failed")
}

func TestListAgents(t *testing.T) {
	h := newHarness(t, true)
	token := h.token(t, "callcenter@dialndine.com")

	rec := h.do(t, http.MethodGet, "/api/agents", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var agents []types.Agent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &agents))
	assert.Len(t, agents, 2)
}

func TestGetAgentNotFound(t *testing.T) {
	h := newHarness(t, true)
	token := h.token(t, "callcenter@dialndine.com")

	rec := h.do(t, http.MethodGet, "/api/agents/ghost", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetHistoryJSON(t *testing.T) {
	h := newHarness(t, true)
	token := h.token(t, "callcenter@dialndine.com")

	rec := h.do(t, http.MethodGet, "/api/agents/sarah-jenkins/history", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var history []types.DailyStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Len(t, history, 2)
}

func TestGetHistoryDateFilter(t *testing.T) {
	h := newHarness(t, true)
	token := h.token(t, "callcenter@dialndine.com")

	rec := h.do(t, http.MethodGet, "/api/agents/sarah-jenkins/history?date=2026-02-02", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var history []types.DailyStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, 38, history[0].AnsweredCalls)
}

func TestGetHistoryCSV(t *testing.T) {
	h := newHarness(t, true)
	token := h.token(t, "callcenter@dialndine.com")

	rec := h.do(t, http.MethodGet, "/api/agents/sarah-jenkins/history?format=csv", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "sarah-jenkins-history.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,answeredCalls,abandonedCalls,transactions,aht,resolutionRate", lines[0])
	assert.Equal(t, "2026-02-01,45,2,30,90s,92", lines[1])
}

func TestGetEvaluations(t *testing.T) {
	h := newHarness(t, true)
	token := h.token(t, "callcenter@dialndine.com")

	rec := h.do(t, http.MethodGet, "/api/agents/sarah-jenkins/evaluations", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var evals []types.Evaluation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &evals))
	require.Len(t, evals, 1)
	assert.Equal(t, "QA Team", evals[0].Evaluator)

	// Agent without evaluations gets an empty array, not null
	rec = h.do(t, http.MethodGet, "/api/agents/david-miller/evaluations", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestGetDates(t *testing.T) {
	h := newHarness(t, true)
	token := h.token(t, "callcenter@dialndine.com")

	rec := h.do(t, http.MethodGet, "/api/dates", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var dates []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dates))
	assert.Equal(t, []string{"2026-02-01", "2026-02-02"}, dates)
}

func TestUpdateStatusPermissions(t *testing.T) {
	h := newHarness(t, true)
	adminToken := h.token(t, "callcenter@dialndine.com")
	agentToken := h.token(t, "sarah.j@dialndine.com")

	// Agent sets own status
	rec := h.do(t, http.MethodPut, "/api/agents/sarah-jenkins/status", agentToken,
		map[string]string{"status": "BUSY"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.StatusBusy, h.cache.FindByID("sarah-jenkins").Status)

	// Agent cannot set another agent's status
	rec = h.do(t, http.MethodPut, "/api/agents/david-miller/status", agentToken,
		map[string]string{"status": "AWAY"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Admin can set anyone's
	rec = h.do(t, http.MethodPut, "/api/agents/david-miller/status", adminToken,
		map[string]string{"status": "AWAY"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.StatusAway, h.cache.FindByID("david-miller").Status)
}

func TestUpdateStatusInvalid(t *testing.T) {
	h := newHarness(t, true)
	token := h.token(t, "callcenter@dialndine.com")

	rec := h.do(t, http.MethodPut, "/api/agents/sarah-jenkins/status", token,
		map[string]string{"status": "NAPPING"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatusStoreFailure(t *testing.T) {
	h := newHarness(t, true)
	token := h.token(t, "callcenter@dialndine.com")
	h.store.failSet = true

	rec := h.do(t, http.MethodPut, "/api/agents/sarah-jenkins/status", token,
		map[string]string{"status": "BUSY"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	// The live snapshot keeps its old status when persistence fails
	assert.Equal(t, types.StatusOffline, h.cache.FindByID("sarah-jenkins").Status)
}

func TestTeamAnalysisAdminOnly(t *testing.T) {
	h := newHarness(t, true)
	adminToken := h.token(t, "callcenter@dialndine.com")
	agentToken := h.token(t, "sarah.j@dialndine.com")

	rec := h.do(t, http.MethodGet, "/api/insights/team", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "analysis")

	rec = h.do(t, http.MethodGet, "/api/insights/team", agentToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCoachingTipsPermissions(t *testing.T) {
	h := newHarness(t, true)
	adminToken := h.token(t, "callcenter@dialndine.com")
	agentToken := h.token(t, "sarah.j@dialndine.com")

	// Own tips
	rec := h.do(t, http.MethodGet, "/api/agents/sarah-jenkins/coaching", agentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sarah Jenkins")

	// Someone else's tips
	rec = h.do(t, http.MethodGet, "/api/agents/david-miller/coaching", agentToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Admin reads anyone's
	rec = h.do(t, http.MethodGet, "/api/agents/david-miller/coaching", adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRefresh(t *testing.T) {
	h := newHarness(t, true)
	token := h.token(t, "callcenter@dialndine.com")

	rec := h.do(t, http.MethodPost, "/api/admin/refresh", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, h.refresher.calls)

	h.refresher.err = errors.New("sheet unreachable")
	rec = h.do(t, http.MethodPost, "/api/admin/refresh", token, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAdminStats(t *testing.T) {
	h := newHarness(t, true)
	token := h.token(t, "callcenter@dialndine.com")
	metrics.Get().RecordPass(50*time.Millisecond, 2)

	rec := h.do(t, http.MethodGet, "/api/admin/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, float64(1), stats["passes_total"])
	assert.Equal(t, float64(2), stats["cached_agents"])
	assert.Equal(t, true, stats["synced"])
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	h := newHarness(t, true)

	for _, path := range []string{"/api/agents", "/api/dates", "/api/admin/stats"} {
		rec := h.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}
