package metrics

import (
	"sync"
	"time"
)

// Metrics holds all application metrics
type Metrics struct {
	mu sync.RWMutex

	// Reconciliation pass metrics
	PassesTotal  int64
	PassesFailed int64

	// Row metrics
	RowsProcessedTotal int64
	RowsSkippedTotal   int64

	// Identity resolution metrics. First-name fallback matches are the
	// known silent-merge risk of the source data, so they get their own
	// counter rather than being folded into a generic one.
	FirstNameFallbackTotal int64
	AgentsCreatedTotal     int64

	// Fetch metrics
	FetchErrorsTotal int64

	// Last pass
	lastPassDuration time.Duration
	lastPassTime     time.Time
	lastAgentCount   int

	// Timing
	startTime time.Time
}

// Global metrics instance
var instance *Metrics
var once sync.Once

// Get returns the singleton metrics instance
func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			startTime: time.Now(),
		}
	})
	return instance
}

// RecordPass records a completed reconciliation pass
func (m *Metrics) RecordPass(duration time.Duration, agents int) {
	m.mu.Lock()
	m.PassesTotal++
	m.lastPassDuration = duration
	m.lastPassTime = time.Now()
	m.lastAgentCount = agents
	m.mu.Unlock()
}

// RecordPassFailure records an aborted reconciliation pass
func (m *Metrics) RecordPassFailure() {
	m.mu.Lock()
	m.PassesFailed++
	m.mu.Unlock()
}

// RecordRows records processed and skipped row counts for one table fold
func (m *Metrics) RecordRows(processed, skipped int) {
	m.mu.Lock()
	m.RowsProcessedTotal += int64(processed)
	m.RowsSkippedTotal += int64(skipped)
	m.mu.Unlock()
}

// RecordFirstNameFallback records an identity match that fell through to
// the first-name tier
func (m *Metrics) RecordFirstNameFallback() {
	m.mu.Lock()
	m.FirstNameFallbackTotal++
	m.mu.Unlock()
}

// RecordAgentCreated increments the created-agent counter
func (m *Metrics) RecordAgentCreated() {
	m.mu.Lock()
	m.AgentsCreatedTotal++
	m.mu.Unlock()
}

// RecordFetchError increments the source-fetch error counter
func (m *Metrics) RecordFetchError() {
	m.mu.Lock()
	m.FetchErrorsTotal++
	m.mu.Unlock()
}

// Snapshot returns the current metrics as a map for the stats endpoint
func (m *Metrics) Snapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"passes_total":              m.PassesTotal,
		"passes_failed":             m.PassesFailed,
		"rows_processed_total":      m.RowsProcessedTotal,
		"rows_skipped_total":        m.RowsSkippedTotal,
		"first_name_fallback_total": m.FirstNameFallbackTotal,
		"agents_created_total":      m.AgentsCreatedTotal,
		"fetch_errors_total":        m.FetchErrorsTotal,
		"last_pass_duration_ms":     m.lastPassDuration.Milliseconds(),
		"last_pass_time":            m.lastPassTime,
		"last_agent_count":          m.lastAgentCount,
		"uptime_seconds":            int64(time.Since(m.startTime).Seconds()),
	}
}

// Reset zeroes all counters. Intended for tests.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PassesTotal = 0
	m.PassesFailed = 0
	m.RowsProcessedTotal = 0
	m.RowsSkippedTotal = 0
	m.FirstNameFallbackTotal = 0
	m.AgentsCreatedTotal = 0
	m.FetchErrorsTotal = 0
	m.lastPassDuration = 0
	m.lastPassTime = time.Time{}
	m.lastAgentCount = 0
}
