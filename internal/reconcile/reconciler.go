// Package reconcile merges the three loosely-related source tabs into a
// consistent per-agent aggregate. The tabs are independently keyed and
// format-drifty; the roster resolves row identity and the reconciler
// folds rows into each agent's owned collections.
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dialndine/omnidesk/backend/internal/metrics"
	"github.com/dialndine/omnidesk/backend/internal/normalize"
	"github.com/dialndine/omnidesk/backend/internal/sheets"
	"github.com/dialndine/omnidesk/backend/internal/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Fillers substituted for blank free-text feedback cells
const (
	defaultPositive    = "Keep up the good work."
	defaultImprovement = "No specific areas flagged."
)

// Tabs names the three source tabs of one spreadsheet
type Tabs struct {
	Activity   string
	Evaluation string
	Metrics    string
}

// Reconciler runs full fetch-and-merge passes
type Reconciler struct {
	fetcher sheets.Fetcher
	layouts sheets.Layouts
	tabs    Tabs
	logger  zerolog.Logger
}

// New creates a Reconciler
func New(fetcher sheets.Fetcher, layouts sheets.Layouts, tabs Tabs, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		fetcher: fetcher,
		layouts: layouts,
		tabs:    tabs,
		logger:  logger.With().Str("component", "reconciler").Logger(),
	}
}

// Run performs one reconciliation pass. The three tab fetches are issued
// together and awaited jointly; the fold itself is strictly sequential
// because resolving a row may need to observe an agent created by the
// row before it. Any fetch failure aborts the whole pass - no partial
// agent set is ever returned.
func (r *Reconciler) Run(ctx context.Context) (*types.Snapshot, error) {
	var activity, evaluations, metricRows [][]string

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		activity, err = r.fetcher.FetchTable(ctx, r.tabs.Activity)
		return err
	})
	g.Go(func() (err error) {
		evaluations, err = r.fetcher.FetchTable(ctx, r.tabs.Evaluation)
		return err
	})
	g.Go(func() (err error) {
		metricRows, err = r.fetcher.FetchTable(ctx, r.tabs.Metrics)
		return err
	})
	if err := g.Wait(); err != nil {
		metrics.Get().RecordFetchError()
		return nil, fmt.Errorf("fetching source tables: %w", err)
	}

	roster := NewRoster(r.logger)

	if err := r.foldActivity(roster, activity); err != nil {
		return nil, err
	}
	if err := r.foldMetrics(roster, metricRows); err != nil {
		return nil, err
	}
	if err := r.foldEvaluations(roster, evaluations); err != nil {
		return nil, err
	}

	agents := roster.Agents()
	snapshot := &types.Snapshot{
		Agents:         agents,
		AvailableDates: collectDates(agents),
		SyncedAt:       time.Now(),
	}

	r.logger.Info().
		Int("agents", len(agents)).
		Int("dates", len(snapshot.AvailableDates)).
		Msg("reconciliation pass complete")

	return snapshot, nil
}

// foldActivity folds the daily call activity tab: one DailyStats per
// (agent, date), created on first sight.
func (r *Reconciler) foldActivity(roster *Roster, rows [][]string) error {
	l := r.layouts.Activity
	if err := checkTable(r.tabs.Activity, rows, l.MaxIndex()); err != nil {
		return err
	}

	processed, skipped := 0, 0
	for _, row := range rows[1:] {
		if len(row) <= l.MaxIndex() {
			skipped++
			continue
		}
		name := strings.TrimSpace(row[l.Name])
		date := normalize.Date(row[l.Date])
		if name == "" || isHeaderEcho(name) || date == "" {
			skipped++
			continue
		}

		agent := roster.Resolve(name, "")
		stat := roster.Stat(agent, date)
		stat.AnsweredCalls = normalize.Int(row[l.Answered])
		stat.AbandonedCalls = normalize.Int(row[l.Abandoned])
		stat.Transactions = normalize.Int(row[l.Transactions])
		processed++
	}

	metrics.Get().RecordRows(processed, skipped)
	r.logRows(r.tabs.Activity, processed, skipped)
	return nil
}

// foldMetrics folds the ticket metrics tab. Metrics patch AHT and
// resolution rate into the existing record for the date; they never
// overwrite the call counts the activity tab contributed.
func (r *Reconciler) foldMetrics(roster *Roster, rows [][]string) error {
	l := r.layouts.Metrics
	if err := checkTable(r.tabs.Metrics, rows, l.MaxIndex()); err != nil {
		return err
	}

	processed, skipped := 0, 0
	for _, row := range rows[1:] {
		if len(row) <= l.MaxIndex() {
			skipped++
			continue
		}
		name := strings.TrimSpace(row[l.Name])
		date := normalize.Date(row[l.Date])
		if name == "" || isHeaderEcho(name) || date == "" {
			skipped++
			continue
		}

		agent := roster.Resolve(name, "")
		stat := roster.Stat(agent, date)
		if aht := strings.TrimSpace(row[l.AHT]); aht != "" {
			stat.AHT = aht
		}
		if rate := strings.TrimSpace(row[l.ResolutionRate]); rate != "" {
			stat.ResolutionRate = normalize.Int(rate)
		}
		processed++
	}

	metrics.Get().RecordRows(processed, skipped)
	r.logRows(r.tabs.Metrics, processed, skipped)
	return nil
}

// foldEvaluations folds the call evaluation tab. Every usable row
// appends a new Evaluation - reviews are discrete events, two on the
// same date are both kept.
func (r *Reconciler) foldEvaluations(roster *Roster, rows [][]string) error {
	l := r.layouts.Evaluation
	if err := checkTable(r.tabs.Evaluation, rows, l.MaxIndex()); err != nil {
		return err
	}

	processed, skipped := 0, 0
	for _, row := range rows[1:] {
		if len(row) <= l.MaxIndex() {
			skipped++
			continue
		}
		name := strings.TrimSpace(row[l.Name])
		date := normalize.Date(row[l.Date])
		if name == "" || isHeaderEcho(name) || date == "" {
			skipped++
			continue
		}

		agent := roster.Resolve(name, row[l.Email])
		eval := types.Evaluation{
			Date:      date,
			Evaluator: strings.TrimSpace(row[l.Evaluator]),
			Score:     normalize.ScaleRating(normalize.Float(row[l.Rating])),
			Kpis: types.Kpis{
				Capture:   normalize.Score(row[l.Capture]),
				Etiquette: normalize.Score(row[l.Etiquette]),
				Solving:   normalize.Score(row[l.Solving]),
				Product:   normalize.Score(row[l.Product]),
				Promo:     normalize.Score(row[l.Promo]),
				Upsell:    normalize.Score(row[l.Upsell]),
			},
			PositivePoints:   textOrDefault(row[l.Positive], defaultPositive),
			ImprovementAreas: textOrDefault(row[l.Improvement], defaultImprovement),
		}
		agent.Evaluations = append(agent.Evaluations, eval)
		processed++
	}

	metrics.Get().RecordRows(processed, skipped)
	r.logRows(r.tabs.Evaluation, processed, skipped)
	return nil
}

func (r *Reconciler) logRows(tab string, processed, skipped int) {
	evt := r.logger.Debug()
	if skipped > 0 {
		evt = r.logger.Warn()
	}
	evt.Str("tab", tab).Int("processed", processed).Int("skipped", skipped).Msg("tab folded")
}

// checkTable rejects empty tabs and headers narrower than the layout.
// Both indicate the fetch did not return the table we expect, which is a
// pass-level failure rather than a skippable row.
func checkTable(tab string, rows [][]string, maxIndex int) error {
	if len(rows) == 0 {
		return fmt.Errorf("tab %q: no rows returned", tab)
	}
	return sheets.ValidateHeader(tab, rows[0], maxIndex)
}

// isHeaderEcho reports whether a key cell holds a header token that
// leaked into the data rows (a recurring artifact of the hand-edited
// sheet).
func isHeaderEcho(name string) bool {
	switch strings.ToLower(name) {
	case "agent", "agent name", "name":
		return true
	}
	return false
}

func textOrDefault(s, fallback string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return fallback
}

// collectDates returns the distinct set of dates seen across all daily
// records, ascending.
func collectDates(agents []*types.Agent) []string {
	seen := make(map[string]struct{})
	for _, a := range agents {
		for _, stat := range a.History {
			seen[stat.Date] = struct{}{}
		}
	}
	dates := make([]string, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}
