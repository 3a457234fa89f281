// Package syncer drives the periodic reconciliation loop: fetch-and-merge,
// patch persisted status overrides, publish the snapshot, notify dashboards.
package syncer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dialndine/omnidesk/backend/internal/cache"
	"github.com/dialndine/omnidesk/backend/internal/metrics"
	"github.com/dialndine/omnidesk/backend/internal/store"
	"github.com/dialndine/omnidesk/backend/internal/types"
	"github.com/dialndine/omnidesk/backend/internal/websocket"
	"github.com/rs/zerolog"
)

// Runner produces a fresh snapshot from the source tables
type Runner interface {
	Run(ctx context.Context) (*types.Snapshot, error)
}

// Syncer periodically rebuilds the agent snapshot
type Syncer struct {
	runner   Runner
	store    store.Store
	cache    *cache.SnapshotCache
	hub      *websocket.Hub // may be nil (tests)
	interval time.Duration
	logger   zerolog.Logger
}

// New creates a Syncer
func New(runner Runner, st store.Store, c *cache.SnapshotCache, hub *websocket.Hub, interval time.Duration, logger zerolog.Logger) *Syncer {
	return &Syncer{
		runner:   runner,
		store:    st,
		cache:    c,
		hub:      hub,
		interval: interval,
		logger:   logger.With().Str("component", "syncer").Logger(),
	}
}

// Start runs an immediate pass and then one per interval until ctx is
// cancelled. Pass failures are logged, never fatal: readers keep the
// previous snapshot.
func (s *Syncer) Start(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("syncer started")

	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error().Err(err).Msg("initial reconciliation pass failed")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("syncer stopped")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error().Err(err).Msg("reconciliation pass failed")
			}
		}
	}
}

// RunOnce performs a single reconciliation pass. The snapshot is
// published only when the whole pass succeeds.
func (s *Syncer) RunOnce(ctx context.Context) error {
	m := metrics.Get()
	start := time.Now()

	snap, err := s.runner.Run(ctx)
	if err != nil {
		m.RecordPassFailure()
		return err
	}

	overrides, err := s.store.Overrides(ctx)
	if err != nil {
		// Overrides are a patch, not the data itself; a store hiccup
		// must not throw away a good merge.
		s.logger.Warn().Err(err).Msg("failed to read status overrides, using merge defaults")
	}
	store.ApplyOverrides(snap.Agents, overrides)

	s.cache.Replace(snap)
	m.RecordPass(time.Since(start), len(snap.Agents))

	s.logger.Info().
		Int("agents", len(snap.Agents)).
		Int("dates", len(snap.AvailableDates)).
		Dur("elapsed", time.Since(start)).
		Msg("snapshot published")

	s.broadcast(snap)
	return nil
}

func (s *Syncer) broadcast(snap *types.Snapshot) {
	if s.hub == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to marshal snapshot")
		return
	}
	s.hub.Broadcast(data)
}
