package cache

import (
	"strings"
	"sync"

	"github.com/dialndine/omnidesk/backend/internal/types"
)

// SnapshotCache holds the latest successfully merged agent set. A
// reconciliation pass replaces the whole snapshot atomically; a failed
// pass never touches it, so readers always see the last good data. The
// syncer is the only writer of Replace; SetStatus is the one in-place
// patch, mirroring the persisted override on login/logout/manual change.
type SnapshotCache struct {
	mu      sync.RWMutex
	snap    *types.Snapshot
	byEmail map[string]*types.Agent
	byID    map[string]*types.Agent
}

// NewSnapshotCache creates an empty snapshot cache
func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{}
}

// Replace swaps in a freshly merged snapshot
func (c *SnapshotCache) Replace(snap *types.Snapshot) {
	byEmail := make(map[string]*types.Agent, len(snap.Agents))
	byID := make(map[string]*types.Agent, len(snap.Agents))
	for _, a := range snap.Agents {
		byID[a.ID] = a
		if a.Email != "" {
			byEmail[strings.ToLower(a.Email)] = a
		}
	}

	c.mu.Lock()
	c.snap = snap
	c.byEmail = byEmail
	c.byID = byID
	c.mu.Unlock()
}

// Synced reports whether at least one pass has completed. The API uses
// this to distinguish "sync pending or failed" from a genuinely empty
// roster.
func (c *SnapshotCache) Synced() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap != nil
}

// Snapshot returns the latest snapshot, or nil before the first pass
func (c *SnapshotCache) Snapshot() *types.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Agents returns the latest merged agent set
func (c *SnapshotCache) Agents() []*types.Agent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return nil
	}
	return c.snap.Agents
}

// AvailableDates returns the distinct dates of the latest snapshot
func (c *SnapshotCache) AvailableDates() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return nil
	}
	return c.snap.AvailableDates
}

// FindByEmail returns the agent with the given email, case-insensitive
func (c *SnapshotCache) FindByEmail(email string) *types.Agent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byEmail[strings.ToLower(strings.TrimSpace(email))]
}

// FindByID returns the agent with the given key
func (c *SnapshotCache) FindByID(id string) *types.Agent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byID[id]
}

// SetStatus patches an agent's in-memory status. Returns false when the
// agent is not in the current snapshot. Callers must also persist the
// override through the store so the patch survives the next pass.
// Status writes all flow from the one live dashboard session; a handler
// that fetched the agent before the write serves the prior status.
func (c *SnapshotCache) SetStatus(id string, status types.AgentStatus) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.byID[id]
	if !ok {
		return false
	}
	a.Status = status
	return true
}

// Count returns the number of agents in the current snapshot
func (c *SnapshotCache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return 0
	}
	return len(c.snap.Agents)
}
