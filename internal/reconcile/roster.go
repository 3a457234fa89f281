package reconcile

import (
	"strings"

	"github.com/dialndine/omnidesk/backend/internal/metrics"
	"github.com/dialndine/omnidesk/backend/internal/normalize"
	"github.com/dialndine/omnidesk/backend/internal/types"
	"github.com/rs/zerolog"
)

// Roster owns the agent set being built during one reconciliation pass.
// It maintains incremental indexes per identity tier so resolving a row
// is O(1) instead of a scan over all known agents.
type Roster struct {
	agents      []*types.Agent
	byEmail     map[string]*types.Agent // lowercased email
	byName      map[string]*types.Agent // lowercased full name
	byFirstName map[string]*types.Agent // normalized first name, first agent wins
	logger      zerolog.Logger
}

// NewRoster creates an empty roster for a reconciliation pass
func NewRoster(logger zerolog.Logger) *Roster {
	return &Roster{
		byEmail:     make(map[string]*types.Agent),
		byName:      make(map[string]*types.Agent),
		byFirstName: make(map[string]*types.Agent),
		logger:      logger.With().Str("component", "roster").Logger(),
	}
}

// Resolve returns the agent a row belongs to, creating one on first
// sight. Match precedence: exact email, exact full name, normalized
// first name, then create. A later source supplying the email for an
// agent first seen without one backfills the same entity; it never
// creates a duplicate.
func (r *Roster) Resolve(name, email string) *types.Agent {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" && email == "" {
		return nil
	}

	// Tier 1: exact email
	if email != "" {
		if a, ok := r.byEmail[email]; ok {
			return a
		}
	}

	if name != "" {
		// Tier 2: exact full name, case-insensitive
		if a, ok := r.byName[strings.ToLower(name)]; ok && !emailConflict(a, email) {
			r.backfillEmail(a, email)
			return a
		}

		// Tier 3: first-name fallback. The tabs abbreviate names
		// ("Claire M" vs "Claire Makeleni"); matching degrades to the
		// first token rather than silently creating a duplicate agent.
		// Two real people sharing a first name merge incorrectly here,
		// so every fallback hit is counted and logged.
		if first := normalize.NameKey(name); first != "" {
			if a, ok := r.byFirstName[first]; ok && !emailConflict(a, email) {
				metrics.Get().RecordFirstNameFallback()
				r.logger.Warn().
					Str("row_name", name).
					Str("matched_name", a.Name).
					Str("first_name_key", first).
					Msg("identity resolved by first-name fallback")
				r.byName[strings.ToLower(name)] = a
				r.backfillEmail(a, email)
				return a
			}
		}
	}

	return r.create(name, email)
}

// create adds a new agent keyed by email when present, otherwise by a
// slug derived from the name.
func (r *Roster) create(name, email string) *types.Agent {
	a := &types.Agent{
		Name:        name,
		Email:       email,
		Status:      types.StatusOffline,
		History:     []types.DailyStats{},
		Evaluations: []types.Evaluation{},
	}
	if email != "" {
		a.ID = email
	} else {
		a.ID = normalize.Slug(name)
	}

	r.agents = append(r.agents, a)
	if email != "" {
		r.byEmail[email] = a
	}
	if name != "" {
		r.byName[strings.ToLower(name)] = a
		if first := normalize.NameKey(name); first != "" {
			if _, taken := r.byFirstName[first]; !taken {
				r.byFirstName[first] = a
			}
		}
	}
	metrics.Get().RecordAgentCreated()
	return a
}

// emailConflict reports whether the row's email contradicts the
// candidate's known address. A name match carrying a different email is
// a second real person, not an abbreviation of the first.
func emailConflict(a *types.Agent, email string) bool {
	return email != "" && a.Email != "" && a.Email != email
}

// backfillEmail fills in a previously unknown email on an existing agent
func (r *Roster) backfillEmail(a *types.Agent, email string) {
	if email == "" || a.Email != "" {
		return
	}
	a.Email = email
	r.byEmail[email] = a
}

// Agents returns all agents created during the pass, in creation order
func (r *Roster) Agents() []*types.Agent {
	return r.agents
}

// Stat returns the agent's daily record for date, appending a fresh one
// if none exists yet. The returned pointer is valid until the next
// append for the same agent.
func (r *Roster) Stat(a *types.Agent, date string) *types.DailyStats {
	for i := range a.History {
		if a.History[i].Date == date {
			return &a.History[i]
		}
	}
	a.History = append(a.History, types.DailyStats{Date: date, AHT: "0s"})
	return &a.History[len(a.History)-1]
}
