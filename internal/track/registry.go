package track

import (
	"sort"
	"time"

	"github.com/yegors/fdwatch/internal/adsb"
)

// Registry holds the tracked aircraft keyed by identifier. It is not safe for concurrent
// use; the engine loop is its only writer and reader.
type Registry struct {
	params Params
	states map[string]*State
}

// NewRegistry creates an empty registry
func NewRegistry(p Params) *Registry {
	return &Registry{
		params: p,
		states: make(map[string]*State),
	}
}

// Ingest creates or updates an entry for every snapshot and returns the states touched.
// Entries not present in snaps are left alone.
func (r *Registry) Ingest(now time.Time, snaps []adsb.Snapshot) []*State {
	touched := make([]*State, 0, len(snaps))
	for _, snap := range snaps {
		if snap.ID == "" {
			continue
		}
		s, ok := r.states[snap.ID]
		if !ok {
			s = newState(snap.ID, now)
			r.states[snap.ID] = s
		}
		s.update(now, snap, r.params)
		touched = append(touched, s)
	}
	return touched
}

// Expire removes stale entries and returns their identifiers. An entry whose trigger fired
// is kept until grace has passed since the firing, even when stale.
func (r *Registry) Expire(now time.Time, timeout, grace time.Duration) []string {
	var evicted []string
	for id, s := range r.states {
		if !s.Stale(now, timeout) {
			continue
		}
		if firedAt, fired := s.FiredAt(); fired && now.Sub(firedAt) < grace {
			continue
		}
		delete(r.states, id)
		evicted = append(evicted, id)
	}
	sort.Strings(evicted)
	return evicted
}

// Get looks up one aircraft
func (r *Registry) Get(id string) (*State, bool) {
	s, ok := r.states[id]
	return s, ok
}

// Len returns the number of entries
func (r *Registry) Len() int {
	return len(r.states)
}

// All returns every entry ordered by identifier
func (r *Registry) All() []*State {
	out := make([]*State, 0, len(r.states))
	for _, s := range r.states {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Active returns the entries seen within timeout, ordered by identifier. Stale entries kept
// for their fired grace window are excluded.
func (r *Registry) Active(now time.Time, timeout time.Duration) []*State {
	all := r.All()
	out := all[:0]
	for _, s := range all {
		if !s.Stale(now, timeout) {
			out = append(out, s)
		}
	}
	return out
}
