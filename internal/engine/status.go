package engine

import (
	"sort"
	"time"

	"github.com/yegors/fdwatch/internal/cue"
	"github.com/yegors/fdwatch/internal/track"
	"github.com/yegors/fdwatch/internal/websocket"
)

// Status is the engine summary served to observers
type Status struct {
	State           State      `json:"state"`
	LastPoll        time.Time  `json:"last_poll"`
	Tracked         int        `json:"tracked"`    // Entries in the registry
	Aircraft        int        `json:"aircraft"`   // Within the monitoring radius
	Candidates      int        `json:"candidates"` // Eligible at the last evaluation
	GateWaitSeconds float64    `json:"gate_wait_seconds"`
	LastFired       *time.Time `json:"last_fired,omitempty"`
	Pending         *cue.Plan  `json:"pending,omitempty"`
}

// Status returns a copy of the current status
func (e *Engine) Status() Status {
	e.mu.RLock()
	st := e.status
	e.mu.RUnlock()

	if st.Pending != nil {
		p := *st.Pending
		st.Pending = &p
	}
	if st.LastFired != nil {
		t := *st.LastFired
		st.LastFired = &t
	}
	st.GateWaitSeconds = e.gate.TimeUntilAllowed(e.now()).Seconds()
	return st
}

// Aircraft returns the aircraft within the monitoring radius as of the last poll, nearest
// first
func (e *Engine) Aircraft() []track.View {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]track.View, len(e.views))
	copy(out, e.views)
	return out
}

// Lookup returns any tracked aircraft by identifier, inside the monitoring radius or not
func (e *Engine) Lookup(id string) (track.View, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.tracked[id]
	return v, ok
}

func (e *Engine) setState(state State) {
	e.mu.Lock()
	previous := e.status.State
	e.status.State = state
	e.status.Pending = e.pendingCopy()
	e.mu.Unlock()

	if previous == state {
		return
	}
	e.logger.Debug("State change", String("from", string(previous)), String("to", string(state)))

	// Evaluating lasts one poll; clients only hear about the states around it
	if state == StateEvaluating || state == e.announced {
		return
	}
	e.publish(websocket.MessageTypeStateChange, map[string]any{"from": e.announced, "to": state})
	e.announced = state
}

func (e *Engine) pendingCopy() *cue.Plan {
	if e.pending == nil {
		return nil
	}
	p := *e.pending
	return &p
}

func (e *Engine) setCandidates(n int) {
	e.mu.Lock()
	e.status.Candidates = n
	e.mu.Unlock()
}

func (e *Engine) setLastFired(t time.Time) {
	e.mu.Lock()
	e.status.LastFired = &t
	e.mu.Unlock()
}

// publishTracks refreshes the observer view from the registry and pushes it to clients
func (e *Engine) publishTracks(now time.Time) {
	all := e.registry.All()
	tracked := make(map[string]track.View, len(all))
	for _, s := range all {
		tracked[s.ID] = s.View()
	}

	active := e.registry.Active(now, e.staleTimeout)
	views := make([]track.View, 0, len(active))
	for _, s := range active {
		if s.Distance == nil || *s.Distance > e.monitoringRadius {
			continue
		}
		views = append(views, tracked[s.ID])
	}
	sort.SliceStable(views, func(i, j int) bool {
		return *views[i].Distance < *views[j].Distance
	})

	e.mu.Lock()
	e.views = views
	e.tracked = tracked
	e.status.LastPoll = now
	e.status.Tracked = e.registry.Len()
	e.status.Aircraft = len(views)
	e.status.Pending = e.pendingCopy()
	e.mu.Unlock()

	e.publish(websocket.MessageTypeTracksUpdate, map[string]any{
		"aircraft":  views,
		"count":     len(views),
		"timestamp": now,
	})
}

func (e *Engine) publish(messageType string, data map[string]any) {
	if e.publisher == nil {
		return
	}
	e.publisher.Broadcast(&websocket.Message{Type: messageType, Data: data})
}
