package engine

import (
	"context"
	"errors"
	"time"

	"github.com/yegors/fdwatch/internal/audio"
	"github.com/yegors/fdwatch/internal/cue"
	"github.com/yegors/fdwatch/internal/storage/sqlite"
	"github.com/yegors/fdwatch/internal/track"
	"github.com/yegors/fdwatch/internal/trigger"
	"github.com/yegors/fdwatch/internal/websocket"
	"github.com/yegors/fdwatch/pkg/logger"
)

// poll runs one fetch, ingest, expire and evaluate cycle
func (e *Engine) poll(ctx context.Context, now time.Time) {
	if e.pending == nil {
		e.setState(StateEvaluating)
	}

	snaps, err := e.source.Fetch(ctx)
	if err != nil {
		// A failed fetch counts as an empty sky; tracks simply go stale
		e.logger.Error("Failed to fetch aircraft", Error(err))
		snaps = nil
	}

	e.registry.Ingest(now, snaps)
	for _, id := range e.registry.Expire(now, e.staleTimeout, e.firedGrace) {
		delete(e.missed, id)
		e.logger.Debug("Evicted aircraft", String("id", id))
	}

	if e.pending != nil {
		e.replan(now)
	}
	if e.pending == nil {
		e.evaluate(now)
	}

	e.publishTracks(now)
}

// replan refreshes the pending plan from the latest position of its aircraft
func (e *Engine) replan(now time.Time) {
	current := *e.pending
	s, ok := e.registry.Get(current.ID)
	if !ok {
		e.dropPlan("aircraft lost")
		return
	}
	if reason := e.policy.Check(s, now); reason != trigger.ReasonEligible {
		e.dropPlan(reason)
		return
	}

	next, err := e.scheduler.Plan(now, s, e.pendingClip)
	switch {
	case errors.Is(err, cue.ErrMissedWindow):
		e.recordMissed(s, next, now)
		return
	case err != nil:
		e.dropPlan(err.Error())
		return
	}

	if e.scheduler.Moved(current, next) {
		e.logger.Info("Rescheduled cue",
			String("id", next.ID),
			logger.Time("previous_start", current.StartAt),
			logger.Time("start_at", next.StartAt))
		e.pending = &next
		e.publish(websocket.MessageTypeCueScheduled, map[string]any{"plan": next, "rescheduled": true})
	}
}

// evaluate selects the best candidate and schedules a cue for it when the gate allows
func (e *Engine) evaluate(now time.Time) {
	defer func() {
		if e.pending == nil {
			e.setState(StateIdle)
		}
	}()

	var candidates []*track.State
	for _, s := range e.policy.Candidates(e.registry.All(), now) {
		if !e.missed[s.ID] {
			candidates = append(candidates, s)
		}
	}
	e.setCandidates(len(candidates))

	best, ok := trigger.SelectBest(candidates)
	if !ok {
		return
	}

	clip := e.library.Peek()
	plan, err := e.scheduler.Plan(now, best, clip)
	missed := errors.Is(err, cue.ErrMissedWindow)
	if err != nil && !missed {
		e.logger.Debug("Cannot schedule cue", String("id", best.ID), Error(err))
		return
	}

	// A window only counts as missed when the gate would have let the cue fire
	at := plan.StartAt
	if at.Before(now) {
		at = now
	}
	if !e.gate.Allowed(at) {
		e.logger.Debug("Chatter gate closed",
			String("id", best.ID),
			logger.Duration("wait", e.gate.TimeUntilAllowed(at)))
		return
	}
	if missed {
		e.recordMissed(best, plan, now)
		return
	}

	e.pending = &plan
	e.pendingClip = clip
	e.setState(StateWaiting)

	e.logger.Info("Scheduled cue",
		String("id", plan.ID),
		String("callsign", plan.Callsign),
		String("clip", plan.Clip),
		logger.Duration("eta", plan.ETA),
		logger.Time("start_at", plan.StartAt),
		logger.Float64("pass_distance", plan.PassDistance))
	e.publish(websocket.MessageTypeCueScheduled, map[string]any{"plan": plan})
}

func (e *Engine) dropPlan(reason string) {
	e.logger.Info("Dropped pending cue", String("id", e.pending.ID), String("reason", reason))
	e.pending = nil
	e.pendingClip = audio.Clip{}
	e.setState(StateIdle)
}

// recordMissed abandons a cue whose start has passed. The aircraft is not retried.
func (e *Engine) recordMissed(s *track.State, plan cue.Plan, now time.Time) {
	e.logger.Warn("Missed cue window",
		String("id", s.ID),
		String("callsign", s.Callsign),
		logger.Time("start_at", plan.StartAt))

	e.missed[s.ID] = true
	e.pending = nil
	e.pendingClip = audio.Clip{}
	e.setState(StateIdle)

	e.logCue(plan, sqlite.OutcomeMissed, now)
	e.publish(websocket.MessageTypeCueMissed, map[string]any{"plan": plan})
	go e.notifier.CueMissed(s.Callsign)
}

func (e *Engine) logCue(plan cue.Plan, outcome string, at time.Time) {
	if e.cueLog == nil {
		return
	}
	_, err := e.cueLog.InsertCue(&sqlite.CueRecord{
		AircraftID:   plan.ID,
		Callsign:     plan.Callsign,
		Clip:         plan.Clip,
		Outcome:      outcome,
		ETASeconds:   plan.ETA.Seconds(),
		Distance:     plan.Distance,
		PassDistance: plan.PassDistance,
		CreatedAt:    at,
	})
	if err != nil {
		e.logger.Error("Failed to record cue", String("id", plan.ID), Error(err))
	}
}
