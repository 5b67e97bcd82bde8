package cue

import (
	"errors"
	"fmt"
	"time"

	"github.com/yegors/fdwatch/internal/audio"
	"github.com/yegors/fdwatch/internal/config"
	"github.com/yegors/fdwatch/internal/geo"
	"github.com/yegors/fdwatch/internal/track"
)

var (
	// ErrSpeedTooLow means the speed is unknown, zero or below the configured minimum
	ErrSpeedTooLow = errors.New("speed too low to schedule")
	// ErrMissedWindow means the computed start is already further in the past than allowed
	ErrMissedWindow = errors.New("missed cue window")
	// ErrNotApproaching means the aircraft has no closest approach ahead of it
	ErrNotApproaching = errors.New("aircraft not approaching the deck")
)

// ETA returns the time for an aircraft to cover distanceMiles at speedKnots
func ETA(distanceMiles, speedKnots, minSpeed float64) (time.Duration, error) {
	if speedKnots <= 0 || speedKnots < minSpeed {
		return 0, fmt.Errorf("%w: %.1f kts", ErrSpeedTooLow, speedKnots)
	}
	hours := distanceMiles / (speedKnots * geo.KnotsToMPH)
	return time.Duration(hours * float64(time.Hour)), nil
}

// StartAt returns when a clip must start so that it ends offset before eta
func StartAt(now time.Time, eta, clip, offset time.Duration) time.Time {
	return now.Add(eta - clip - offset)
}

// Plan is a pending cue for one aircraft
type Plan struct {
	ID           string        `json:"id"`
	Callsign     string        `json:"callsign,omitempty"`
	Clip         string        `json:"clip"`
	ClipDuration time.Duration `json:"clip_duration"`
	Distance     float64       `json:"distance"`      // Along-track miles to the closest point
	PassDistance float64       `json:"pass_distance"` // Cross-track miles at the closest point
	Speed        float64       `json:"speed"`
	ETA          time.Duration `json:"eta"`
	PlannedAt    time.Time     `json:"planned_at"`
	StartAt      time.Time     `json:"start_at"`
}

// Scheduler turns a selected aircraft into a Plan
type Scheduler struct {
	MinSpeed            float64
	CompletionOffset    time.Duration
	RescheduleThreshold time.Duration
	MissedWindow        time.Duration
}

// NewScheduler builds a Scheduler from the loaded configuration
func NewScheduler(cfg *config.Config) Scheduler {
	return Scheduler{
		MinSpeed:            cfg.Trigger.MinSpeedKnots,
		CompletionOffset:    cfg.CompletionOffset(),
		RescheduleThreshold: cfg.RescheduleThreshold(),
		MissedWindow:        cfg.MissedWindow(),
	}
}

// Plan computes the start time for playing clip to s. The ETA is counted from when the
// position was received, so polls that bring no new position leave the start unchanged.
// The plan is returned alongside ErrMissedWindow so callers can report it.
func (sc Scheduler) Plan(now time.Time, s *track.State, clip audio.Clip) (Plan, error) {
	if s.Approach == nil {
		return Plan{}, ErrNotApproaching
	}
	if s.Speed == nil {
		return Plan{}, fmt.Errorf("%w: unknown", ErrSpeedTooLow)
	}

	eta, err := ETA(s.Approach.AlongTrack, *s.Speed, sc.MinSpeed)
	if err != nil {
		return Plan{}, err
	}

	fix := s.LastSeen
	if fix.IsZero() || fix.After(now) {
		fix = now
	}

	p := Plan{
		ID:           s.ID,
		Callsign:     s.Callsign,
		Clip:         clip.Name,
		ClipDuration: clip.Duration,
		Distance:     s.Approach.AlongTrack,
		PassDistance: s.Approach.CrossTrack,
		Speed:        *s.Speed,
		ETA:          eta,
		PlannedAt:    now,
		StartAt:      StartAt(fix, eta, clip.Duration, sc.CompletionOffset),
	}
	if sc.Missed(p, now) {
		return p, ErrMissedWindow
	}
	return p, nil
}

// Missed reports whether now is more than the missed window past the plan's start
func (sc Scheduler) Missed(p Plan, now time.Time) bool {
	return now.Sub(p.StartAt) > sc.MissedWindow
}

// Due reports whether the plan's start has been reached
func (sc Scheduler) Due(p Plan, now time.Time) bool {
	return !now.Before(p.StartAt)
}

// Moved reports whether next shifts the start by more than the reschedule threshold
func (sc Scheduler) Moved(current, next Plan) bool {
	d := next.StartAt.Sub(current.StartAt)
	if d < 0 {
		d = -d
	}
	return d > sc.RescheduleThreshold
}
