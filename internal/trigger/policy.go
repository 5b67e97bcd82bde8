// Package trigger decides which tracked aircraft may receive a cue.
package trigger

import (
	"time"

	"github.com/yegors/fdwatch/internal/adsb"
	"github.com/yegors/fdwatch/internal/config"
	"github.com/yegors/fdwatch/internal/geo"
	"github.com/yegors/fdwatch/internal/track"
)

// Reasons a candidate is rejected, used in debug logging and views
const (
	ReasonEligible       = ""
	ReasonFired          = "already_fired"
	ReasonStale          = "stale"
	ReasonCategory       = "category"
	ReasonRadius         = "outside_trigger_radius"
	ReasonSpeed          = "speed_out_of_band"
	ReasonAltitude       = "altitude_out_of_band"
	ReasonNotApproaching = "not_approaching"
)

// Ignore holds the optional category exclusions
type Ignore struct {
	Helicopters     bool // A7
	Light           bool // A1
	Small           bool // A2
	Large           bool // A3
	Heavy           bool // A5
	HighPerformance bool // A6
}

// Policy evaluates tracked aircraft against the trigger configuration
type Policy struct {
	DeckLat       float64
	DeckLon       float64
	TriggerRadius float64 // Statute miles
	MinAltitude   float64
	MaxAltitude   float64
	MinSpeed      float64 // Knots
	MaxSpeed      float64 // Knots
	PollInterval  time.Duration
	StaleTimeout  time.Duration
	Ignore        Ignore
}

// NewPolicy builds a Policy from the loaded configuration
func NewPolicy(cfg *config.Config) Policy {
	return Policy{
		DeckLat:       cfg.Station.Latitude,
		DeckLon:       cfg.Station.Longitude,
		TriggerRadius: cfg.Trigger.TriggerRadius,
		MinAltitude:   cfg.Trigger.MinAltitudeFeet,
		MaxAltitude:   cfg.Trigger.MaxAltitudeFeet,
		MinSpeed:      cfg.Trigger.MinSpeedKnots,
		MaxSpeed:      cfg.Trigger.MaxSpeedKnots,
		PollInterval:  cfg.FetchInterval(),
		StaleTimeout:  cfg.StaleTimeout(),
		Ignore: Ignore{
			Helicopters:     cfg.Categories.IgnoreHelicopters,
			Light:           cfg.Categories.IgnoreLightAircraft,
			Small:           cfg.Categories.IgnoreSmallAircraft,
			Large:           cfg.Categories.IgnoreLargeAircraft,
			Heavy:           cfg.Categories.IgnoreHeavyAircraft,
			HighPerformance: cfg.Categories.IgnoreHighPerformanceAircraft,
		},
	}
}

// InTriggerRadius is false when the distance is unknown
func (p Policy) InTriggerRadius(s *track.State) bool {
	return s.Distance != nil && *s.Distance <= p.TriggerRadius
}

// SpeedInRange checks the inclusive speed band
func (p Policy) SpeedInRange(s *track.State) bool {
	return s.Speed != nil && *s.Speed >= p.MinSpeed && *s.Speed <= p.MaxSpeed
}

// AltitudeInRange checks the inclusive altitude band
func (p Policy) AltitudeInRange(s *track.State) bool {
	return s.Altitude != nil && *s.Altitude >= p.MinAltitude && *s.Altitude <= p.MaxAltitude
}

// MovingTowardDeck projects the aircraft one poll interval along its track and requires the
// projected distance to be smaller than the current one. The closest approach must also be
// defined, which rules out tracks more than 90° off the deck.
func (p Policy) MovingTowardDeck(s *track.State) bool {
	if s.Lat == nil || s.Lon == nil || s.Track == nil || s.Speed == nil || s.Distance == nil {
		return false
	}
	if s.Approach == nil || *s.Speed <= 0 {
		return false
	}

	hours := p.PollInterval.Hours()
	lat, lon := geo.Project(*s.Lat, *s.Lon, *s.Track, *s.Speed*geo.KnotsToMPH*hours)
	next, ok := geo.Distance(p.DeckLat, p.DeckLon, lat, lon)
	return ok && next < *s.Distance
}

// CategoryAllowed applies the fixed and configured category exclusions. Gliders and surface
// vehicles are never allowed; unknown categories are.
func (p Policy) CategoryAllowed(c adsb.Category) bool {
	switch {
	case c == adsb.CategoryGlider, c.IsSurfaceVehicle():
		return false
	case c == adsb.CategoryRotorcraft:
		return !p.Ignore.Helicopters
	case c == adsb.CategoryLight:
		return !p.Ignore.Light
	case c == adsb.CategorySmall:
		return !p.Ignore.Small
	case c == adsb.CategoryLarge:
		return !p.Ignore.Large
	case c == adsb.CategoryHeavy:
		return !p.Ignore.Heavy
	case c == adsb.CategoryHighPerformance:
		return !p.Ignore.HighPerformance
	default:
		return true
	}
}

// Check returns ReasonEligible when every predicate holds, otherwise the first failing one
func (p Policy) Check(s *track.State, now time.Time) string {
	switch {
	case s.Fired():
		return ReasonFired
	case s.Stale(now, p.StaleTimeout):
		return ReasonStale
	case !p.CategoryAllowed(s.Category):
		return ReasonCategory
	case !p.InTriggerRadius(s):
		return ReasonRadius
	case !p.SpeedInRange(s):
		return ReasonSpeed
	case !p.AltitudeInRange(s):
		return ReasonAltitude
	case !p.MovingTowardDeck(s):
		return ReasonNotApproaching
	}
	return ReasonEligible
}

// Eligible reports whether a cue may be scheduled for s
func (p Policy) Eligible(s *track.State, now time.Time) bool {
	return p.Check(s, now) == ReasonEligible
}

// Candidates filters states down to the eligible ones, preserving order
func (p Policy) Candidates(states []*track.State, now time.Time) []*track.State {
	var out []*track.State
	for _, s := range states {
		if p.Eligible(s, now) {
			out = append(out, s)
		}
	}
	return out
}

// SelectBest picks the candidate passing closest to the deck, ties to the lowest identifier.
// Candidates without a closest approach are skipped.
func SelectBest(candidates []*track.State) (*track.State, bool) {
	var best *track.State
	for _, s := range candidates {
		if s.Approach == nil {
			continue
		}
		if best == nil ||
			s.Approach.CrossTrack < best.Approach.CrossTrack ||
			(s.Approach.CrossTrack == best.Approach.CrossTrack && s.ID < best.ID) {
			best = s
		}
	}
	return best, best != nil
}
