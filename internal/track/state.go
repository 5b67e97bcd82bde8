// Package track keeps the per-aircraft state derived from successive snapshots.
package track

import (
	"time"

	"github.com/yegors/fdwatch/internal/adsb"
	"github.com/yegors/fdwatch/internal/geo"
)

// HistoryCap is the number of altitude samples kept for trend tests
const HistoryCap = 3

// Params are the deck and runway settings phase classification needs
type Params struct {
	DeckLat          float64
	DeckLon          float64
	LandingHeading   float64 // True heading, degrees
	TakeoffHeading   float64 // True heading, degrees
	HeadingDeviation float64 // Inclusive tolerance, degrees
}

// State is one tracked aircraft. Only the Registry mutates it.
type State struct {
	ID       string
	Callsign string
	Category adsb.Category

	// Latest kinematics, nil when the last snapshot did not carry them
	Track    *float64
	Altitude *float64
	Speed    *float64
	Lat      *float64
	Lon      *float64

	// Derived on every update, nil when unknown
	Distance *float64
	Approach *geo.Approach

	// OnTakeoffHeading is the current, unlatched alignment with the takeoff runway
	OnTakeoffHeading bool

	FirstSeen time.Time
	LastSeen  time.Time

	history         []float64
	landingFromEast bool
	takeoffFromWest bool
	fired           bool
	firedAt         time.Time
}

func newState(id string, now time.Time) *State {
	return &State{
		ID:        id,
		FirstSeen: now,
		history:   make([]float64, 0, HistoryCap),
	}
}

// History returns a copy of the altitude samples, oldest first
func (s *State) History() []float64 {
	out := make([]float64, len(s.history))
	copy(out, s.history)
	return out
}

func (s *State) pushAltitude(alt float64) {
	if len(s.history) == HistoryCap {
		copy(s.history, s.history[1:])
		s.history = s.history[:HistoryCap-1]
	}
	s.history = append(s.history, alt)
}

// IsAscending is true only with a full history that strictly increases
func (s *State) IsAscending() bool {
	if len(s.history) < HistoryCap {
		return false
	}
	for i := 1; i < len(s.history); i++ {
		if s.history[i] <= s.history[i-1] {
			return false
		}
	}
	return true
}

// IsDescending is true only with a full history that strictly decreases
func (s *State) IsDescending() bool {
	if len(s.history) < HistoryCap {
		return false
	}
	for i := 1; i < len(s.history); i++ {
		if s.history[i] >= s.history[i-1] {
			return false
		}
	}
	return true
}

// LandingFromEast is latched once the aircraft was seen east of the deck, on the landing
// heading and descending.
func (s *State) LandingFromEast() bool { return s.landingFromEast }

// TakeoffFromWest is latched once the aircraft was seen west of the deck, on the landing
// heading and climbing.
func (s *State) TakeoffFromWest() bool { return s.takeoffFromWest }

// FiredAt returns when a cue fired for this aircraft
func (s *State) FiredAt() (time.Time, bool) {
	return s.firedAt, s.fired
}

// Fired reports whether the trigger flag is set
func (s *State) Fired() bool {
	return s.fired
}

// MarkFired sets the trigger flag. It returns false, leaving the flag untouched, when it was
// already set.
func (s *State) MarkFired(now time.Time) bool {
	if s.Fired() {
		return false
	}
	s.fired = true
	s.firedAt = now
	return true
}

// Stale reports whether the aircraft has not been seen within timeout
func (s *State) Stale(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastSeen) > timeout
}

// update overwrites kinematics from snap and recomputes everything derived from them
func (s *State) update(now time.Time, snap adsb.Snapshot, p Params) {
	s.LastSeen = now
	if snap.Callsign != nil {
		s.Callsign = *snap.Callsign
	}
	if snap.Category != adsb.CategoryUnknown {
		s.Category = snap.Category
	}

	s.Track = snap.Track
	s.Altitude = snap.Altitude
	s.Speed = snap.Speed
	s.Lat = snap.Lat
	s.Lon = snap.Lon

	if s.Altitude != nil {
		s.pushAltitude(*s.Altitude)
	}

	s.Distance = nil
	s.Approach = nil
	if s.Lat != nil && s.Lon != nil {
		if d, ok := geo.Distance(p.DeckLat, p.DeckLon, *s.Lat, *s.Lon); ok {
			s.Distance = &d
		}
		if s.Track != nil {
			if a, ok := geo.ClosestApproach(p.DeckLat, p.DeckLon, *s.Lat, *s.Lon, *s.Track); ok {
				s.Approach = &a
			}
		}
	}

	s.classify(p)
}

// classify latches the phase flags. It only ever sets them.
func (s *State) classify(p Params) {
	s.OnTakeoffHeading = false
	if s.Track == nil {
		return
	}
	s.OnTakeoffHeading = OnHeading(*s.Track, p.TakeoffHeading, p.HeadingDeviation)

	if s.Lon == nil || !OnHeading(*s.Track, p.LandingHeading, p.HeadingDeviation) {
		return
	}
	east := *s.Lon > p.DeckLon
	west := *s.Lon < p.DeckLon

	if east && s.IsDescending() {
		s.landingFromEast = true
	}
	if west && s.IsAscending() {
		s.takeoffFromWest = true
	}
}

// OnHeading reports whether track is within deviation degrees of heading, wrap-around aware
func OnHeading(track, heading, deviation float64) bool {
	return geo.HeadingDifference(track, heading) <= deviation
}

// IsOnApproachHeading compares track against a runway number (tens of degrees)
func IsOnApproachHeading(track float64, runway int, deviation float64) bool {
	return OnHeading(track, float64(runway*10), deviation)
}
