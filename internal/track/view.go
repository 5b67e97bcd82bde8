package track

import (
	"time"

	"github.com/yegors/fdwatch/internal/adsb"
)

// View is a detached copy of a State for read-only observers. Distances are statute miles.
type View struct {
	ID               string        `json:"id"`
	Callsign         string        `json:"callsign,omitempty"`
	Category         adsb.Category `json:"category"`
	Track            *float64      `json:"track,omitempty"`
	Altitude         *float64      `json:"altitude,omitempty"`
	Speed            *float64      `json:"speed,omitempty"`
	Lat              *float64      `json:"lat,omitempty"`
	Lon              *float64      `json:"lon,omitempty"`
	Distance         *float64      `json:"distance,omitempty"`
	ClosestApproach  *float64      `json:"closest_approach,omitempty"`
	AlongTrack       *float64      `json:"along_track,omitempty"`
	History          []float64     `json:"altitude_history"`
	Ascending        bool          `json:"ascending"`
	Descending       bool          `json:"descending"`
	LandingFromEast  bool          `json:"landing_from_east"`
	TakeoffFromWest  bool          `json:"takeoff_from_west"`
	OnTakeoffHeading bool          `json:"on_takeoff_heading"`
	FiredAt          *time.Time    `json:"fired_at,omitempty"`
	FirstSeen        time.Time     `json:"first_seen"`
	LastSeen         time.Time     `json:"last_seen"`
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// View copies the state
func (s *State) View() View {
	v := View{
		ID:               s.ID,
		Callsign:         s.Callsign,
		Category:         s.Category,
		Track:            copyFloat(s.Track),
		Altitude:         copyFloat(s.Altitude),
		Speed:            copyFloat(s.Speed),
		Lat:              copyFloat(s.Lat),
		Lon:              copyFloat(s.Lon),
		Distance:         copyFloat(s.Distance),
		History:          s.History(),
		Ascending:        s.IsAscending(),
		Descending:       s.IsDescending(),
		LandingFromEast:  s.landingFromEast,
		TakeoffFromWest:  s.takeoffFromWest,
		OnTakeoffHeading: s.OnTakeoffHeading,
		FirstSeen:        s.FirstSeen,
		LastSeen:         s.LastSeen,
	}
	if s.Approach != nil {
		xt, at := s.Approach.CrossTrack, s.Approach.AlongTrack
		v.ClosestApproach = &xt
		v.AlongTrack = &at
	}
	if firedAt, ok := s.FiredAt(); ok {
		v.FiredAt = &firedAt
	}
	return v
}
