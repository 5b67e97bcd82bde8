package adsb

import (
	"strings"
)

// RawAircraftData represents the raw JSON data from the ADS-B source
type RawAircraftData struct {
	Now      float64      `json:"now"`
	Messages int          `json:"messages"`
	Aircraft []ADSBTarget `json:"aircraft"`
}

// ADSBTarget represents a single aircraft in the raw ADS-B data.
// Numeric fields use FlexibleField so that absent values stay distinguishable from zero
// and the external APIs that send numbers as strings decode the same way.
type ADSBTarget struct {
	Hex          string        `json:"hex"`
	Type         string        `json:"type"`
	Flight       string        `json:"flight"`
	Registration string        `json:"r,omitempty"` // External API specific field (r)
	AircraftType string        `json:"t,omitempty"` // External API specific field (t)
	Category     string        `json:"category"`
	Squawk       string        `json:"squawk"`
	AltBaro      FlexibleField `json:"alt_baro"` // Feet, or "ground"
	GS           FlexibleField `json:"gs"`       // Knots
	Track        FlexibleField `json:"track"`    // Degrees true
	Lat          FlexibleField `json:"lat"`
	Lon          FlexibleField `json:"lon"`
	Seen         FlexibleField `json:"seen"`
	SeenPos      FlexibleField `json:"seen_pos"`
	Messages     FlexibleField `json:"messages"`
	RSSI         FlexibleField `json:"rssi"`
	SourceType   string        `json:"source_type,omitempty"` // "local", "external-adsbexchangelike" or "simulation"
}

// Snapshot is one aircraft's observation for a single poll, normalized at the ingestion
// boundary. Every field except ID may be nil, meaning unknown.
type Snapshot struct {
	ID       string
	Callsign *string
	Category Category
	Track    *float64 // Degrees true
	Altitude *float64 // Barometric, feet
	Speed    *float64 // Ground speed, knots
	Lat      *float64
	Lon      *float64
}

// Snapshot converts the raw target. ok is false when the target has no identifier.
func (t *ADSBTarget) Snapshot() (Snapshot, bool) {
	id := strings.ToLower(strings.TrimSpace(t.Hex))
	if id == "" {
		return Snapshot{}, false
	}

	s := Snapshot{
		ID:       id,
		Category: ParseCategory(t.Category),
		Track:    t.Track.Float64Ptr(),
		Altitude: t.AltBaro.Float64Ptr(),
		Speed:    t.GS.Float64Ptr(),
		Lat:      t.Lat.Float64Ptr(),
		Lon:      t.Lon.Float64Ptr(),
	}
	if callsign := CleanFlightName(t.Flight); callsign != "" {
		s.Callsign = &callsign
	}
	return s, true
}

// Snapshots converts every target with an identifier
func (d *RawAircraftData) Snapshots() []Snapshot {
	if d == nil {
		return nil
	}
	out := make([]Snapshot, 0, len(d.Aircraft))
	for i := range d.Aircraft {
		if s, ok := d.Aircraft[i].Snapshot(); ok {
			out = append(out, s)
		}
	}
	return out
}

// CleanFlightName strips padding and non-printable characters from a callsign
func CleanFlightName(flight string) string {
	var b strings.Builder
	for _, r := range flight {
		if r > ' ' && r < 0x7f {
			b.WriteRune(r)
		}
	}
	return strings.ToUpper(b.String())
}
