package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/fdwatch/internal/adsb"
)

const (
	deckLat = 33.6762
	deckLon = -117.8675
	eastLon = -117.80
	westLon = -117.93
)

var testParams = Params{
	DeckLat:          deckLat,
	DeckLon:          deckLon,
	LandingHeading:   200,
	TakeoffHeading:   20,
	HeadingDeviation: 15,
}

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

func snap(id string, lon, track, alt float64) adsb.Snapshot {
	return adsb.Snapshot{
		ID:       id,
		Track:    ptr(track),
		Altitude: ptr(alt),
		Speed:    ptr(150),
		Lat:      ptr(deckLat + 0.01),
		Lon:      ptr(lon),
	}
}

func ingestAltitudes(r *Registry, id string, lon, track float64, alts ...float64) *State {
	var s *State
	for i, alt := range alts {
		touched := r.Ingest(t0.Add(time.Duration(i)*time.Second), []adsb.Snapshot{snap(id, lon, track, alt)})
		s = touched[0]
	}
	return s
}

func TestHistoryIsBounded(t *testing.T) {
	r := NewRegistry(testParams)
	s := ingestAltitudes(r, "abc", eastLon, 90, 1000, 2000, 3000, 4000)

	assert.Equal(t, []float64{2000, 3000, 4000}, s.History())
	assert.NotContains(t, s.History(), 1000.0)
	assert.LessOrEqual(t, len(s.History()), HistoryCap)
}

func TestTrend(t *testing.T) {
	tests := []struct {
		name       string
		alts       []float64
		ascending  bool
		descending bool
	}{
		{"climbing", []float64{1000, 2000, 3000}, true, false},
		{"descending", []float64{3000, 2000, 1000}, false, true},
		{"flat step", []float64{1000, 1000, 2000}, false, false},
		{"too few samples", []float64{1000, 2000}, false, false},
		{"single sample", []float64{1000}, false, false},
		{"zigzag", []float64{1000, 3000, 2000}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(testParams)
			s := ingestAltitudes(r, "abc", eastLon, 90, tt.alts...)
			assert.Equal(t, tt.ascending, s.IsAscending())
			assert.Equal(t, tt.descending, s.IsDescending())
		})
	}
}

func TestMissingAltitudeIsNotPushed(t *testing.T) {
	r := NewRegistry(testParams)
	s := ingestAltitudes(r, "abc", eastLon, 90, 1000, 2000)

	noAlt := snap("abc", eastLon, 90, 0)
	noAlt.Altitude = nil
	r.Ingest(t0.Add(10*time.Second), []adsb.Snapshot{noAlt})

	assert.Nil(t, s.Altitude)
	assert.Equal(t, []float64{1000, 2000}, s.History())
}

func TestUnknownPositionClearsDerived(t *testing.T) {
	r := NewRegistry(testParams)
	s := ingestAltitudes(r, "abc", eastLon, 270, 1000)
	require.NotNil(t, s.Distance)
	require.NotNil(t, s.Approach)

	noPos := snap("abc", eastLon, 270, 1000)
	noPos.Lat = nil
	r.Ingest(t0.Add(time.Second), []adsb.Snapshot{noPos})

	assert.Nil(t, s.Distance)
	assert.Nil(t, s.Approach)
}

func TestLandingFromEastLatches(t *testing.T) {
	r := NewRegistry(testParams)
	s := ingestAltitudes(r, "abc", eastLon, 200, 3000, 2500)
	assert.False(t, s.LandingFromEast(), "two samples are not a trend")

	ingestAltitudes(r, "abc", eastLon, 200, 2000)
	assert.True(t, s.LandingFromEast())
	assert.False(t, s.TakeoffFromWest())

	// Off heading, west and climbing afterwards: the flag stays set
	ingestAltitudes(r, "abc", westLon, 90, 2100, 2200, 2300, 2400)
	assert.True(t, s.LandingFromEast())
	assert.False(t, s.TakeoffFromWest(), "90° is not the landing heading")
}

func TestTakeoffFromWestLatches(t *testing.T) {
	r := NewRegistry(testParams)
	s := ingestAltitudes(r, "abc", westLon, 205, 500, 1000, 1500)
	assert.True(t, s.TakeoffFromWest())
	assert.False(t, s.LandingFromEast())

	ingestAltitudes(r, "abc", eastLon, 30, 1400, 1300, 1200)
	assert.True(t, s.TakeoffFromWest())
	assert.False(t, s.LandingFromEast(), "30° is not the landing heading")
	assert.True(t, s.OnTakeoffHeading)
}

func TestEastOfDeckDescendingOffHeading(t *testing.T) {
	r := NewRegistry(testParams)
	s := ingestAltitudes(r, "abc", eastLon, 270, 3000, 2000, 1000)
	assert.True(t, s.IsDescending())
	assert.False(t, s.LandingFromEast())
}

func TestCallsignAndCategoryRetained(t *testing.T) {
	r := NewRegistry(testParams)
	first := snap("abc", eastLon, 200, 1000)
	callsign := "SWA1"
	first.Callsign = &callsign
	first.Category = adsb.CategoryLarge
	r.Ingest(t0, []adsb.Snapshot{first})

	s := ingestAltitudes(r, "abc", eastLon, 200, 900)
	assert.Equal(t, "SWA1", s.Callsign)
	assert.Equal(t, adsb.CategoryLarge, s.Category)
	assert.Equal(t, t0, s.FirstSeen)
}

func TestIngestUpdatesInPlace(t *testing.T) {
	r := NewRegistry(testParams)
	a := r.Ingest(t0, []adsb.Snapshot{snap("abc", eastLon, 200, 1000), {ID: ""}})
	require.Len(t, a, 1, "records without identifier are skipped")

	b := r.Ingest(t0.Add(time.Second), []adsb.Snapshot{snap("abc", eastLon, 200, 900)})
	assert.Same(t, a[0], b[0])
	assert.Equal(t, 1, r.Len())
}

func TestMarkFiredOnce(t *testing.T) {
	r := NewRegistry(testParams)
	s := ingestAltitudes(r, "abc", eastLon, 200, 1000)

	assert.False(t, s.Fired())
	assert.True(t, s.MarkFired(t0))
	for i := 0; i < 3; i++ {
		assert.False(t, s.MarkFired(t0.Add(time.Duration(i+1)*time.Minute)))
	}

	firedAt, ok := s.FiredAt()
	require.True(t, ok)
	assert.Equal(t, t0, firedAt)

	// A fresh sighting does not reset the flag
	ingestAltitudes(r, "abc", eastLon, 200, 900)
	assert.True(t, s.Fired())
}

func TestExpire(t *testing.T) {
	const timeout = time.Minute
	const grace = 5 * time.Minute

	r := NewRegistry(testParams)
	r.Ingest(t0, []adsb.Snapshot{
		snap("stale", eastLon, 200, 1000),
		snap("fired", eastLon, 200, 1000),
	})
	fired, _ := r.Get("fired")
	fired.MarkFired(t0)

	later := t0.Add(2 * timeout)
	r.Ingest(later, []adsb.Snapshot{snap("fresh", eastLon, 200, 1000)})

	active := r.Active(later, timeout)
	require.Len(t, active, 1)
	assert.Equal(t, "fresh", active[0].ID)

	evicted := r.Expire(later, timeout, grace)
	assert.Equal(t, []string{"stale"}, evicted)
	_, ok := r.Get("fired")
	assert.True(t, ok, "fired entries stay for the grace window")

	evicted = r.Expire(t0.Add(grace), timeout, grace)
	assert.Equal(t, []string{"fired", "fresh"}, evicted)
	assert.Equal(t, 0, r.Len())
}

func TestIsOnApproachHeading(t *testing.T) {
	tests := []struct {
		track     float64
		runway    int
		deviation float64
		want      bool
	}{
		{195, 20, 15, true},
		{215, 20, 15, true},
		{185, 20, 15, true},
		{216, 20, 15, false},
		{184.9, 20, 15, false},
		{355, 36, 10, true},
		{5, 36, 10, true},
		{10, 36, 10, true},
		{11, 36, 10, false},
		{20, 2, 0, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsOnApproachHeading(tt.track, tt.runway, tt.deviation),
			"track %v runway %d deviation %v", tt.track, tt.runway, tt.deviation)
	}
}

func TestViewIsDetached(t *testing.T) {
	r := NewRegistry(testParams)
	s := ingestAltitudes(r, "abc", eastLon, 270, 1000)
	v := s.View()

	*v.Altitude = 42
	v.History[0] = 42

	assert.Equal(t, 1000.0, *s.Altitude)
	assert.Equal(t, []float64{1000}, s.History())
	require.NotNil(t, v.ClosestApproach)
	assert.Nil(t, v.FiredAt)
}
