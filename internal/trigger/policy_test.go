package trigger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/fdwatch/internal/adsb"
	"github.com/yegors/fdwatch/internal/geo"
	"github.com/yegors/fdwatch/internal/track"
)

const (
	deckLat = 33.6762
	deckLon = -117.8675
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testPolicy() Policy {
	return Policy{
		DeckLat:       deckLat,
		DeckLon:       deckLon,
		TriggerRadius: 4,
		MinAltitude:   0,
		MaxAltitude:   3000,
		MinSpeed:      80,
		MaxSpeed:      250,
		PollInterval:  time.Second,
		StaleTimeout:  time.Minute,
	}
}

func ptr(v float64) *float64 { return &v }

// approaching returns a snapshot of an aircraft east of the deck at miles, flying west at it
func approaching(id string, miles float64) adsb.Snapshot {
	lat, lon := geo.Project(deckLat, deckLon, 90, miles)
	return adsb.Snapshot{
		ID:       id,
		Category: adsb.CategoryLarge,
		Track:    ptr(270),
		Altitude: ptr(1500),
		Speed:    ptr(140),
		Lat:      ptr(lat),
		Lon:      ptr(lon),
	}
}

func ingest(t *testing.T, snaps ...adsb.Snapshot) []*track.State {
	t.Helper()
	r := track.NewRegistry(track.Params{DeckLat: deckLat, DeckLon: deckLon, LandingHeading: 200, HeadingDeviation: 15})
	states := r.Ingest(now, snaps)
	require.Len(t, states, len(snaps))
	return states
}

func TestEligibleBaseline(t *testing.T) {
	s := ingest(t, approaching("abc", 3))[0]
	p := testPolicy()

	assert.True(t, p.InTriggerRadius(s))
	assert.True(t, p.SpeedInRange(s))
	assert.True(t, p.AltitudeInRange(s))
	assert.True(t, p.MovingTowardDeck(s))
	assert.True(t, p.CategoryAllowed(s.Category))
	assert.True(t, p.Eligible(s, now))
}

func TestIneligible(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *adsb.Snapshot)
		policy func(p *Policy)
		reason string
	}{
		{
			name:   "outside trigger radius",
			mutate: func(s *adsb.Snapshot) { *s = approaching(s.ID, 5) },
			reason: ReasonRadius,
		},
		{
			name:   "unknown position",
			mutate: func(s *adsb.Snapshot) { s.Lat = nil },
			reason: ReasonRadius,
		},
		{
			name:   "zero speed",
			mutate: func(s *adsb.Snapshot) { s.Speed = ptr(0) },
			reason: ReasonSpeed,
		},
		{
			name:   "unknown speed",
			mutate: func(s *adsb.Snapshot) { s.Speed = nil },
			reason: ReasonSpeed,
		},
		{
			name:   "too high",
			mutate: func(s *adsb.Snapshot) { s.Altitude = ptr(3001) },
			reason: ReasonAltitude,
		},
		{
			name:   "unknown altitude",
			mutate: func(s *adsb.Snapshot) { s.Altitude = nil },
			reason: ReasonAltitude,
		},
		{
			name:   "heading away",
			mutate: func(s *adsb.Snapshot) { s.Track = ptr(90) },
			reason: ReasonNotApproaching,
		},
		{
			name:   "unknown track",
			mutate: func(s *adsb.Snapshot) { s.Track = nil },
			reason: ReasonNotApproaching,
		},
		{
			name:   "glider",
			mutate: func(s *adsb.Snapshot) { s.Category = adsb.CategoryGlider },
			reason: ReasonCategory,
		},
		{
			name:   "ignored helicopter",
			mutate: func(s *adsb.Snapshot) { s.Category = adsb.CategoryRotorcraft },
			policy: func(p *Policy) { p.Ignore.Helicopters = true },
			reason: ReasonCategory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := approaching("abc", 3)
			tt.mutate(&snap)
			s := ingest(t, snap)[0]

			p := testPolicy()
			if tt.policy != nil {
				tt.policy(&p)
			}

			assert.Equal(t, tt.reason, p.Check(s, now))
			assert.False(t, p.Eligible(s, now))
		})
	}
}

func TestFiredAndStaleAreIneligible(t *testing.T) {
	p := testPolicy()

	s := ingest(t, approaching("abc", 3))[0]
	require.True(t, s.MarkFired(now))
	assert.Equal(t, ReasonFired, p.Check(s, now))

	s = ingest(t, approaching("abc", 3))[0]
	assert.Equal(t, ReasonStale, p.Check(s, now.Add(2*time.Minute)))
}

func TestMovingTowardDeckZeroSpeed(t *testing.T) {
	snap := approaching("abc", 3)
	snap.Speed = ptr(0)
	s := ingest(t, snap)[0]

	p := testPolicy()
	p.MinSpeed = 0
	assert.True(t, p.SpeedInRange(s))
	assert.False(t, p.MovingTowardDeck(s))
}

func TestCategoryAllowed(t *testing.T) {
	all := Policy{Ignore: Ignore{
		Helicopters: true, Light: true, Small: true, Large: true, Heavy: true, HighPerformance: true,
	}}
	none := Policy{}

	tests := []struct {
		code        string
		withIgnores bool
		without     bool
	}{
		{"A1", false, true},
		{"A2", false, true},
		{"A3", false, true},
		{"A4", true, true},
		{"A5", false, true},
		{"A6", false, true},
		{"A7", false, true},
		{"B1", false, false},
		{"B2", true, true},
		{"C1", false, false},
		{"C3", false, false},
		{"C7", false, false},
		{"", true, true},
	}

	for _, tt := range tests {
		c := adsb.ParseCategory(tt.code)
		assert.Equal(t, tt.withIgnores, all.CategoryAllowed(c), "ignored %q", tt.code)
		assert.Equal(t, tt.without, none.CategoryAllowed(c), "default %q", tt.code)
	}
}

func TestSelectBest(t *testing.T) {
	near := approaching("bbb", 3)
	offset := approaching("aaa", 3)
	lat, lon := geo.Project(*offset.Lat, *offset.Lon, 0, 0.5)
	offset.Lat, offset.Lon = &lat, &lon
	twin := approaching("ccc", 3)

	states := ingest(t, offset, twin, near)
	p := testPolicy()
	cands := p.Candidates(states, now)
	require.Len(t, cands, 3)

	best, ok := SelectBest(cands)
	require.True(t, ok)
	assert.Equal(t, "bbb", best.ID, "head-on beats the offset track; ties go to the lowest id")

	_, ok = SelectBest(nil)
	assert.False(t, ok)
}
