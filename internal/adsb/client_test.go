package adsb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/fdwatch/pkg/logger"
)

const localFeed = `{
  "now": 1718000000.1,
  "messages": 1234,
  "aircraft": [
    {"hex": "A1B2C3", "flight": "SWA123  ", "category": "A3", "alt_baro": 2500, "gs": 140.5, "track": 198.2, "lat": 33.70, "lon": -117.80},
    {"hex": "abc001", "alt_baro": "ground", "gs": 0, "lat": 33.67, "lon": -117.86},
    {"hex": "abc002", "flight": "N123AB", "category": "A7"},
    {"flight": "NOHEX"}
  ]
}`

const externalFeed = `{
  "ac": [
    {"hex": "def456", "flight": "UAL9", "category": "A5", "alt_baro": "3100", "gs": "180", "track": "200.5", "lat": "33.71", "lon": "-117.79"},
    {"hex": "def457", "alt_baro": null, "gs": "", "lat": 33.5, "lon": -117.5}
  ],
  "messages": 10
}`

func newTestClient(sourceType, url string) *Client {
	return NewClient(sourceType, url, url+"?lat=%f&lon=%f&dist=%f", "host", "key",
		33.6762, -117.8675, 10, 2*time.Second, logger.NewNop())
}

func TestFetchLocal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(localFeed))
	}))
	defer srv.Close()

	snaps, err := newTestClient(SourceLocal, srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 3, "targets without hex are dropped")

	full := snaps[0]
	assert.Equal(t, "a1b2c3", full.ID)
	require.NotNil(t, full.Callsign)
	assert.Equal(t, "SWA123", *full.Callsign)
	assert.Equal(t, CategoryLarge, full.Category)
	require.NotNil(t, full.Altitude)
	assert.Equal(t, 2500.0, *full.Altitude)
	require.NotNil(t, full.Speed)
	assert.Equal(t, 140.5, *full.Speed)

	ground := snaps[1]
	require.NotNil(t, ground.Altitude)
	assert.Equal(t, 0.0, *ground.Altitude, "ground reads as a known zero")
	require.NotNil(t, ground.Speed)
	assert.Equal(t, 0.0, *ground.Speed)
	assert.Nil(t, ground.Track)
	assert.Nil(t, ground.Callsign)
	assert.Equal(t, CategoryUnknown, ground.Category)

	sparse := snaps[2]
	assert.Equal(t, CategoryRotorcraft, sparse.Category)
	assert.Nil(t, sparse.Lat)
	assert.Nil(t, sparse.Lon)
	assert.Nil(t, sparse.Altitude)
}

func TestFetchExternal(t *testing.T) {
	var gotQuery, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("x-rapidapi-key")
		_, _ = w.Write([]byte(externalFeed))
	}))
	defer srv.Close()

	data, err := newTestClient(SourceExternal, srv.URL).FetchData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "key", gotKey)
	assert.Contains(t, gotQuery, "lat=33.676200")
	assert.Contains(t, gotQuery, "dist=8.689")
	assert.Equal(t, SourceExternal, data.Aircraft[0].SourceType)
	assert.NotZero(t, data.Now)

	snaps := data.Snapshots()
	require.Len(t, snaps, 2)
	require.NotNil(t, snaps[0].Altitude)
	assert.Equal(t, 3100.0, *snaps[0].Altitude)
	require.NotNil(t, snaps[0].Track)
	assert.Equal(t, 200.5, *snaps[0].Track)
	assert.Equal(t, CategoryHeavy, snaps[0].Category)

	assert.Nil(t, snaps[1].Altitude, "null is unknown")
	assert.Nil(t, snaps[1].Speed, "empty string is unknown")
	require.NotNil(t, snaps[1].Lat)
}

func TestFetchUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(SourceLocal, srv.URL).FetchData(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))
}

func TestFetchBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	_, err := newTestClient(SourceLocal, srv.URL).FetchData(context.Background())
	assert.Error(t, err)
}

func TestFetchUnknownSource(t *testing.T) {
	_, err := newTestClient("carrier-pigeon", "http://unused").FetchData(context.Background())
	assert.Error(t, err)
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		code    string
		want    Category
		surface bool
	}{
		{"A1", CategoryLight, false},
		{"a7", CategoryRotorcraft, false},
		{" B1 ", CategoryGlider, false},
		{"C1", CategoryEmergencyVehicle, true},
		{"C7", CategoryReservedC7, true},
		{"C0", CategoryNoInfoC, false},
		{"", CategoryUnknown, false},
		{"A8", CategoryUnknown, false},
		{"E1", CategoryUnknown, false},
		{"A10", CategoryUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := ParseCategory(tt.code)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.surface, got.IsSurfaceVehicle())
		})
	}

	assert.Equal(t, "D7", ParseCategory("D7").Code())
	assert.Equal(t, "unknown", CategoryUnknown.String())
	assert.Equal(t, "A5", CategoryHeavy.String())
}
