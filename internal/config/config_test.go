package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalTOML = `
[station]
latitude = 33.6762
longitude = -117.8675

[adsb]
source_type = "simulation"
fetch_interval_seconds = 2

[trigger]
monitoring_radius_miles = 10
trigger_radius_miles = 4
max_altitude_feet = 3000
min_speed_knots = 80
max_speed_knots = 250

[phases]
landing_runway = 20
takeoff_runway = 2

[chatter]
chatter_per_hour = 6

[cue]
audio_completion_offset = 5

[button.codes]
8059905 = "A"

[[audio.clips]]
file = "one.mp3"

[[audio.clips.effects]]
command = "x"
duration_seconds = 1.5
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalTOML))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 2*time.Second, cfg.FetchInterval())
	assert.Equal(t, time.Minute, cfg.StaleTimeout())
	assert.Equal(t, 5*time.Second, cfg.CompletionOffset())
	assert.Equal(t, "serial", cfg.Transport.Type)
	assert.Equal(t, 115200, cfg.Transport.BaudRate)
	assert.Equal(t, 15.0, cfg.Phases.HeadingDeviation)
	assert.Equal(t, "A", cfg.Button.Codes["8059905"])
	require.Len(t, cfg.Audio.Clips, 1)
	require.Len(t, cfg.Audio.Clips[0].Effects, 1)
	assert.Equal(t, 1.5, cfg.Audio.Clips[0].Effects[0].DurationSecs)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadWithFallbackPrefersExplicitPath(t *testing.T) {
	path := writeConfig(t, minimalTOML)
	cfg, err := LoadWithFallback(path)
	require.NoError(t, err)
	assert.Equal(t, 33.6762, cfg.Station.Latitude)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing station", func(c *Config) { c.Station = StationConfig{} }},
		{"trigger radius zero", func(c *Config) { c.Trigger.TriggerRadius = 0 }},
		{"trigger outside monitoring", func(c *Config) { c.Trigger.MonitoringRadius = 2 }},
		{"inverted altitude band", func(c *Config) { c.Trigger.MinAltitudeFeet = 5000 }},
		{"inverted speed band", func(c *Config) { c.Trigger.MinSpeedKnots = 400 }},
		{"no chatter", func(c *Config) { c.Chatter.PerHour = 0 }},
		{"bad runway", func(c *Config) { c.Phases.LandingRunway = 37 }},
		{"bad source", func(c *Config) { c.ADSB.SourceType = "carrier-pigeon" }},
		{"local without url", func(c *Config) { c.ADSB.SourceType = "local" }},
		{"bad transport", func(c *Config) { c.Transport.Type = "usb" }},
		{"no clips", func(c *Config) { c.Audio.Clips = nil }},
		{"button without device", func(c *Config) { c.Button.Enabled = true }},
		{"negative offset", func(c *Config) { c.Cue.CompletionOffsetSecs = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, minimalTOML))
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestIdleCommandHonorsAlwaysLit(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	assert.Equal(t, `{"ps":1}`, cfg.IdleCommand())

	cfg.Cue.AlwaysLightRunway = true
	assert.Equal(t, `{"ps":1}`, cfg.IdleCommand(), "no runway command configured")

	cfg.Transport.RunwayLitCommand = `{"ps":3}`
	assert.Equal(t, `{"ps":3}`, cfg.IdleCommand())
}
