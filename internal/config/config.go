package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Station    StationConfig    `toml:"station"`    // Flight deck location
	ADSB       ADSBConfig       `toml:"adsb"`       // Aircraft data source settings
	Trigger    TriggerConfig    `toml:"trigger"`    // Radius, speed and altitude bands
	Phases     PhasesConfig     `toml:"phases"`     // Runway headings for phase classification
	Chatter    ChatterConfig    `toml:"chatter"`    // Rate limiting of cues
	Cue        CueConfig        `toml:"cue"`        // Cue timing and lifecycle
	Categories CategoriesConfig `toml:"categories"` // Emitter category filters
	Transport  TransportConfig  `toml:"transport"`  // Physical effect controller
	Button     ButtonConfig     `toml:"button"`     // Remote button receiver
	Audio      AudioConfig      `toml:"audio"`      // Clip library and playback
	Server     ServerConfig     `toml:"server"`     // Status API and websocket
	Storage    StorageConfig    `toml:"storage"`    // Cue log persistence
	Notify     NotifyConfig     `toml:"notify"`     // Desktop notifications
	Logging    LoggingConfig    `toml:"logging"`    // Application logging settings
}

// StationConfig contains the location everything is measured against
type StationConfig struct {
	Latitude  float64 `toml:"latitude"`  // Deck latitude in decimal degrees
	Longitude float64 `toml:"longitude"` // Deck longitude in decimal degrees
}

// ADSBConfig contains aircraft data source configuration
type ADSBConfig struct {
	// Allowed values:
	// - "local": a local receiver serving tar1090/readsb aircraft.json
	// - "external-adsbexchangelike": center point + radius API (lat, lon, dist placeholders)
	// - "simulation": scripted aircraft flying the configured approach
	SourceType        string `toml:"source_type"`
	LocalSourceURL    string `toml:"local_source_url"`    // e.g. http://localhost/tar1090/data/aircraft.json
	ExternalSourceURL string `toml:"external_source_url"` // URL template with %f lat, %f lon, %f radius
	APIHost           string `toml:"api_host"`            // API host header value
	APIKey            string `toml:"api_key"`             // API key for authentication with external service
	FetchIntervalSecs int    `toml:"fetch_interval_seconds"`
	TimeoutSecs       int    `toml:"timeout_seconds"` // HTTP timeout per fetch
}

// TriggerConfig contains the bands an aircraft must be inside to trigger a cue
type TriggerConfig struct {
	MonitoringRadius float64 `toml:"monitoring_radius_miles"` // Aircraft beyond this are not shown
	TriggerRadius    float64 `toml:"trigger_radius_miles"`    // Aircraft must be within this to trigger
	MinAltitudeFeet  float64 `toml:"min_altitude_feet"`
	MaxAltitudeFeet  float64 `toml:"max_altitude_feet"`
	MinSpeedKnots    float64 `toml:"min_speed_knots"`
	MaxSpeedKnots    float64 `toml:"max_speed_knots"`
	StaleTimeoutSecs int     `toml:"stale_timeout_seconds"` // Aircraft not seen for this long are dropped
}

// PhasesConfig contains runway settings used for landing/takeoff classification
type PhasesConfig struct {
	LandingRunway    int     `toml:"landing_runway"`    // Runway number, heading is runway*10
	TakeoffRunway    int     `toml:"takeoff_runway"`    // Runway number, heading is runway*10
	HeadingDeviation float64 `toml:"heading_deviation"` // Allowed deviation in degrees
	MagneticRunways  bool    `toml:"magnetic_runways"`  // Convert runway headings to true using WMM declination
}

// ChatterConfig bounds how often cues may fire across all aircraft
type ChatterConfig struct {
	PerHour float64 `toml:"chatter_per_hour"`
}

// CueConfig contains cue timing and lifecycle settings
type CueConfig struct {
	CompletionOffsetSecs    float64 `toml:"audio_completion_offset"`      // Playback must finish this many seconds before closest approach
	StartEffectsEarlySecs   float64 `toml:"start_effects_early"`          // Effect-start command leads playback by this much
	KeepRunwayLitSecs       float64 `toml:"keep_runway_lit"`              // Hold after the cue before returning to idle
	AlwaysLightRunway       bool    `toml:"always_light_runway"`          // Idle state keeps the runway lit
	RescheduleThresholdSecs float64 `toml:"reschedule_threshold_seconds"` // Start shift that replaces a pending plan
	MissedWindowSecs        float64 `toml:"missed_window_seconds"`        // Lateness after which a start is abandoned
	FiredGraceSecs          int     `toml:"fired_grace_seconds"`          // Fired aircraft remain visible this long
}

// CategoriesConfig contains ADS-B emitter category filters
type CategoriesConfig struct {
	IgnoreHelicopters             bool `toml:"ignore_helicopters"`               // A7
	IgnoreLightAircraft           bool `toml:"ignore_light_aircraft"`            // A1
	IgnoreSmallAircraft           bool `toml:"ignore_small_aircraft"`            // A2
	IgnoreLargeAircraft           bool `toml:"ignore_large_aircraft"`            // A3
	IgnoreHeavyAircraft           bool `toml:"ignore_heavy_aircraft"`            // A5
	IgnoreHighPerformanceAircraft bool `toml:"ignore_high_performance_aircraft"` // A6
}

// TransportConfig contains effect controller settings
type TransportConfig struct {
	Type             string `toml:"type"`      // "serial" or "log"
	Port             string `toml:"port"`      // Serial device, auto-discovered when empty
	BaudRate         int    `toml:"baud_rate"` // Defaults to 115200
	IdleCommand      string `toml:"idle_command"`
	RunwayLitCommand string `toml:"runway_lit_command"`
	ShutdownCommand  string `toml:"shutdown_command"`
}

// ButtonConfig contains remote button receiver settings
type ButtonConfig struct {
	Enabled bool              `toml:"enabled"`
	Device  string            `toml:"device"`    // Line oriented source of decimal codes (serial port or FIFO)
	Serial  bool              `toml:"serial"`    // Open device as a serial port instead of a plain file
	Baud    int               `toml:"baud_rate"` // Used when Serial is true
	Codes   map[string]string `toml:"codes"`     // Decimal code -> transport command
}

// AudioConfig contains the clip library
type AudioConfig struct {
	Player  string       `toml:"player"`    // "speaker" or "silent"
	Dir     string       `toml:"directory"` // Directory clips are resolved against
	Shuffle bool         `toml:"shuffle"`   // Shuffle the play order after every full pass
	Clips   []ClipConfig `toml:"clips"`
}

// ClipConfig describes one audio clip and the effect script played alongside it
type ClipConfig struct {
	File         string         `toml:"file"`
	StartCommand string         `toml:"start_command"` // Sent before playback
	EndCommand   string         `toml:"end_command"`   // Sent when playback ends
	Effects      []EffectConfig `toml:"effects"`       // Run in order during playback
}

// EffectConfig is one step of a clip's effect script
type EffectConfig struct {
	Command      string  `toml:"command"`
	DurationSecs float64 `toml:"duration_seconds"` // 0 holds until playback ends
}

// ServerConfig contains status API settings
type ServerConfig struct {
	Enabled          bool   `toml:"enabled"`
	Host             string `toml:"host"`
	Port             int    `toml:"port"`
	ReadTimeoutSecs  int    `toml:"read_timeout_seconds"`
	WriteTimeoutSecs int    `toml:"write_timeout_seconds"`
	StaticDir        string `toml:"static_dir"` // Optional display page served at /, empty disables
}

// StorageConfig contains cue log persistence settings
type StorageConfig struct {
	SQLitePath string `toml:"sqlite_path"` // Empty disables the cue log
}

// NotifyConfig contains desktop notification settings
type NotifyConfig struct {
	Desktop bool   `toml:"desktop"`
	AppName string `toml:"app_name"`
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
	File   string `toml:"file"`   // Optional rotating log file
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	var config Config

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.ApplyDefaults()
	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	searchPaths := []string{
		preferredPath,
		"configs/config.toml",
		"config.toml",
	}

	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// ApplyDefaults fills optional fields left at their zero value
func (c *Config) ApplyDefaults() {
	if c.ADSB.SourceType == "" {
		c.ADSB.SourceType = "local"
	}
	if c.ADSB.TimeoutSecs == 0 {
		c.ADSB.TimeoutSecs = 5
	}
	if c.Trigger.StaleTimeoutSecs == 0 {
		c.Trigger.StaleTimeoutSecs = 60
	}
	if c.Trigger.MaxAltitudeFeet == 0 {
		c.Trigger.MaxAltitudeFeet = 10000
	}
	if c.Trigger.MaxSpeedKnots == 0 {
		c.Trigger.MaxSpeedKnots = 300
	}
	if c.Phases.HeadingDeviation == 0 {
		c.Phases.HeadingDeviation = 15
	}
	if c.Cue.RescheduleThresholdSecs == 0 {
		c.Cue.RescheduleThresholdSecs = 3
	}
	if c.Cue.MissedWindowSecs == 0 {
		c.Cue.MissedWindowSecs = 2
	}
	if c.Cue.FiredGraceSecs == 0 {
		c.Cue.FiredGraceSecs = 300
	}
	if c.Transport.Type == "" {
		c.Transport.Type = "serial"
	}
	if c.Transport.BaudRate == 0 {
		c.Transport.BaudRate = 115200
	}
	if c.Transport.IdleCommand == "" {
		c.Transport.IdleCommand = `{"ps":1}`
	}
	if c.Transport.ShutdownCommand == "" {
		c.Transport.ShutdownCommand = `{"on":false}`
	}
	if c.Button.Baud == 0 {
		c.Button.Baud = 9600
	}
	if c.Audio.Player == "" {
		c.Audio.Player = "speaker"
	}
	if c.Audio.Dir == "" {
		c.Audio.Dir = "./audio/chatter"
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeoutSecs == 0 {
		c.Server.ReadTimeoutSecs = 10
	}
	if c.Notify.AppName == "" {
		c.Notify.AppName = "fdwatch"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Station.Latitude == 0 && c.Station.Longitude == 0 {
		return fmt.Errorf("station latitude and longitude are required")
	}
	if math.Abs(c.Station.Latitude) > 90 || math.Abs(c.Station.Longitude) > 180 {
		return fmt.Errorf("station coordinates out of range: %f, %f", c.Station.Latitude, c.Station.Longitude)
	}

	switch c.ADSB.SourceType {
	case "local":
		if c.ADSB.LocalSourceURL == "" {
			return fmt.Errorf("local_source_url is required when source_type is local")
		}
	case "external-adsbexchangelike":
		if c.ADSB.ExternalSourceURL == "" {
			return fmt.Errorf("external_source_url is required when source_type is external-adsbexchangelike")
		}
		if c.ADSB.APIKey == "" {
			return fmt.Errorf("api_key is required when source_type is external-adsbexchangelike")
		}
	case "simulation":
	default:
		return fmt.Errorf("invalid ADSB source type: %s (must be 'local', 'external-adsbexchangelike', or 'simulation')", c.ADSB.SourceType)
	}
	if c.ADSB.FetchIntervalSecs <= 0 {
		return fmt.Errorf("invalid fetch interval: %d", c.ADSB.FetchIntervalSecs)
	}

	if c.Trigger.TriggerRadius <= 0 {
		return fmt.Errorf("trigger_radius_miles must be positive")
	}
	if c.Trigger.MonitoringRadius < c.Trigger.TriggerRadius {
		return fmt.Errorf("monitoring_radius_miles (%.1f) must be at least trigger_radius_miles (%.1f)",
			c.Trigger.MonitoringRadius, c.Trigger.TriggerRadius)
	}
	if c.Trigger.MinAltitudeFeet > c.Trigger.MaxAltitudeFeet {
		return fmt.Errorf("min_altitude_feet must not exceed max_altitude_feet")
	}
	if c.Trigger.MinSpeedKnots > c.Trigger.MaxSpeedKnots {
		return fmt.Errorf("min_speed_knots must not exceed max_speed_knots")
	}
	if c.Trigger.StaleTimeoutSecs < 0 {
		return fmt.Errorf("invalid stale timeout: %d", c.Trigger.StaleTimeoutSecs)
	}

	if c.Phases.LandingRunway < 1 || c.Phases.LandingRunway > 36 {
		return fmt.Errorf("invalid landing_runway: %d (must be 1-36)", c.Phases.LandingRunway)
	}
	if c.Phases.TakeoffRunway < 1 || c.Phases.TakeoffRunway > 36 {
		return fmt.Errorf("invalid takeoff_runway: %d (must be 1-36)", c.Phases.TakeoffRunway)
	}
	if c.Phases.HeadingDeviation < 0 || c.Phases.HeadingDeviation > 180 {
		return fmt.Errorf("invalid heading_deviation: %f", c.Phases.HeadingDeviation)
	}

	if c.Chatter.PerHour <= 0 {
		return fmt.Errorf("chatter_per_hour must be positive")
	}

	if c.Cue.CompletionOffsetSecs < 0 || c.Cue.StartEffectsEarlySecs < 0 || c.Cue.KeepRunwayLitSecs < 0 {
		return fmt.Errorf("cue timings must not be negative")
	}

	switch c.Transport.Type {
	case "serial", "log":
	default:
		return fmt.Errorf("invalid transport type: %s (must be 'serial' or 'log')", c.Transport.Type)
	}

	if c.Button.Enabled && c.Button.Device == "" {
		return fmt.Errorf("button device is required when the button listener is enabled")
	}

	switch c.Audio.Player {
	case "speaker", "silent":
	default:
		return fmt.Errorf("invalid audio player: %s (must be 'speaker' or 'silent')", c.Audio.Player)
	}
	if len(c.Audio.Clips) == 0 {
		return fmt.Errorf("at least one audio clip is required")
	}
	for i, clip := range c.Audio.Clips {
		if clip.File == "" {
			return fmt.Errorf("audio clip %d has no file", i)
		}
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// FetchInterval returns the polling interval
func (c *Config) FetchInterval() time.Duration {
	return time.Duration(c.ADSB.FetchIntervalSecs) * time.Second
}

// StaleTimeout returns how long an unseen aircraft stays a candidate
func (c *Config) StaleTimeout() time.Duration {
	return time.Duration(c.Trigger.StaleTimeoutSecs) * time.Second
}

// FiredGrace returns how long a fired aircraft is retained after firing
func (c *Config) FiredGrace() time.Duration {
	return time.Duration(c.Cue.FiredGraceSecs) * time.Second
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// CompletionOffset returns how long before closest approach playback must finish
func (c *Config) CompletionOffset() time.Duration { return seconds(c.Cue.CompletionOffsetSecs) }

// StartEffectsEarly returns the lead between effect start and playback
func (c *Config) StartEffectsEarly() time.Duration { return seconds(c.Cue.StartEffectsEarlySecs) }

// KeepRunwayLit returns the post-cue hold
func (c *Config) KeepRunwayLit() time.Duration { return seconds(c.Cue.KeepRunwayLitSecs) }

// RescheduleThreshold returns the start shift that replaces a pending plan
func (c *Config) RescheduleThreshold() time.Duration { return seconds(c.Cue.RescheduleThresholdSecs) }

// MissedWindow returns how late a start may be before it is abandoned
func (c *Config) MissedWindow() time.Duration { return seconds(c.Cue.MissedWindowSecs) }

// IdleCommand returns the command sent whenever no cue is running
func (c *Config) IdleCommand() string {
	if c.Cue.AlwaysLightRunway && c.Transport.RunwayLitCommand != "" {
		return c.Transport.RunwayLitCommand
	}
	return c.Transport.IdleCommand
}
