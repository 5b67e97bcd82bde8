// Package main runs the flight deck watcher
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/yegors/fdwatch/internal/adsb"
	"github.com/yegors/fdwatch/internal/api"
	"github.com/yegors/fdwatch/internal/audio"
	"github.com/yegors/fdwatch/internal/config"
	"github.com/yegors/fdwatch/internal/cue"
	"github.com/yegors/fdwatch/internal/effects"
	"github.com/yegors/fdwatch/internal/engine"
	"github.com/yegors/fdwatch/internal/geo"
	"github.com/yegors/fdwatch/internal/notify"
	"github.com/yegors/fdwatch/internal/simulation"
	"github.com/yegors/fdwatch/internal/storage/sqlite"
	"github.com/yegors/fdwatch/internal/websocket"
	"github.com/yegors/fdwatch/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

type options struct {
	configPath string
	logLevel   string
	dryRun     bool
	simulate   bool
}

func main() {
	var opts options
	setupCommandLineFlags(&opts)
	pflag.Parse()

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	applyOverrides(cfg, opts)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting fdwatch",
		logger.String("version", Version),
		logger.String("source", cfg.ADSB.SourceType),
		logger.String("transport", cfg.Transport.Type),
		logger.String("player", cfg.Audio.Player),
	)

	if err := run(cfg, log); err != nil {
		log.Error("fdwatch stopped with error", logger.Error(err))
		log.Sync()
		os.Exit(1)
	}
	log.Info("fdwatch fully stopped")
}

func setupCommandLineFlags(opts *options) {
	pflag.StringVarP(&opts.configPath, "config", "c", "",
		"path to configuration file (optional - will search in configs/ and root directory)")
	pflag.StringVar(&opts.logLevel, "log-level", "", "override the configured log level")
	pflag.BoolVar(&opts.dryRun, "dry-run", false, "log effect commands and play clips silently")
	pflag.BoolVar(&opts.simulate, "simulate", false, "fly scripted approaches instead of reading the ADS-B source")
}

func applyOverrides(cfg *config.Config, opts options) {
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.dryRun {
		cfg.Transport.Type = effects.TransportLog
		cfg.Audio.Player = "silent"
	}
	if opts.simulate {
		cfg.ADSB.SourceType = adsb.SourceSimulation
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gate := cue.NewGate(cfg.Chatter.PerHour)

	// Cue log, also the memory of the chatter gate across restarts
	var cueLog engine.CueLog
	var cueHistory api.CueHistory
	if cfg.Storage.SQLitePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.SQLitePath), 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
		storage, err := sqlite.NewCueStorage(cfg.Storage.SQLitePath, log)
		if err != nil {
			return err
		}
		defer storage.Close()

		lastFired, ok, err := storage.LatestFiredAt()
		if err != nil {
			return err
		}
		if ok {
			gate.Restore(lastFired)
			log.Info("Restored chatter gate",
				logger.Time("last_fired", lastFired),
				logger.Duration("wait", gate.TimeUntilAllowed(time.Now())))
		}
		if fired, err := storage.CountCues(sqlite.OutcomeFired, time.Now().Add(-time.Hour)); err == nil {
			log.Info("Opened cue log",
				logger.String("path", cfg.Storage.SQLitePath),
				logger.Int("fired_last_hour", fired))
		}
		cueLog, cueHistory = storage, storage
	}

	var player audio.Player
	switch cfg.Audio.Player {
	case "silent":
		player = audio.NewSilentPlayer()
	default:
		speakerPlayer := audio.NewSpeakerPlayer(log)
		defer speakerPlayer.Close()
		player = speakerPlayer
	}

	clips, err := audio.LoadClips(cfg.Audio, player, log)
	if err != nil {
		return err
	}
	library, err := audio.NewLibrary(clips, cfg.Audio.Shuffle, nil)
	if err != nil {
		return err
	}

	transport := effects.New(cfg.Transport, log)
	defer transport.Close()

	wsServer := websocket.NewServer(log)
	go wsServer.Run(ctx)

	source, sim := newSource(cfg, log)
	eng := engine.New(cfg, engine.Deps{
		Source:    source,
		Library:   library,
		Player:    player,
		Transport: transport,
		Gate:      gate,
		CueLog:    cueLog,
		Publisher: wsServer,
		Notifier:  notify.New(cfg.Notify, log),
	}, log)

	var server *http.Server
	if cfg.Server.Enabled {
		router := api.NewRouter(eng, cueHistory, cfg, wsServer, log)
		if sim != nil {
			router.SetSimulation(sim)
		}
		server = &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      router.Routes(),
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		}
		go func() {
			log.Info("Starting HTTP server", logger.String("addr", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("HTTP server error", logger.String("addr", server.Addr), logger.Error(err))
			}
		}()
	}

	if cfg.Button.Enabled {
		button := effects.NewButtonListener(cfg.Button, transport, log)
		go button.Run(ctx)
	}

	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down...")
	eng.Stop()
	cancel()

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", logger.Error(err))
		}
	}

	if err := transport.Send(cfg.Transport.ShutdownCommand); err != nil {
		log.Warn("Failed to send shutdown command", logger.Error(err))
	}
	return nil
}

// newSource picks the aircraft feed for the configured source type. The simulation is also
// returned on its own so the API can steer it.
func newSource(cfg *config.Config, log *logger.Logger) (adsb.Source, *simulation.Service) {
	lat, lon := cfg.Station.Latitude, cfg.Station.Longitude
	if cfg.ADSB.SourceType == adsb.SourceSimulation {
		heading := geo.RunwayHeading(cfg.Phases.LandingRunway, cfg.Phases.MagneticRunways, lat, lon, time.Now().UTC())
		sim := simulation.NewService(lat, lon, heading, simulation.DefaultApproach, log)
		return sim, sim
	}
	return adsb.NewClient(
		cfg.ADSB.SourceType,
		cfg.ADSB.LocalSourceURL,
		cfg.ADSB.ExternalSourceURL,
		cfg.ADSB.APIHost,
		cfg.ADSB.APIKey,
		lat,
		lon,
		cfg.Trigger.MonitoringRadius,
		time.Duration(cfg.ADSB.TimeoutSecs)*time.Second,
		log,
	), nil
}
