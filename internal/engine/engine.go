// Package engine runs the poll, evaluate and fire cycle that times a cue to each approach.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/yegors/fdwatch/internal/adsb"
	"github.com/yegors/fdwatch/internal/audio"
	"github.com/yegors/fdwatch/internal/config"
	"github.com/yegors/fdwatch/internal/cue"
	"github.com/yegors/fdwatch/internal/effects"
	"github.com/yegors/fdwatch/internal/geo"
	"github.com/yegors/fdwatch/internal/notify"
	"github.com/yegors/fdwatch/internal/storage/sqlite"
	"github.com/yegors/fdwatch/internal/track"
	"github.com/yegors/fdwatch/internal/trigger"
	"github.com/yegors/fdwatch/internal/websocket"
	"github.com/yegors/fdwatch/pkg/logger"
)

// Import logger functions
var (
	String = logger.String
	Error  = logger.Error
)

// State is the engine's position in the cue cycle
type State string

const (
	StateIdle       State = "idle"
	StateEvaluating State = "evaluating"
	StateWaiting    State = "waiting"
	StateFiring     State = "firing"
	StateCooldown   State = "cooldown"
)

// CueLog records cue outcomes
type CueLog interface {
	InsertCue(record *sqlite.CueRecord) (int64, error)
}

// Publisher pushes events to display clients. Broadcast must not block.
type Publisher interface {
	Broadcast(message *websocket.Message)
}

// Deps are the collaborators the engine drives. CueLog, Publisher and Notifier are optional.
type Deps struct {
	Source    adsb.Source
	Library   *audio.Library
	Player    audio.Player
	Transport effects.Transport
	Gate      *cue.Gate
	CueLog    CueLog
	Publisher Publisher
	Notifier  notify.Notifier
}

// Engine owns the registry and the pending plan. Everything except Status and Aircraft
// runs on the loop goroutine.
type Engine struct {
	source    adsb.Source
	library   *audio.Library
	player    audio.Player
	transport effects.Transport
	gate      *cue.Gate
	cueLog    CueLog
	publisher Publisher
	notifier  notify.Notifier

	registry  *track.Registry
	policy    trigger.Policy
	scheduler cue.Scheduler

	pollInterval      time.Duration
	staleTimeout      time.Duration
	firedGrace        time.Duration
	monitoringRadius  float64
	startEffectsEarly time.Duration
	keepRunwayLit     time.Duration
	idleCommand       string

	now    func() time.Time
	logger *logger.Logger

	// Loop owned
	pending     *cue.Plan
	pendingClip audio.Clip
	missed      map[string]bool // Aircraft whose window passed, skipped until evicted
	announced   State           // Last state pushed to clients

	mu      sync.RWMutex
	status  Status
	views   []track.View          // Monitoring radius, nearest first
	tracked map[string]track.View // Every registry entry

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds an engine from the loaded configuration
func New(cfg *config.Config, deps Deps, log *logger.Logger) *Engine {
	lat, lon := cfg.Station.Latitude, cfg.Station.Longitude
	today := time.Now().UTC()
	params := track.Params{
		DeckLat:          lat,
		DeckLon:          lon,
		LandingHeading:   geo.RunwayHeading(cfg.Phases.LandingRunway, cfg.Phases.MagneticRunways, lat, lon, today),
		TakeoffHeading:   geo.RunwayHeading(cfg.Phases.TakeoffRunway, cfg.Phases.MagneticRunways, lat, lon, today),
		HeadingDeviation: cfg.Phases.HeadingDeviation,
	}

	e := &Engine{
		source:            deps.Source,
		library:           deps.Library,
		player:            deps.Player,
		transport:         deps.Transport,
		gate:              deps.Gate,
		cueLog:            deps.CueLog,
		publisher:         deps.Publisher,
		notifier:          deps.Notifier,
		registry:          track.NewRegistry(params),
		policy:            trigger.NewPolicy(cfg),
		scheduler:         cue.NewScheduler(cfg),
		pollInterval:      cfg.FetchInterval(),
		staleTimeout:      cfg.StaleTimeout(),
		firedGrace:        cfg.FiredGrace(),
		monitoringRadius:  cfg.Trigger.MonitoringRadius,
		startEffectsEarly: cfg.StartEffectsEarly(),
		keepRunwayLit:     cfg.KeepRunwayLit(),
		idleCommand:       cfg.IdleCommand(),
		now:               time.Now,
		logger:            log.Named("engine"),
		missed:            make(map[string]bool),
		status:            Status{State: StateIdle},
		announced:         StateIdle,
		stopCh:            make(chan struct{}),
	}
	if e.gate == nil {
		e.gate = cue.NewGate(cfg.Chatter.PerHour)
	}
	if e.notifier == nil {
		e.notifier = notify.Nop{}
	}

	e.logger.Info("Engine configured",
		logger.Float64("landing_heading", params.LandingHeading),
		logger.Float64("takeoff_heading", params.TakeoffHeading),
		logger.Duration("chatter_interval", e.gate.Interval()))
	return e
}

// SetClock replaces the time source
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Registry exposes the track registry. It must only be used from the loop goroutine or
// before Start.
func (e *Engine) Registry() *track.Registry {
	return e.registry
}

// Start sends the idle command, runs a first poll and begins the background loop
func (e *Engine) Start(ctx context.Context) error {
	e.logger.Info("Starting engine", logger.Duration("poll_interval", e.pollInterval))

	e.send(e.idleCommand)
	e.poll(ctx, e.now())

	e.wg.Add(1)
	go e.loop(ctx)

	return nil
}

// Stop stops the loop and waits for it to return. A running cue is abandoned at its next
// wait.
func (e *Engine) Stop() {
	e.logger.Info("Stopping engine")
	close(e.stopCh)
	e.wg.Wait()
	e.logger.Info("Engine stopped")
}

// loop is the single goroutine driving poll, evaluate and fire
func (e *Engine) loop(ctx context.Context) {
	defer e.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-e.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		var due <-chan time.Time
		var timer *time.Timer
		if e.pending != nil {
			wait := e.pending.StartAt.Sub(e.now())
			if wait < 0 {
				wait = 0
			}
			timer = time.NewTimer(wait)
			due = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-ticker.C:
			e.poll(ctx, e.now())
		case <-due:
			e.fireDue(ctx, e.now())
		}

		if timer != nil {
			timer.Stop()
		}
	}
}

func (e *Engine) send(command string) {
	if command == "" || e.transport == nil {
		return
	}
	if err := e.transport.Send(command); err != nil {
		e.logger.Error("Failed to send effect command", String("command", command), Error(err))
	}
}

// sleep waits d or until ctx is done. It reports whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
