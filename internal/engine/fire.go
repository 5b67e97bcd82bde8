package engine

import (
	"context"
	"sync"
	"time"

	"github.com/yegors/fdwatch/internal/audio"
	"github.com/yegors/fdwatch/internal/storage/sqlite"
	"github.com/yegors/fdwatch/internal/websocket"
	"github.com/yegors/fdwatch/pkg/logger"
)

// fireDue fires the pending plan once its start is reached, or records it missed when the
// loop woke up too late
func (e *Engine) fireDue(ctx context.Context, now time.Time) {
	if e.pending == nil {
		return
	}
	plan := *e.pending

	s, ok := e.registry.Get(plan.ID)
	if !ok {
		e.dropPlan("aircraft lost")
		return
	}
	if e.scheduler.Missed(plan, now) {
		e.recordMissed(s, plan, now)
		return
	}
	if !e.scheduler.Due(plan, now) {
		return
	}

	// The gate and the trigger flag change together, or not at all
	if !e.gate.TryFire(now) {
		e.logger.Info("Chatter gate closed at fire time", String("id", plan.ID))
		e.dropPlan("chatter gate closed")
		return
	}
	s.MarkFired(now)

	// The plan was timed against the peeked clip; consume it now that it plays
	clip := e.pendingClip
	e.library.Next()
	e.pending = nil
	e.pendingClip = audio.Clip{}

	e.logger.Info("Firing cue",
		String("id", plan.ID),
		String("callsign", plan.Callsign),
		String("clip", clip.Name),
		logger.Duration("late", now.Sub(plan.StartAt)))

	e.setLastFired(now)
	e.setState(StateFiring)
	e.logCue(plan, sqlite.OutcomeFired, now)
	e.publish(websocket.MessageTypeCueFired, map[string]any{"plan": plan, "fired_at": now})
	// Notifications must not hold up the effect-start command
	go e.notifier.CueFired(plan.Callsign, clip.Name)

	e.runCue(ctx, clip)
}

// runCue sends the effect-start command, plays the clip with its effect script, holds the
// runway lit and returns the effects to idle
func (e *Engine) runCue(ctx context.Context, clip audio.Clip) {
	defer e.setState(StateIdle)

	e.send(clip.StartCommand)
	if !sleep(ctx, e.startEffectsEarly) {
		return
	}

	playCtx, stopEffects := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.runEffects(playCtx, clip.Effects)
	}()

	if err := e.player.Play(ctx, clip.Path); err != nil {
		e.logger.Error("Failed to play clip", String("clip", clip.Name), Error(err))
	}
	stopEffects()
	wg.Wait()

	if ctx.Err() != nil {
		return
	}
	e.send(clip.EndCommand)

	e.setState(StateCooldown)
	if !sleep(ctx, e.keepRunwayLit) {
		return
	}
	e.send(e.idleCommand)
}

// runEffects steps through a clip's script until it ends or playback stops. A step with no
// duration holds until playback stops.
func (e *Engine) runEffects(ctx context.Context, steps []audio.Effect) {
	for _, step := range steps {
		if ctx.Err() != nil {
			return
		}
		e.send(step.Command)
		if step.Duration <= 0 {
			<-ctx.Done()
			return
		}
		if !sleep(ctx, step.Duration) {
			return
		}
	}
}
