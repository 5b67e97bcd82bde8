package audio

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/yegors/fdwatch/pkg/logger"
)

// Import logger functions
var (
	String = logger.String
	Error  = logger.Error
)

const (
	outputSampleRate = beep.SampleRate(44100)
	resampleQuality  = 4
)

// Player plays clips. Play blocks until playback finishes or ctx is cancelled.
type Player interface {
	Duration(path string) (time.Duration, error)
	Play(ctx context.Context, path string) error
	Busy() bool
}

// Duration decodes an mp3 file just far enough to measure it
func Duration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open clip: %w", err)
	}
	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return 0, fmt.Errorf("failed to decode clip: %w", err)
	}
	defer streamer.Close()

	return format.SampleRate.D(streamer.Len()), nil
}

// SpeakerPlayer plays through the default audio device
type SpeakerPlayer struct {
	logger *logger.Logger

	mu          sync.Mutex
	busy        bool
	initialized bool
}

// NewSpeakerPlayer creates a player. The device is opened on first playback.
func NewSpeakerPlayer(log *logger.Logger) *SpeakerPlayer {
	return &SpeakerPlayer{
		logger: log.Named("speaker"),
	}
}

// Duration implements Player
func (p *SpeakerPlayer) Duration(path string) (time.Duration, error) {
	return Duration(path)
}

// Busy reports whether a clip is playing
func (p *SpeakerPlayer) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busy
}

func (p *SpeakerPlayer) begin() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.busy {
		return fmt.Errorf("player busy")
	}
	if !p.initialized {
		if err := speaker.Init(outputSampleRate, outputSampleRate.N(100*time.Millisecond)); err != nil {
			return fmt.Errorf("failed to open audio device: %w", err)
		}
		p.initialized = true
	}
	p.busy = true
	return nil
}

func (p *SpeakerPlayer) end() {
	p.mu.Lock()
	p.busy = false
	p.mu.Unlock()
}

// Play implements Player
func (p *SpeakerPlayer) Play(ctx context.Context, path string) error {
	if err := p.begin(); err != nil {
		return err
	}
	defer p.end()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open clip: %w", err)
	}
	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to decode clip: %w", err)
	}
	defer streamer.Close()

	var stream beep.Streamer = streamer
	if format.SampleRate != outputSampleRate {
		stream = beep.Resample(resampleQuality, format.SampleRate, outputSampleRate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(stream, beep.Callback(func() {
		close(done)
	})))

	p.logger.Debug("Playing clip",
		String("path", path),
		logger.Duration("duration", format.SampleRate.D(streamer.Len())),
	)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

// Close releases the audio device
func (p *SpeakerPlayer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized {
		speaker.Close()
		p.initialized = false
	}
}

// SilentPlayer measures clips like the speaker player but only waits out their duration.
// It backs dry runs and hosts without an audio device.
type SilentPlayer struct {
	// Measure overrides how durations are read, mainly for tests
	Measure func(path string) (time.Duration, error)

	mu   sync.Mutex
	busy bool
}

// NewSilentPlayer creates a silent player that decodes clips for their duration
func NewSilentPlayer() *SilentPlayer {
	return &SilentPlayer{Measure: Duration}
}

// Duration implements Player
func (p *SilentPlayer) Duration(path string) (time.Duration, error) {
	return p.Measure(path)
}

// Busy implements Player
func (p *SilentPlayer) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busy
}

// Play implements Player
func (p *SilentPlayer) Play(ctx context.Context, path string) error {
	d, err := p.Measure(path)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.busy = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.busy = false
		p.mu.Unlock()
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
