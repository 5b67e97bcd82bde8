package audio

import (
	"errors"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"time"

	"github.com/yegors/fdwatch/internal/config"
	"github.com/yegors/fdwatch/pkg/logger"
)

// ErrNoClips is returned when no configured clip could be loaded
var ErrNoClips = errors.New("no playable clips")

// Effect is one step of a clip's light script
type Effect struct {
	Command  string
	Duration time.Duration // 0 holds until playback ends
}

// Clip is a playable chatter recording with its effect script
type Clip struct {
	Name         string
	Path         string
	Duration     time.Duration
	StartCommand string
	EndCommand   string
	Effects      []Effect
}

// LoadClips resolves the configured clips against the audio directory and measures each
// one. Clips that cannot be decoded are logged and skipped.
func LoadClips(cfg config.AudioConfig, player Player, log *logger.Logger) ([]Clip, error) {
	clips := make([]Clip, 0, len(cfg.Clips))
	for _, cc := range cfg.Clips {
		path := cc.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.Dir, path)
		}

		d, err := player.Duration(path)
		if err != nil {
			log.Warn("Skipping clip", String("path", path), Error(err))
			continue
		}

		clip := Clip{
			Name:         cc.File,
			Path:         path,
			Duration:     d,
			StartCommand: cc.StartCommand,
			EndCommand:   cc.EndCommand,
		}
		for _, e := range cc.Effects {
			clip.Effects = append(clip.Effects, Effect{
				Command:  e.Command,
				Duration: time.Duration(e.DurationSecs * float64(time.Second)),
			})
		}
		clips = append(clips, clip)
		log.Debug("Loaded clip", String("name", clip.Name), logger.Duration("duration", d))
	}

	if len(clips) == 0 {
		return nil, ErrNoClips
	}
	return clips, nil
}

// Library hands out clips round-robin. With shuffle on, the order is reshuffled after
// every full pass.
type Library struct {
	mu      sync.Mutex
	clips   []Clip
	order   []int
	pos     int
	shuffle bool
	rng     *rand.Rand
}

// NewLibrary creates a library over clips. rng may be nil.
func NewLibrary(clips []Clip, shuffle bool, rng *rand.Rand) (*Library, error) {
	if len(clips) == 0 {
		return nil, ErrNoClips
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}

	l := &Library{
		clips:   clips,
		order:   make([]int, len(clips)),
		shuffle: shuffle,
		rng:     rng,
	}
	for i := range l.order {
		l.order[i] = i
	}
	l.reshuffle()
	return l, nil
}

func (l *Library) reshuffle() {
	if !l.shuffle {
		return
	}
	l.rng.Shuffle(len(l.order), func(i, j int) {
		l.order[i], l.order[j] = l.order[j], l.order[i]
	})
}

// Len returns the number of clips
func (l *Library) Len() int {
	return len(l.clips)
}

// Peek returns the clip that will play next without consuming it
func (l *Library) Peek() Clip {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.clips[l.order[l.pos]]
}

// Next consumes and returns the next clip
func (l *Library) Next() Clip {
	l.mu.Lock()
	defer l.mu.Unlock()
	clip := l.clips[l.order[l.pos]]
	l.pos++
	if l.pos == len(l.order) {
		l.pos = 0
		l.reshuffle()
	}
	return clip
}
