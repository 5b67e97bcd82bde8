package notify

import (
	"fmt"

	"github.com/gen2brain/beeep"

	"github.com/yegors/fdwatch/internal/config"
	"github.com/yegors/fdwatch/pkg/logger"
)

// Notifier announces cue outcomes to the operator
type Notifier interface {
	CueFired(callsign, clip string)
	CueMissed(callsign string)
}

// New returns a desktop notifier when enabled in cfg, otherwise a no-op one
func New(cfg config.NotifyConfig, log *logger.Logger) Notifier {
	if !cfg.Desktop {
		return Nop{}
	}
	return NewDesktop(cfg.AppName, log)
}

// Nop discards notifications
type Nop struct{}

func (Nop) CueFired(string, string) {}
func (Nop) CueMissed(string)        {}

// Desktop shows a system notification through beeep. Failures are logged, never returned.
type Desktop struct {
	logger *logger.Logger

	// Send delivers one notification, replaceable in tests
	Send func(title, message string) error
}

// NewDesktop creates a desktop notifier shown under appName
func NewDesktop(appName string, log *logger.Logger) *Desktop {
	beeep.AppName = appName //nolint:reassign // This is the only way to set app name in beeep.
	return &Desktop{
		logger: log.Named("notify"),
		Send:   sendDesktop,
	}
}

func (d *Desktop) CueFired(callsign, clip string) {
	d.notify("Flight deck cue", fmt.Sprintf("%s is on approach\nPlaying %s", displayName(callsign), clip))
}

func (d *Desktop) CueMissed(callsign string) {
	d.notify("Flight deck cue missed", fmt.Sprintf("%s passed before the cue could start", displayName(callsign)))
}

func (d *Desktop) notify(title, message string) {
	if err := d.Send(title, message); err != nil {
		d.logger.Warn("Failed to show notification", logger.Error(err))
	}
}

func sendDesktop(title, message string) error {
	return beeep.Notify(title, message, "")
}

func displayName(callsign string) string {
	if callsign == "" {
		return "Aircraft"
	}
	return callsign
}
