package notify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yegors/fdwatch/internal/config"
	"github.com/yegors/fdwatch/pkg/logger"
)

func TestNewDisabledIsNop(t *testing.T) {
	_, ok := New(config.NotifyConfig{}, logger.NewNop()).(Nop)
	assert.True(t, ok)
}

func TestDesktopMessages(t *testing.T) {
	d := NewDesktop("fdwatch-test", logger.NewNop())
	var titles, bodies []string
	d.Send = func(title, message string) error {
		titles = append(titles, title)
		bodies = append(bodies, message)
		return nil
	}

	d.CueFired("SWA1234", "topgun.mp3")
	d.CueMissed("")

	assert.Equal(t, []string{"Flight deck cue", "Flight deck cue missed"}, titles)
	assert.Contains(t, bodies[0], "SWA1234")
	assert.Contains(t, bodies[0], "topgun.mp3")
	assert.Contains(t, bodies[1], "Aircraft passed")
}

func TestDesktopSwallowsErrors(t *testing.T) {
	d := NewDesktop("fdwatch-test", logger.NewNop())
	d.Send = func(string, string) error { return errors.New("no dbus") }
	assert.NotPanics(t, func() { d.CueFired("UAL1", "a.mp3") })
}
