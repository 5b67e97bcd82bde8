package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{Level: "loud", Format: "console"})
	assert.Error(t, err)

	_, err = New(Config{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fdwatch.log")

	log, err := New(Config{Level: "debug", Format: "json", File: path})
	require.NoError(t, err)

	log.Named("test").Info("hello", String("hex", "abc123"), Int("count", 2))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"hex":"abc123"`)
	assert.Contains(t, string(data), `"logger":"test"`)
}

func TestNopDoesNotPanic(t *testing.T) {
	log := NewNop().Named("x").With(Bool("ok", true))
	log.Debug("d")
	log.Warn("w", Float64("f", 1.5))
}
