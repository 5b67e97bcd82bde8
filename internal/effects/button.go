package effects

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/yegors/fdwatch/internal/config"
	"github.com/yegors/fdwatch/pkg/logger"
)

// ButtonListener reads decimal codes, one per line, from a radio receiver bridge and sends
// the mapped command to the transport. It never touches tracking state.
type ButtonListener struct {
	codes          map[string]string
	transport      Transport
	reconnectDelay time.Duration
	logger         *logger.Logger

	// Open returns the code source, replaceable in tests
	Open func() (io.ReadCloser, error)
}

// NewButtonListener creates a listener for cfg
func NewButtonListener(cfg config.ButtonConfig, transport Transport, log *logger.Logger) *ButtonListener {
	b := &ButtonListener{
		codes:          cfg.Codes,
		transport:      transport,
		reconnectDelay: 5 * time.Second,
		logger:         log.Named("button"),
	}
	device, baud, isSerial := cfg.Device, cfg.Baud, cfg.Serial
	b.Open = func() (io.ReadCloser, error) {
		if isSerial {
			return serial.Open(device, &serial.Mode{BaudRate: baud})
		}
		return os.Open(device)
	}
	return b
}

// SetReconnectDelay changes the wait before reopening a failed source
func (b *ButtonListener) SetReconnectDelay(d time.Duration) {
	b.reconnectDelay = d
}

// Run listens until ctx is cancelled, reopening the source after errors
func (b *ButtonListener) Run(ctx context.Context) {
	b.logger.Info("Starting button listener", logger.Int("codes", len(b.codes)))
	for {
		if err := b.listen(ctx); err != nil && ctx.Err() == nil {
			b.logger.Warn("Button source failed", logger.Error(err))
		}

		select {
		case <-ctx.Done():
			b.logger.Info("Button listener stopped")
			return
		case <-time.After(b.reconnectDelay):
		}
	}
}

func (b *ButtonListener) listen(ctx context.Context) error {
	src, err := b.Open()
	if err != nil {
		return fmt.Errorf("failed to open button source: %w", err)
	}

	// Closing the source is the only way to unblock a pending read
	stop := context.AfterFunc(ctx, func() { src.Close() })
	defer func() {
		if stop() {
			src.Close()
		}
	}()

	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		b.Handle(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read button source: %w", err)
	}
	return io.EOF
}

// Handle maps one received line to its command. Unknown codes are ignored.
func (b *ButtonListener) Handle(line string) bool {
	code := strings.TrimSpace(line)
	if code == "" {
		return false
	}

	command, ok := b.codes[code]
	if !ok {
		b.logger.Debug("Ignoring unknown code", logger.String("code", code))
		return false
	}

	b.logger.Info("Button pressed", logger.String("code", code))
	if err := b.transport.Send(command); err != nil {
		b.logger.Error("Failed to send button command", logger.Error(err))
	}
	return true
}
