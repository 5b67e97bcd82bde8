// Package effects drives the external light controller and listens for remote buttons.
package effects

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"sync"

	"go.bug.st/serial"

	"github.com/yegors/fdwatch/internal/config"
	"github.com/yegors/fdwatch/pkg/logger"
)

// Transport types
const (
	TransportSerial = "serial"
	TransportLog    = "log"
)

// DiscoveryGlobs are searched, in order, when no serial port is configured
var DiscoveryGlobs = []string{"/dev/ttyUSB*", "/dev/ttyACM*"}

// Transport delivers opaque commands to the light controller. Implementations must be
// safe for concurrent use.
type Transport interface {
	Send(command string) error
	Close() error
}

// New creates the transport selected by cfg
func New(cfg config.TransportConfig, log *logger.Logger) Transport {
	if cfg.Type == TransportLog {
		return NewLogTransport(log)
	}
	return NewSerialTransport(cfg.Port, cfg.BaudRate, log)
}

// OpenFunc opens a named serial device
type OpenFunc func(name string, baud int) (io.WriteCloser, error)

// SerialTransport writes commands to a controller on a serial port. The port is opened
// on first use and dropped after a failed write, so the next Send finds it again.
type SerialTransport struct {
	mu       sync.Mutex
	portName string
	baud     int
	port     io.WriteCloser
	current  string
	logger   *logger.Logger

	// Open and Discover can be replaced in tests
	Open     OpenFunc
	Discover func() ([]string, error)
}

// NewSerialTransport creates a serial transport. An empty portName enables discovery.
func NewSerialTransport(portName string, baud int, log *logger.Logger) *SerialTransport {
	return &SerialTransport{
		portName: portName,
		baud:     baud,
		logger:   log.Named("serial"),
		Open:     openSerial,
		Discover: DiscoverPorts,
	}
}

func openSerial(name string, baud int) (io.WriteCloser, error) {
	return serial.Open(name, &serial.Mode{BaudRate: baud})
}

// DiscoverPorts lists candidate controller devices
func DiscoverPorts() ([]string, error) {
	var ports []string
	for _, pattern := range DiscoveryGlobs {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)
		ports = append(ports, matches...)
	}
	return ports, nil
}

func (t *SerialTransport) connectLocked() error {
	if t.port != nil {
		return nil
	}

	candidates := []string{t.portName}
	if t.portName == "" {
		found, err := t.Discover()
		if err != nil {
			return fmt.Errorf("failed to discover serial ports: %w", err)
		}
		if len(found) == 0 {
			return fmt.Errorf("no serial ports found")
		}
		candidates = found
	}

	var lastErr error
	for _, name := range candidates {
		p, err := t.Open(name, t.baud)
		if err != nil {
			lastErr = err
			continue
		}
		t.port = p
		t.current = name
		t.logger.Info("Connected to controller",
			logger.String("port", name),
			logger.Int("baud_rate", t.baud),
		)
		return nil
	}
	return fmt.Errorf("failed to open serial port: %w", lastErr)
}

// Send writes one command
func (t *SerialTransport) Send(command string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.connectLocked(); err != nil {
		return err
	}

	if _, err := io.WriteString(t.port, command); err != nil {
		t.logger.Warn("Write failed, dropping port",
			logger.String("port", t.current),
			logger.Error(err),
		)
		_ = t.port.Close()
		t.port = nil
		t.current = ""
		return fmt.Errorf("failed to write command: %w", err)
	}

	t.logger.Debug("Sent command", logger.String("command", command))
	return nil
}

// Port returns the device currently in use, empty when disconnected
func (t *SerialTransport) Port() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Close releases the port
func (t *SerialTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	t.current = ""
	return err
}

// LogTransport only logs commands. It backs dry runs.
type LogTransport struct {
	mu     sync.Mutex
	logger *logger.Logger
	sent   []string
}

// NewLogTransport creates a logging transport
func NewLogTransport(log *logger.Logger) *LogTransport {
	return &LogTransport{logger: log.Named("transport")}
}

// Send logs the command
func (t *LogTransport) Send(command string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, command)
	t.logger.Info("Effect command", logger.String("command", command))
	return nil
}

// Sent returns every command sent so far
func (t *LogTransport) Sent() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.sent))
	copy(out, t.sent)
	return out
}

// Close implements Transport
func (t *LogTransport) Close() error { return nil }
