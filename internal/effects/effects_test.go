package effects

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/fdwatch/internal/config"
	"github.com/yegors/fdwatch/pkg/logger"
)

type fakePort struct {
	mu      sync.Mutex
	written []string
	failing bool
	closed  bool
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failing {
		return 0, errors.New("device unplugged")
	}
	p.written = append(p.written, string(b))
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func TestSerialTransportDiscoversAndReconnects(t *testing.T) {
	ports := map[string]*fakePort{}
	var opened []string

	tr := NewSerialTransport("", 115200, logger.NewNop())
	tr.Discover = func() ([]string, error) { return []string{"/dev/ttyUSB0", "/dev/ttyACM0"}, nil }
	tr.Open = func(name string, baud int) (io.WriteCloser, error) {
		assert.Equal(t, 115200, baud)
		opened = append(opened, name)
		if name == "/dev/ttyUSB0" && len(opened) == 1 {
			return nil, errors.New("busy")
		}
		p := &fakePort{}
		ports[name] = p
		return p, nil
	}

	require.NoError(t, tr.Send(`{"ps":1}`))
	assert.Equal(t, "/dev/ttyACM0", tr.Port(), "first candidate failed to open")
	require.NoError(t, tr.Send(`{"ps":2}`))
	assert.Equal(t, []string{`{"ps":1}`, `{"ps":2}`}, ports["/dev/ttyACM0"].written)

	ports["/dev/ttyACM0"].failing = true
	assert.Error(t, tr.Send(`{"ps":3}`))
	assert.True(t, ports["/dev/ttyACM0"].closed)
	assert.Equal(t, "", tr.Port())

	require.NoError(t, tr.Send(`{"ps":3}`))
	assert.Equal(t, "/dev/ttyUSB0", tr.Port(), "rediscovered after the failure")
	assert.Equal(t, []string{`{"ps":3}`}, ports["/dev/ttyUSB0"].written)

	require.NoError(t, tr.Close())
	assert.True(t, ports["/dev/ttyUSB0"].closed)
}

func TestSerialTransportNoPorts(t *testing.T) {
	tr := NewSerialTransport("", 115200, logger.NewNop())
	tr.Discover = func() ([]string, error) { return nil, nil }
	assert.Error(t, tr.Send("x"))
}

func TestSerialTransportSerializesWrites(t *testing.T) {
	port := &fakePort{}
	tr := NewSerialTransport("/dev/ttyUSB0", 115200, logger.NewNop())
	tr.Open = func(string, int) (io.WriteCloser, error) { return port, nil }

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = tr.Send("cmd")
		}()
	}
	wg.Wait()
	assert.Len(t, port.written, 20)
}

func TestNewSelectsTransport(t *testing.T) {
	_, ok := New(config.TransportConfig{Type: TransportLog}, logger.NewNop()).(*LogTransport)
	assert.True(t, ok)
	_, ok = New(config.TransportConfig{Type: TransportSerial}, logger.NewNop()).(*SerialTransport)
	assert.True(t, ok)
}

func TestButtonListener(t *testing.T) {
	tr := NewLogTransport(logger.NewNop())
	b := NewButtonListener(config.ButtonConfig{
		Codes: map[string]string{"8059905": "A", "8059906": "B"},
	}, tr, logger.NewNop())
	b.SetReconnectDelay(time.Hour)

	b.Open = func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("8059905\n\nnoise\n 8059906 \n")), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(tr.Sent()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []string{"A", "B"}, tr.Sent())
}

func TestButtonListenerRetriesOpen(t *testing.T) {
	tr := NewLogTransport(logger.NewNop())
	b := NewButtonListener(config.ButtonConfig{Codes: map[string]string{"1": "A"}}, tr, logger.NewNop())
	b.SetReconnectDelay(time.Millisecond)

	var attempts int
	var mu sync.Mutex
	b.Open = func() (io.ReadCloser, error) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return nil, errors.New("no device")
		}
		return io.NopCloser(strings.NewReader("1\n")), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	assert.Eventually(t, func() bool { return len(tr.Sent()) >= 1 }, time.Second, time.Millisecond)
}
