package ledclock

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.bug.st/serial"
	"golang.org/x/sync/errgroup"
	"libdb.so/ledclock/internal/led"
)

// fakePort blocks every read until the port is closed, like a real
// controller that stays quiet. Unused Port methods come from the embedded
// nil interface and would panic if touched.
type fakePort struct {
	serial.Port

	closeOnce sync.Once
	closed    chan struct{}
}

func newFakePort() *fakePort {
	return &fakePort{closed: make(chan struct{})}
}

func (p *fakePort) Read(b []byte) (int, error) {
	<-p.closed
	return 0, io.EOF
}

func (p *fakePort) Write(b []byte) (int, error) {
	select {
	case <-p.closed:
		return 0, io.ErrClosedPipe
	default:
		return len(b), nil
	}
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	return nil
}

func (p *fakePort) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

func TestSerialReaderUnblocksOnCancel(t *testing.T) {
	port := newFakePort()
	sink := &serialSink{port: port, format: led.FormatRGB, numLEDs: 4}
	logger := slog.Default()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Same wiring as Daemon.Run: one goroutine closes the port on
	// cancellation, one drains controller packets.
	errg, gctx := errgroup.WithContext(ctx)
	errg.Go(func() error {
		return sink.closeOnCancel(gctx, logger)
	})
	errg.Go(func() error {
		return sink.readPackets(gctx, logger)
	})

	// Let the reader settle inside the blocking read before canceling.
	time.Sleep(50 * time.Millisecond)
	cancel()

	done := make(chan error, 1)
	go func() { done <- errg.Wait() }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("serial reader still blocked after context cancellation")
	}
}

func TestSerialReaderReportsCancelNotReadError(t *testing.T) {
	port := newFakePort()
	sink := &serialSink{port: port, format: led.FormatRGB, numLEDs: 4}

	// A read error caused by closing the port on shutdown must surface as
	// the cancellation, not as a controller failure.
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- sink.readPackets(ctx, slog.Default()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	port.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("reader did not return after close")
	}
}
