package ledclock

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"libdb.so/ledclock/internal/events"
)

func testDaemon(t *testing.T) *Daemon {
	t.Helper()
	cfg := parseSample(t, sampleConfig)
	cfg.Device = "" // headless
	cfg.Control = nil
	cfg.Metrics = nil

	d, err := NewDaemon(cfg, slog.Default())
	require.NoError(t, err)
	return d
}

func TestNewDaemonRejectsBadConfig(t *testing.T) {
	cfg := parseSample(t, sampleConfig)
	cfg.StripLength = 0

	_, err := NewDaemon(cfg, slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestNewDaemonRejectsBadGeometry(t *testing.T) {
	cfg := parseSample(t, sampleConfig)
	cfg.Display.Boundaries = []int64{0, 35, 70, 105, 140, 175, 211}

	_, err := NewDaemon(cfg, slog.Default())
	assert.Error(t, err)
}

func TestQueueSignalNeverBlocks(t *testing.T) {
	d := testDaemon(t)

	// Flood well past the channel capacity; the publisher must not block
	// and the newest signal must survive.
	for i := 0; i < 100; i++ {
		d.queueSignal(events.BrightnessEvent{Level: uint8(i)})
	}

	var last events.BrightnessEvent
	for {
		select {
		case sig := <-d.signals:
			last = sig.(events.BrightnessEvent)
			continue
		default:
		}
		break
	}
	assert.Equal(t, uint8(99), last.Level)
}

func TestMetricsListenerStopsOnCancel(t *testing.T) {
	d := testDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.serveMetrics(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("metrics listener did not stop after context cancellation")
	}
}

func TestParseConfigRejectsGarbage(t *testing.T) {
	_, err := ParseConfig(strings.NewReader("device = ["))
	assert.Error(t, err)
}
