// Package ledclock renders HH:MM:SS onto an addressable LED strip arranged
// into six seven-segment digit glyphs. Time comes from an NTP server or
// the system clock; brightness and on/off come from MQTT control topics.
package ledclock

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"libdb.so/ledclock/internal/events"
	"libdb.so/ledclock/internal/remote"
	"libdb.so/ledclock/internal/segment"
	"libdb.so/ledclock/internal/timesource"
)

// Daemon is the clock daemon. One goroutine owns the render engine and the
// pixel buffer; every other goroutine only feeds signals into the loop.
type Daemon struct {
	cfg     *Config
	logger  *slog.Logger
	source  timesource.Source
	bus     *events.Bus
	signals chan any
}

// NewDaemon creates a new clock daemon. Configuration problems, malformed
// display geometry included, are rejected here before any rendering.
func NewDaemon(cfg *Config, logger *slog.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	source, err := newTimeSource(cfg)
	if err != nil {
		return nil, err
	}

	return &Daemon{
		cfg:     cfg,
		logger:  logger,
		source:  source,
		bus:     events.New(),
		signals: make(chan any, 16),
	}, nil
}

func newTimeSource(cfg *Config) (timesource.Source, error) {
	switch cfg.Time.Source {
	case TimeSourceNTP:
		return timesource.NewNTP(
			cfg.Time.Server,
			time.Duration(cfg.Time.UTCOffset),
			time.Duration(cfg.Time.Resync),
		), nil
	case TimeSourceSystem:
		return timesource.NewSystem(time.Duration(cfg.Time.UTCOffset)), nil
	default:
		return nil, errors.Errorf("unknown time source %q", cfg.Time.Source)
	}
}

// Run starts the daemon. It blocks until the given context is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	format, err := d.cfg.StripFormat()
	if err != nil {
		return err
	}
	fonts, addr, err := d.cfg.BuildDisplay()
	if err != nil {
		return err
	}

	var sink Sink
	if d.cfg.Device != "" {
		ss, err := openSerialSink(d.cfg.Device, d.cfg.Baud, d.cfg.StripLength, format)
		if err != nil {
			return err
		}
		sink = ss
	} else {
		d.logger.Warn("no serial device configured, rendering into a null sink")
		sink = NullSink{}
	}
	defer sink.Close()

	engine, err := segment.NewEngine(fonts, addr, format, d.cfg.StripLength, sink, uint8(d.cfg.Brightness))
	if err != nil {
		return err
	}

	unsubBrightness := d.bus.SubscribeBrightness(func(ev events.BrightnessEvent) {
		d.queueSignal(ev)
	})
	defer unsubBrightness()
	unsubPower := d.bus.SubscribePower(func(ev events.PowerEvent) {
		d.queueSignal(ev)
	})
	defer unsubPower()

	errg, ctx := errgroup.WithContext(ctx)

	if ss, ok := sink.(*serialSink); ok {
		errg.Go(func() error {
			return ss.closeOnCancel(ctx, d.logger)
		})
		errg.Go(func() error {
			return ss.readPackets(ctx, d.logger)
		})
	}

	if d.cfg.Control != nil {
		client := remote.NewClient(remote.Config{
			Broker:          d.cfg.Control.Broker,
			ClientID:        d.cfg.Control.ClientID,
			BrightnessTopic: d.cfg.Control.BrightnessTopic,
			PowerTopic:      d.cfg.Control.PowerTopic,
		}, d.bus, d.logger)
		errg.Go(func() error {
			return client.Run(ctx)
		})
	}

	if d.cfg.Metrics != nil {
		errg.Go(func() error {
			return d.serveMetrics(ctx, d.cfg.Metrics.Listen)
		})
	}

	errg.Go(func() error {
		return d.loop(ctx, engine)
	})

	return errg.Wait()
}

// queueSignal hands a control signal to the render loop. The loop drains
// the channel between polls; if it somehow falls behind, old signals are
// dropped so the publisher never blocks.
func (d *Daemon) queueSignal(sig any) {
	for {
		select {
		case d.signals <- sig:
			return
		default:
		}
		select {
		case <-d.signals:
		default:
		}
	}
}

// loop is the single scheduling loop: one poll step that refreshes the
// time source and renders on a second boundary, one service step that
// drains pending control signals. Both run on this goroutine; nothing else
// touches the engine.
func (d *Daemon) loop(ctx context.Context, engine *segment.Engine) error {
	ticker := time.NewTicker(d.cfg.PollEvery())
	defer ticker.Stop()

	lastSecond := -1

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case sig := <-d.signals:
			d.applySignal(engine, sig)

		case <-ticker.C:
			if err := d.source.Update(ctx); err != nil {
				d.logger.Warn("time source not ready", "error", err)
				continue
			}

			hour, minute, second := d.source.Clock()
			if second == lastSecond {
				continue
			}

			if err := engine.Tick(hour, minute, second); err != nil {
				// The change trackers did not advance, so the next poll
				// retries the same digits.
				d.logger.Error("render tick failed", "error", err)
				continue
			}
			lastSecond = second
		}
	}
}

func (d *Daemon) applySignal(engine *segment.Engine, sig any) {
	switch sig := sig.(type) {
	case events.BrightnessEvent:
		d.logger.Info("applying brightness", "level", sig.Level)
		if err := engine.SetBrightness(sig.Level); err != nil {
			d.logger.Error("failed to apply brightness", "error", err)
		}
	case events.PowerEvent:
		d.logger.Info("applying power state", "on", sig.On)
		if err := engine.SetPower(sig.On); err != nil {
			d.logger.Error("failed to apply power state", "error", err)
		}
	}
}

func (d *Daemon) serveMetrics(ctx context.Context, listen string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: listen, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			d.logger.Warn("metrics listener shutdown failed", "error", err)
		}
		// Drain the serve result so the goroutine is not left blocked.
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Warn("metrics listener failed during shutdown", "error", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return errors.Wrap(err, "metrics listener failed")
	}
}
