package segment

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"libdb.so/ledclock/internal/led"
)

var (
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledclock_ticks_total",
		Help: "count of second-boundary render passes",
	})
	digitsRedrawn = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledclock_digits_redrawn_total",
		Help: "count of digit positions redrawn across all ticks",
	})
	flushErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledclock_flush_errors_total",
		Help: "count of failed buffer flushes to the strip",
	})
	renderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledclock_render_duration_seconds",
		Help:    "time spent rendering and flushing one tick",
		Buckets: prometheus.ExponentialBuckets(1e-6, 10, 8),
	})
)

// Sink receives the rendered pixel buffer. Implementations push it to the
// physical strip; the transmission protocol itself is not the engine's
// concern.
type Sink interface {
	// Flush pushes the entire buffer to the strip in one operation.
	Flush(led.LEDs) error
	// SetBrightness scales the strip's global output, 0 to 255.
	SetBrightness(level uint8) error
}

// Engine is the render-engine context: the pixel buffer, the per-tick
// change tracking and the output state. All mutable clock state lives here
// so the engine is testable without hardware. It is not safe for
// concurrent use; one goroutine owns it.
type Engine struct {
	renderer *Renderer
	state    *ClockState
	sink     Sink

	brightness uint8
	powered    bool
}

// NewEngine builds an engine rendering into a fresh buffer of stripLen
// pixels. The initial brightness is applied to the sink immediately.
func NewEngine(fonts *[NumDigits]*Font, addr *AddressMap, format led.Format, stripLen int, sink Sink, brightness uint8) (*Engine, error) {
	buf := led.NewLEDs(stripLen)
	e := &Engine{
		renderer:   NewRenderer(fonts, addr, buf, format),
		state:      NewClockState(),
		sink:       sink,
		brightness: brightness,
		powered:    true,
	}
	if err := sink.SetBrightness(brightness); err != nil {
		return nil, errors.Wrap(err, "failed to apply initial brightness")
	}
	return e, nil
}

// Tick performs one render pass for the given wall-clock time: decompose
// into digits, redraw only the positions whose value changed since the
// last committed render, then flush the buffer to the sink exactly once.
// The previous-hour/minute trackers advance only after a successful flush.
func (e *Engine) Tick(hour, minute, second int) error {
	start := time.Now()
	ticksTotal.Inc()

	digits := Decompose(hour, minute, second)
	mask := e.state.Mask(hour, minute)

	var redrawn int
	for pos := 0; pos < NumDigits; pos++ {
		if !mask.Changed(pos) {
			continue
		}
		e.renderer.RenderDigit(pos, digits[pos])
		redrawn++
	}
	digitsRedrawn.Add(float64(redrawn))

	if err := e.sink.Flush(e.renderer.Buffer()); err != nil {
		flushErrors.Inc()
		return errors.Wrap(err, "failed to flush pixel buffer")
	}

	e.state.Commit(hour, minute)
	renderDuration.Observe(time.Since(start).Seconds())
	return nil
}

// SetBrightness stores the configured brightness and, while powered on,
// applies it to the sink. While powered off only the stored value changes;
// it takes effect on the next power-on.
func (e *Engine) SetBrightness(level uint8) error {
	e.brightness = level
	if !e.powered {
		return nil
	}
	return errors.Wrap(e.sink.SetBrightness(level), "failed to set brightness")
}

// SetPower turns the display output on or off. Turning off forces the
// sink's brightness to zero without touching the stored value; turning on
// restores the stored brightness verbatim.
func (e *Engine) SetPower(on bool) error {
	if on == e.powered {
		return nil
	}
	e.powered = on
	level := uint8(0)
	if on {
		level = e.brightness
	}
	return errors.Wrap(e.sink.SetBrightness(level), "failed to switch power state")
}

// Brightness returns the stored brightness, regardless of power state.
func (e *Engine) Brightness() uint8 { return e.brightness }

// Powered reports whether display output is currently enabled.
func (e *Engine) Powered() bool { return e.powered }
