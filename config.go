package ledclock

import (
	"encoding"
	"io"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"libdb.so/ledclock/internal/led"
	"libdb.so/ledclock/internal/segment"
)

// Config is the configuration for the clock daemon.
type Config struct {
	// Device is the path to the strip controller's serial device.
	// This is usually /dev/ttyUSB0 or /dev/ttyACM0. Empty means no
	// hardware; the daemon renders into a discarding sink.
	Device string `toml:"device"`
	// Baud is the baud rate for the serial connection.
	Baud int `toml:"baud"`
	// StripLength is the total number of LEDs on the strip.
	StripLength int `toml:"strip_length"`
	// Format is the strip's channel layout, "rgb" or "rgbw".
	Format string `toml:"format"`
	// PollInterval bounds the sleep between time-source polls and control
	// signal servicing.
	PollInterval TOMLDuration `toml:"poll_interval"`
	// Brightness is the initial global brightness, 0-255.
	Brightness int `toml:"brightness"`

	// Display describes the digit glyphs and their address ranges.
	Display DisplayConfig `toml:"display"`
	// Time selects and configures the time source.
	Time TimeConfig `toml:"time"`
	// Control configures the MQTT remote control. Optional.
	Control *ControlConfig `toml:"control,omitempty"`
	// Metrics configures the Prometheus listener. Optional.
	Metrics *MetricsConfig `toml:"metrics,omitempty"`
}

// DisplayConfig describes how the six digits map onto the strip.
type DisplayConfig struct {
	// LEDsPerSegment sizes the built-in seven-segment font. Ignored when
	// Glyphs is set.
	LEDsPerSegment int `toml:"leds_per_segment"`
	// Glyphs optionally gives the full hand-authored font: ten strictly
	// increasing offset lists, one per digit 0-9.
	Glyphs [][]int64 `toml:"glyphs,omitempty"`
	// Boundaries optionally gives the seven address-map boundaries. When
	// absent the six digits pack uniformly from pixel 0.
	Boundaries []int64 `toml:"boundaries,omitempty"`
}

// TimeConfig selects the time source.
type TimeConfig struct {
	// Source is "ntp" or "system".
	Source string `toml:"source"`
	// Server is the NTP server to query.
	Server string `toml:"server"`
	// UTCOffset is the explicit offset from UTC to local time of day.
	// There is deliberately no guessed default beyond zero.
	UTCOffset TOMLDuration `toml:"utc_offset"`
	// Resync bounds how often the NTP server is queried.
	Resync TOMLDuration `toml:"resync"`
}

// ControlConfig configures the MQTT remote control client.
type ControlConfig struct {
	Broker          string `toml:"broker"`
	ClientID        string `toml:"client_id"`
	BrightnessTopic string `toml:"brightness_topic"`
	PowerTopic      string `toml:"power_topic"`
}

// MetricsConfig configures the Prometheus metrics listener.
type MetricsConfig struct {
	Listen string `toml:"listen"`
}

// Time source kinds accepted in TimeConfig.Source.
const (
	TimeSourceNTP    = "ntp"
	TimeSourceSystem = "system"
)

// Validate validates the configuration. Display geometry problems are
// fatal before any rendering: they are caught here and in BuildDisplay,
// never at render time.
func (c *Config) Validate() error {
	if c.StripLength <= 0 {
		return errors.New("strip_length must be positive")
	}
	if _, err := c.StripFormat(); err != nil {
		return err
	}
	if c.Brightness < 0 || c.Brightness > 255 {
		return errors.Errorf("brightness %d out of range 0-255", c.Brightness)
	}
	if c.Device != "" && c.Baud <= 0 {
		return errors.New("baud must be positive when a device is configured")
	}
	switch c.Time.Source {
	case TimeSourceSystem:
	case TimeSourceNTP:
		if c.Time.Server == "" {
			return errors.New("time.server is required for the ntp source")
		}
	default:
		return errors.Errorf("unknown time source %q", c.Time.Source)
	}
	if c.Control != nil {
		if c.Control.Broker == "" {
			return errors.New("control.broker is required")
		}
		if c.Control.BrightnessTopic == "" || c.Control.PowerTopic == "" {
			return errors.New("control topics are required")
		}
	}
	if _, _, err := c.BuildDisplay(); err != nil {
		return err
	}
	return nil
}

// StripFormat returns the parsed strip format.
func (c *Config) StripFormat() (led.Format, error) {
	switch c.Format {
	case "", "rgb":
		return led.FormatRGB, nil
	case "rgbw":
		return led.FormatRGBW, nil
	default:
		return 0, errors.Errorf("unknown strip format %q", c.Format)
	}
}

// PollEvery returns the poll interval with its default applied.
func (c *Config) PollEvery() time.Duration {
	if d := time.Duration(c.PollInterval); d > 0 {
		return d
	}
	return 250 * time.Millisecond
}

// BuildDisplay builds and validates the per-position fonts and the digit
// address map. All six positions share one font; the address map is still
// validated per position so unequal spans are rejected instead of
// silently rendering garbage.
func (c *Config) BuildDisplay() (*[segment.NumDigits]*segment.Font, *segment.AddressMap, error) {
	var font *segment.Font
	switch {
	case len(c.Display.Glyphs) > 0:
		if len(c.Display.Glyphs) != 10 {
			return nil, nil, errors.Errorf(
				"display.glyphs needs exactly 10 digit entries, got %d", len(c.Display.Glyphs))
		}
		var glyphs [10][]int
		for d, offsets := range c.Display.Glyphs {
			glyphs[d] = make([]int, len(offsets))
			for i, off := range offsets {
				glyphs[d][i] = int(off)
			}
		}
		var err error
		font, err = segment.NewFont(glyphs)
		if err != nil {
			return nil, nil, errors.Wrap(err, "invalid display.glyphs")
		}
	case c.Display.LEDsPerSegment > 0:
		font = segment.SevenSegment(c.Display.LEDsPerSegment)
	default:
		return nil, nil, errors.New("either display.glyphs or display.leds_per_segment is required")
	}

	var fonts [segment.NumDigits]*segment.Font
	for pos := range fonts {
		fonts[pos] = font
	}

	boundaries := segment.UniformAddressMap(font.Span())
	if len(c.Display.Boundaries) > 0 {
		if len(c.Display.Boundaries) != segment.NumDigits+1 {
			return nil, nil, errors.Errorf(
				"display.boundaries needs exactly %d entries, got %d",
				segment.NumDigits+1, len(c.Display.Boundaries))
		}
		for i, b := range c.Display.Boundaries {
			boundaries[i] = int(b)
		}
	}

	addr, err := segment.NewAddressMap(boundaries, c.StripLength, &fonts)
	if err != nil {
		return nil, nil, errors.Wrap(err, "invalid display address map")
	}
	return &fonts, addr, nil
}

// TOMLDuration is a duration that can be parsed from TOML.
type TOMLDuration time.Duration

var (
	_ encoding.TextUnmarshaler = (*TOMLDuration)(nil)
	_ encoding.TextMarshaler   = (*TOMLDuration)(nil)
)

func (d *TOMLDuration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = TOMLDuration(duration)
	return nil
}

func (d TOMLDuration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// ParseConfig parses a configuration from a reader.
func ParseConfig(r io.Reader) (*Config, error) {
	var config Config
	if err := toml.NewDecoder(r).Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
