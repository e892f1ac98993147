package ledclock

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"libdb.so/ledclock/internal/led"
	"libdb.so/ledclock/internal/segment"
)

const sampleConfig = `
device = "/dev/ttyUSB0"
baud = 115200
strip_length = 215
format = "rgbw"
poll_interval = "100ms"
brightness = 180

[display]
leds_per_segment = 5

[time]
source = "ntp"
server = "pool.ntp.org"
utc_offset = "-5h"
resync = "10m"

[control]
broker = "tcp://broker.local:1883"
client_id = "ledclock"
brightness_topic = "clock/brightness"
power_topic = "clock/power"

[metrics]
listen = ":9102"
`

func parseSample(t *testing.T, s string) *Config {
	t.Helper()
	cfg, err := ParseConfig(strings.NewReader(s))
	require.NoError(t, err)
	return cfg
}

func TestParseConfig(t *testing.T) {
	cfg := parseSample(t, sampleConfig)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/dev/ttyUSB0", cfg.Device)
	assert.Equal(t, 215, cfg.StripLength)
	assert.Equal(t, 180, cfg.Brightness)
	assert.Equal(t, 100*time.Millisecond, cfg.PollEvery())
	assert.Equal(t, -5*time.Hour, time.Duration(cfg.Time.UTCOffset))

	format, err := cfg.StripFormat()
	require.NoError(t, err)
	assert.Equal(t, led.FormatRGBW, format)

	require.NotNil(t, cfg.Control)
	assert.Equal(t, "clock/brightness", cfg.Control.BrightnessTopic)
}

func TestBuildDisplayUniform(t *testing.T) {
	cfg := parseSample(t, sampleConfig)

	fonts, addr, err := cfg.BuildDisplay()
	require.NoError(t, err)
	assert.Equal(t, 35, fonts[0].Span())
	assert.Equal(t, 210, addr.StripLen())
	for pos := 0; pos < segment.NumDigits; pos++ {
		assert.Equal(t, 35, addr.Span(pos))
	}
}

func TestBuildDisplayExplicitBoundaries(t *testing.T) {
	cfg := parseSample(t, sampleConfig)
	cfg.Display.Boundaries = []int64{0, 35, 70, 105, 140, 175, 210}

	_, _, err := cfg.BuildDisplay()
	assert.NoError(t, err)
}

func TestBuildDisplayRejectsSpanMismatch(t *testing.T) {
	cfg := parseSample(t, sampleConfig)
	cfg.Display.Boundaries = []int64{0, 35, 70, 105, 140, 175, 209}

	_, _, err := cfg.BuildDisplay()
	assert.Error(t, err)
}

func TestValidateRejectsBadBrightness(t *testing.T) {
	cfg := parseSample(t, sampleConfig)
	cfg.Brightness = 300
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownFormat(t *testing.T) {
	cfg := parseSample(t, sampleConfig)
	cfg.Format = "grbw"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNTPWithoutServer(t *testing.T) {
	cfg := parseSample(t, sampleConfig)
	cfg.Time.Server = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsMissingDisplay(t *testing.T) {
	cfg := parseSample(t, sampleConfig)
	cfg.Display = DisplayConfig{}
	assert.Error(t, cfg.Validate())
}

func TestValidateAllowsHeadless(t *testing.T) {
	cfg := parseSample(t, sampleConfig)
	cfg.Device = ""
	cfg.Baud = 0
	assert.NoError(t, cfg.Validate())
}

func TestBuildDisplayExplicitGlyphs(t *testing.T) {
	cfg := parseSample(t, sampleConfig)
	cfg.Display.LEDsPerSegment = 0
	cfg.Display.Glyphs = make([][]int64, 10)
	for d := range cfg.Display.Glyphs {
		// A tiny two-pixel font: every digit lights pixel 0, odd digits
		// also pixel 1.
		cfg.Display.Glyphs[d] = []int64{0}
		if d%2 == 1 {
			cfg.Display.Glyphs[d] = []int64{0, 1}
		}
	}

	fonts, addr, err := cfg.BuildDisplay()
	require.NoError(t, err)
	assert.Equal(t, 2, fonts[0].Span())
	assert.Equal(t, 12, addr.StripLen())
}
