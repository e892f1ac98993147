// Package led holds the in-memory pixel buffer for an addressable LED strip.
package led

import "io"

// Format describes the channel layout of the physical strip.
type Format uint8

const (
	// FormatRGB is a strip with three channels per pixel.
	FormatRGB Format = iota
	// FormatRGBW is a strip with a dedicated white channel. Pure white is
	// rendered on the white channel alone instead of mixing R, G and B.
	FormatRGBW
)

// Channels returns the number of bytes one pixel occupies on the wire.
func (f Format) Channels() int {
	switch f {
	case FormatRGB:
		return 3
	case FormatRGBW:
		return 4
	default:
		panic("invalid strip format")
	}
}

func (f Format) String() string {
	switch f {
	case FormatRGB:
		return "rgb"
	case FormatRGBW:
		return "rgbw"
	default:
		panic("invalid strip format")
	}
}

// Color is a single pixel color. W is ignored on RGB strips.
type Color struct {
	R, G, B, W uint8
}

// Off is the all-channels-zero color.
var Off = Color{}

// White returns the pure-white on color for the given strip format.
// RGBW strips use only the white channel so sub-pixels are not mixed.
func White(f Format) Color {
	if f == FormatRGBW {
		return Color{W: 0xff}
	}
	return Color{R: 0xff, G: 0xff, B: 0xff}
}

// LEDs describes a strip of LEDs. It is a preallocated slice of Color.
type LEDs []Color

// NewLEDs creates a new strip of LEDs. Colors are initialized to black (off).
func NewLEDs(numLEDs int) LEDs {
	return make(LEDs, numLEDs)
}

// Set sets the color of the LED at the given index.
func (l LEDs) Set(i int, c Color) {
	l[i] = c
}

// SetRange sets the color of the LEDs in the given range.
func (l LEDs) SetRange(start, end int, c Color) {
	for i := start; i < end; i++ {
		l[i] = c
	}
}

// Clear turns every LED off.
func (l LEDs) Clear() {
	for i := range l {
		l[i] = Color{}
	}
}

// AppendPixels appends the strip's channel bytes for the given format to dst
// and returns the extended slice.
func (l LEDs) AppendPixels(dst []uint8, f Format) []uint8 {
	for _, c := range l {
		dst = append(dst, c.R, c.G, c.B)
		if f == FormatRGBW {
			dst = append(dst, c.W)
		}
	}
	return dst
}

// WriteTo implements io.WriterTo. It writes the strip as RGBW tuples.
func (l LEDs) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for _, c := range l {
		n, err := w.Write([]byte{c.R, c.G, c.B, c.W})
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
