package segment

import (
	"fmt"

	"libdb.so/ledclock/internal/led"
)

// Renderer draws digit glyphs into a pixel buffer. It owns no hardware
// access; flushing the buffer is the caller's concern so several digits
// can be updated before one hardware push.
type Renderer struct {
	fonts *[NumDigits]*Font
	addr  *AddressMap
	buf   led.LEDs
	on    led.Color
	off   led.Color
}

// NewRenderer creates a Renderer writing into buf. The on color is chosen
// from the strip format so pure white lands on the dedicated white channel
// when one exists.
func NewRenderer(fonts *[NumDigits]*Font, addr *AddressMap, buf led.LEDs, format led.Format) *Renderer {
	return &Renderer{
		fonts: fonts,
		addr:  addr,
		buf:   buf,
		on:    led.White(format),
		off:   led.Off,
	}
}

// RenderDigit draws the given digit value at the given position. It scans
// the position's pixel range in increasing order and merges it against the
// font's strictly increasing lit-offset list: one pass, a single cursor
// into the offsets, no per-pixel set lookups and no backtracking.
//
// A value outside 0..9 means the decomposer produced garbage; that is a
// bug, so it panics rather than clamping.
func (r *Renderer) RenderDigit(pos, value int) {
	if pos < 0 || pos >= NumDigits {
		panic(fmt.Sprintf("digit position out of range: %d", pos))
	}
	if value < 0 || value > 9 {
		panic(fmt.Sprintf("digit value out of range: %d", value))
	}

	lit := r.fonts[pos].LitOffsets(value)
	start, end := r.addr.Range(pos)

	cursor := 0
	for i := start; i < end; i++ {
		if cursor < len(lit) && lit[cursor] == i-start {
			r.buf[i] = r.on
			cursor++
		} else {
			r.buf[i] = r.off
		}
	}
}

// Buffer returns the pixel buffer the renderer writes into.
func (r *Renderer) Buffer() led.LEDs {
	return r.buf
}
