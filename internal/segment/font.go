// Package segment implements the digit-rendering engine: the glyph table,
// the digit address map, the differential renderer and the clock state that
// decides which digits need a redraw each second.
package segment

import (
	"fmt"

	"github.com/pkg/errors"
)

// Font maps each decimal digit to the set of pixel offsets, local to a
// digit's address range, that are lit to draw that digit. Offsets are
// strictly increasing. A Font is immutable once built.
type Font struct {
	glyphs [10][]int
	span   int
}

// NewFont builds a Font from explicit per-digit offset lists and validates
// them: every list must be non-empty, non-negative and strictly increasing.
// The font's span is the largest offset plus one.
func NewFont(glyphs [10][]int) (*Font, error) {
	f := &Font{glyphs: glyphs}
	for d, offsets := range glyphs {
		if len(offsets) == 0 {
			return nil, errors.Errorf("glyph %d has no lit offsets", d)
		}
		prev := -1
		for i, off := range offsets {
			if off <= prev {
				return nil, errors.Errorf(
					"glyph %d: offset %d at index %d is not strictly increasing", d, off, i)
			}
			prev = off
		}
		if last := offsets[len(offsets)-1]; last+1 > f.span {
			f.span = last + 1
		}
	}
	return f, nil
}

// Segment bits for the seven-segment layout, in local offset order.
// Within a digit's range the segments occupy consecutive equal-sized blocks
// A, B, C, D, E, F, G.
const (
	segA = 1 << iota
	segB
	segC
	segD
	segE
	segF
	segG
)

var sevenSegmentDigits = [10]uint8{
	segA | segB | segC | segD | segE | segF,        // 0
	segB | segC,                                    // 1
	segA | segB | segD | segE | segG,               // 2
	segA | segB | segC | segD | segG,               // 3
	segB | segC | segF | segG,                      // 4
	segA | segC | segD | segF | segG,               // 5
	segA | segC | segD | segE | segF | segG,        // 6
	segA | segB | segC,                             // 7
	segA | segB | segC | segD | segE | segF | segG, // 8
	segA | segB | segC | segD | segF | segG,        // 9
}

// SevenSegment builds the standard seven-segment font where each of the
// seven segments is a run of perSegment consecutive LEDs. The resulting
// span is 7*perSegment.
func SevenSegment(perSegment int) *Font {
	if perSegment < 1 {
		panic(fmt.Sprintf("invalid LEDs per segment: %d", perSegment))
	}
	var glyphs [10][]int
	for d, mask := range sevenSegmentDigits {
		var offsets []int
		for seg := 0; seg < 7; seg++ {
			if mask&(1<<seg) == 0 {
				continue
			}
			for i := 0; i < perSegment; i++ {
				offsets = append(offsets, seg*perSegment+i)
			}
		}
		glyphs[d] = offsets
	}
	f, err := NewFont(glyphs)
	if err != nil {
		// The built-in segment table always validates.
		panic(err)
	}
	return f
}

// Span returns the number of pixels a digit drawn with this font occupies.
func (f *Font) Span() int {
	return f.span
}

// LitOffsets returns the lit offsets for the given digit. The returned
// slice must not be modified. Digits outside 0..9 are a caller bug and
// panic.
func (f *Font) LitOffsets(digit int) []int {
	if digit < 0 || digit > 9 {
		panic(fmt.Sprintf("digit out of range: %d", digit))
	}
	return f.glyphs[digit]
}
