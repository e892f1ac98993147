package segment

import "github.com/pkg/errors"

// NumDigits is the number of digit positions on the clock face:
// hour tens, hour units, minute tens, minute units, second tens,
// second units.
const NumDigits = 6

// AddressMap partitions the strip into contiguous per-digit address
// ranges. It holds NumDigits+1 strictly increasing boundaries; position k
// occupies pixel range [boundary[k], boundary[k+1]).
type AddressMap struct {
	boundaries [NumDigits + 1]int
}

// NewAddressMap validates the boundaries against the strip length and the
// per-position fonts. Historical configurations used unequal spans across
// positions without declaring it, so each position's span is checked
// against its own font rather than assumed uniform.
func NewAddressMap(boundaries [NumDigits + 1]int, stripLen int, fonts *[NumDigits]*Font) (*AddressMap, error) {
	if boundaries[0] != 0 {
		return nil, errors.Errorf("first boundary must be 0, got %d", boundaries[0])
	}
	for k := 0; k < NumDigits; k++ {
		if boundaries[k+1] <= boundaries[k] {
			return nil, errors.Errorf(
				"boundaries must be strictly increasing: boundary[%d]=%d, boundary[%d]=%d",
				k, boundaries[k], k+1, boundaries[k+1])
		}
	}
	if last := boundaries[NumDigits]; last > stripLen {
		return nil, errors.Errorf(
			"last boundary %d exceeds strip length %d", last, stripLen)
	}
	m := &AddressMap{boundaries: boundaries}
	if fonts != nil {
		for pos, f := range fonts {
			if span := m.Span(pos); span != f.Span() {
				return nil, errors.Errorf(
					"digit position %d spans %d pixels but its font needs %d",
					pos, span, f.Span())
			}
		}
	}
	return m, nil
}

// UniformAddressMap builds an address map where every digit position
// occupies span consecutive pixels starting at pixel 0.
func UniformAddressMap(span int) [NumDigits + 1]int {
	var b [NumDigits + 1]int
	for k := 1; k <= NumDigits; k++ {
		b[k] = k * span
	}
	return b
}

// Range returns the [start, end) pixel range of the given digit position.
func (m *AddressMap) Range(pos int) (start, end int) {
	return m.boundaries[pos], m.boundaries[pos+1]
}

// Span returns the number of pixels assigned to the given digit position.
func (m *AddressMap) Span(pos int) int {
	return m.boundaries[pos+1] - m.boundaries[pos]
}

// StripLen returns the index one past the last pixel the map addresses.
// Trailing pixels beyond this index are never touched by the renderer.
func (m *AddressMap) StripLen() int {
	return m.boundaries[NumDigits]
}
