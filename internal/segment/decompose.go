package segment

// Digit positions on the clock face, left to right.
const (
	HourTens = iota
	HourUnits
	MinuteTens
	MinuteUnits
	SecondTens
	SecondUnits
)

// ChangeMask records which digit positions need a redraw this tick.
type ChangeMask uint8

// Mark marks the given position as changed.
func (m *ChangeMask) Mark(pos int) { *m |= 1 << pos }

// Changed reports whether the given position needs a redraw.
func (m ChangeMask) Changed(pos int) bool { return m&(1<<pos) != 0 }

// All is the mask with every digit position marked.
const All ChangeMask = 1<<NumDigits - 1

// Decompose splits an (hour, minute, second) triple into the six digit
// values via an ordinary base-10 split. Leading zeros are ordinary digits;
// the tens position of 07 renders the full glyph for 0.
func Decompose(hour, minute, second int) [NumDigits]int {
	return [NumDigits]int{
		HourTens:    (hour / 10) % 10,
		HourUnits:   hour % 10,
		MinuteTens:  (minute / 10) % 10,
		MinuteUnits: minute % 10,
		SecondTens:  (second / 10) % 10,
		SecondUnits: second % 10,
	}
}

// ClockState tracks the previously rendered minute and hour so unchanged
// digits can be skipped. It lives for the process lifetime and is advanced
// exactly once per successful render.
type ClockState struct {
	prevHour   int
	prevMinute int
}

// NewClockState returns state that forces a full redraw on the first tick.
func NewClockState() *ClockState {
	return &ClockState{prevHour: -1, prevMinute: -1}
}

// Mask computes which digit positions need a redraw for the given time.
// Second digits change every tick by construction and are always marked.
// Minute and hour digits are marked only when the value differs from the
// previously rendered one; a plain inequality also resyncs after a
// backwards time jump instead of crashing.
func (s *ClockState) Mask(hour, minute int) ChangeMask {
	var m ChangeMask
	m.Mark(SecondTens)
	m.Mark(SecondUnits)
	if minute != s.prevMinute {
		m.Mark(MinuteTens)
		m.Mark(MinuteUnits)
	}
	if hour != s.prevHour {
		m.Mark(HourTens)
		m.Mark(HourUnits)
	}
	return m
}

// Commit records the just-rendered hour and minute. It must be called
// after a successful render and never before: a failed render must not
// advance the change-detection state.
func (s *ClockState) Commit(hour, minute int) {
	s.prevHour = hour
	s.prevMinute = minute
}
