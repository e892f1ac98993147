// Package timesource provides the clock's notion of wall time. Sources are
// polled once per loop iteration; Clock reads never block.
package timesource

import (
	"context"
	"time"
)

// Source is a wall-clock time source. Update refreshes the source from the
// underlying clock; Clock returns the last known local time of day.
type Source interface {
	// Update refreshes the source. A transient failure is returned as an
	// error; the caller retries on the next poll and skips rendering until
	// a valid reading exists.
	Update(ctx context.Context) error
	// Clock returns hours (0-23), minutes (0-59) and seconds (0-59).
	Clock() (hour, minute, second int)
}

// System reads the operating system clock, shifted by an explicit UTC
// offset. It stands in for an RTC peripheral and never fails.
type System struct {
	// Offset is added to UTC to produce local time of day.
	Offset time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewSystem creates a system-clock source with the given UTC offset.
func NewSystem(offset time.Duration) *System {
	return &System{Offset: offset, now: time.Now}
}

// Update is a no-op; the operating system clock is always current.
func (s *System) Update(ctx context.Context) error {
	return nil
}

// Clock returns the current local time of day.
func (s *System) Clock() (hour, minute, second int) {
	t := s.now().UTC().Add(s.Offset)
	return t.Hour(), t.Minute(), t.Second()
}
