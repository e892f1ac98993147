package timesource

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/beevik/ntp"
	"github.com/pkg/errors"
)

// NTP keeps local time synchronized against a network time server. It
// queries the server at a bounded interval and in between applies the last
// measured clock offset to the system clock, so a slow or unreachable
// server does not stall the render loop for more than one query.
type NTP struct {
	server   string
	utc      time.Duration
	interval time.Duration

	// clockOffset is the last measured NTP offset in nanoseconds. Stored
	// atomically so Clock stays non-blocking.
	clockOffset atomic.Int64
	synced      atomic.Bool
	lastQuery   time.Time

	now   func() time.Time
	query func(server string) (time.Duration, error)
}

// queryOffset measures the clock offset against the server, rejecting
// responses the ntp library considers unusable.
func queryOffset(server string) (time.Duration, error) {
	resp, err := ntp.Query(server)
	if err != nil {
		return 0, err
	}
	if err := resp.Validate(); err != nil {
		return 0, err
	}
	return resp.ClockOffset, nil
}

// NewNTP creates an NTP source. utcOffset is the explicit offset from UTC
// to local time of day; there is no guessed default. resync bounds how
// often the server is actually queried.
func NewNTP(server string, utcOffset, resync time.Duration) *NTP {
	if resync <= 0 {
		resync = 15 * time.Minute
	}
	return &NTP{
		server:   server,
		utc:      utcOffset,
		interval: resync,
		now:      time.Now,
		query:    queryOffset,
	}
}

// Update queries the time server if the resync interval has elapsed.
// Before the first successful query Clock has nothing valid to report, so
// the caller must treat an error here as "no reading yet".
func (n *NTP) Update(ctx context.Context) error {
	if n.synced.Load() && n.now().Sub(n.lastQuery) < n.interval {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	offset, err := n.query(n.server)
	if err != nil {
		if n.synced.Load() {
			// A stale offset still ticks; retry the query next interval.
			n.lastQuery = n.now()
			return nil
		}
		return errors.Wrapf(err, "failed to query time server %q", n.server)
	}

	n.clockOffset.Store(int64(offset))
	n.synced.Store(true)
	n.lastQuery = n.now()
	return nil
}

// Clock returns the current local time of day from the system clock
// corrected by the last measured NTP offset.
func (n *NTP) Clock() (hour, minute, second int) {
	offset := time.Duration(n.clockOffset.Load())
	t := n.now().Add(offset).UTC().Add(n.utc)
	return t.Hour(), t.Minute(), t.Second()
}

// Synced reports whether at least one server query has succeeded.
func (n *NTP) Synced() bool {
	return n.synced.Load()
}
