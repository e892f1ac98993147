package timesource

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemClockAppliesOffset(t *testing.T) {
	s := NewSystem(-5 * time.Hour)
	s.now = func() time.Time {
		return time.Date(2024, 3, 1, 14, 30, 45, 0, time.UTC)
	}

	require.NoError(t, s.Update(context.Background()))
	h, m, sec := s.Clock()
	assert.Equal(t, 9, h)
	assert.Equal(t, 30, m)
	assert.Equal(t, 45, sec)
}

func TestSystemClockZeroOffset(t *testing.T) {
	s := NewSystem(0)
	s.now = func() time.Time {
		return time.Date(2024, 3, 1, 23, 59, 9, 0, time.UTC)
	}

	h, m, sec := s.Clock()
	assert.Equal(t, 23, h)
	assert.Equal(t, 59, m)
	assert.Equal(t, 9, sec)
}

func TestNTPAppliesMeasuredOffset(t *testing.T) {
	n := NewNTP("pool.test", 2*time.Hour, time.Hour)
	n.now = func() time.Time {
		return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	}
	n.query = func(server string) (time.Duration, error) {
		assert.Equal(t, "pool.test", server)
		return 30 * time.Second, nil
	}

	require.NoError(t, n.Update(context.Background()))
	assert.True(t, n.Synced())

	h, m, s := n.Clock()
	assert.Equal(t, 12, h)
	assert.Equal(t, 0, m)
	assert.Equal(t, 30, s)
}

func TestNTPFailsBeforeFirstSync(t *testing.T) {
	n := NewNTP("pool.test", 0, time.Hour)
	n.query = func(server string) (time.Duration, error) {
		return 0, errors.New("no route to host")
	}

	assert.Error(t, n.Update(context.Background()))
	assert.False(t, n.Synced())
}

func TestNTPToleratesFailureAfterSync(t *testing.T) {
	n := NewNTP("pool.test", 0, time.Millisecond)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }
	n.query = func(server string) (time.Duration, error) {
		return time.Second, nil
	}

	require.NoError(t, n.Update(context.Background()))

	// The next query fails, but the stale offset still ticks.
	now = now.Add(time.Minute)
	n.query = func(server string) (time.Duration, error) {
		return 0, errors.New("transient")
	}
	assert.NoError(t, n.Update(context.Background()))

	h, m, s := n.Clock()
	assert.Equal(t, 10, h)
	assert.Equal(t, 1, m)
	assert.Equal(t, 1, s)
}

func TestNTPRespectsResyncInterval(t *testing.T) {
	n := NewNTP("pool.test", 0, time.Hour)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }

	queries := 0
	n.query = func(server string) (time.Duration, error) {
		queries++
		return 0, nil
	}

	require.NoError(t, n.Update(context.Background()))
	now = now.Add(time.Minute)
	require.NoError(t, n.Update(context.Background()))
	assert.Equal(t, 1, queries, "second update inside the resync interval must not query")

	now = now.Add(2 * time.Hour)
	require.NoError(t, n.Update(context.Background()))
	assert.Equal(t, 2, queries)
}
