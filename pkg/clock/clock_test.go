package clock_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/brawlstats/pkg/clock"
)

type tickClock struct {
	tick chan time.Time
}

func (c tickClock) After(time.Duration) <-chan time.Time { return c.tick }
func (c tickClock) Now() time.Time                      { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

func TestSleep(t *testing.T) {
	t.Parallel()

	t.Run("it returns once the clock fires", func(t *testing.T) {
		t.Parallel()

		// Arrange
		c := tickClock{tick: make(chan time.Time, 1)}
		c.tick <- time.Now()

		// Act
		err := clock.Sleep(t.Context(), c, time.Hour)

		// Assert
		require.NoError(t, err)
	})

	t.Run("it returns the context error when cancelled mid-wait", func(t *testing.T) {
		t.Parallel()

		// Arrange
		c := tickClock{tick: make(chan time.Time)}
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		// Act
		err := clock.Sleep(ctx, c, time.Hour)

		// Assert
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("it does not wait for non-positive durations", func(t *testing.T) {
		t.Parallel()

		// Arrange
		c := tickClock{tick: make(chan time.Time)}

		// Act
		err := clock.Sleep(t.Context(), c, 0)

		// Assert
		require.NoError(t, err)
	})
}
