package limiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRateLimiter_Tick(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("allows up to capacity inside the window", func(t *testing.T) {
		now := base
		l := newChatRateLimiterWithClock(3, 15*time.Second, true, func() time.Time { return now })

		for i := 0; i < 3; i++ {
			assert.Equal(t, time.Duration(0), l.Tick())
		}
	})

	t.Run("over capacity reports wait until the oldest tick exits", func(t *testing.T) {
		now := base
		l := newChatRateLimiterWithClock(3, 15*time.Second, true, func() time.Time { return now })

		for i := 0; i < 3; i++ {
			require.Equal(t, time.Duration(0), l.Tick())
			now = now.Add(time.Second)
		}

		// window is full; the first tick (at base) frees its slot at base+15s,
		// and we are at base+3s now
		wait := l.Tick()
		assert.Equal(t, 12*time.Second, wait)
	})

	t.Run("ticks outside the window are forgotten", func(t *testing.T) {
		now := base
		l := newChatRateLimiterWithClock(2, 10*time.Second, true, func() time.Time { return now })

		require.Equal(t, time.Duration(0), l.Tick())
		require.Equal(t, time.Duration(0), l.Tick())
		require.Positive(t, l.Tick())

		now = now.Add(11 * time.Second)
		assert.Equal(t, time.Duration(0), l.Tick())
	})

	t.Run("no burst enforces even spacing", func(t *testing.T) {
		now := base
		l := newChatRateLimiterWithClock(5, 10*time.Second, false, func() time.Time { return now })

		require.Equal(t, time.Duration(0), l.Tick())

		// next slot is window/capacity = 2s after the first tick
		wait := l.Tick()
		assert.Equal(t, 2*time.Second, wait)

		now = now.Add(2 * time.Second)
		assert.Equal(t, time.Duration(0), l.Tick())
	})

	t.Run("degenerate parameters are clamped", func(t *testing.T) {
		l := NewChatRateLimiter(0, -1, true)

		assert.Equal(t, time.Duration(0), l.Tick())
		assert.Positive(t, l.Tick())
	})
}
