/*
Package limiter provides concurrency rate limiting functionality.

This file implements the per-user chat message limiter. Unlike the IP limiter,
it uses a sliding window of accepted timestamps so that it can report the exact
wait time until the next message slot frees up, which the chat pipeline embeds
into the rejection message shown to the user.
*/
package limiter

import (
	"time"
)

// ChatRateLimiter is a sliding-window rate limiter for chat messages.
//
// It permits at most capacity accepted ticks per window. When the window is
// full, Tick reports the time until the oldest counted tick leaves the window.
// With burst disabled, ticks are additionally spaced evenly at
// window/capacity.
//
// An instance belongs to a single session user and is only touched by that
// connection's handler goroutine, so it carries no lock.
type ChatRateLimiter struct {
	capacity int
	window   time.Duration
	burst    bool

	// accepted tick timestamps inside the current window, oldest first.
	hits []time.Time

	// now is injectable for tests.
	now func() time.Time
}

// NewChatRateLimiter creates a limiter allowing capacity ticks per window.
// With burst enabled, the full capacity may be consumed at once.
func NewChatRateLimiter(capacity int, window time.Duration, burst bool) *ChatRateLimiter {
	return newChatRateLimiterWithClock(capacity, window, burst, time.Now)
}

func newChatRateLimiterWithClock(capacity int, window time.Duration, burst bool, now func() time.Time) *ChatRateLimiter {
	if capacity < 1 {
		capacity = 1
	}
	if window <= 0 {
		window = time.Second
	}

	return &ChatRateLimiter{
		capacity: capacity,
		window:   window,
		burst:    burst,
		hits:     make([]time.Time, 0, capacity),
		now:      now,
	}
}

// Tick records one attempt. It returns 0 when the attempt is allowed, or the
// positive duration the caller has to wait until the next slot frees.
func (l *ChatRateLimiter) Tick() time.Duration {
	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.hits[:0]
	for _, ts := range l.hits {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.hits = kept

	if len(l.hits) >= l.capacity {
		// oldest counted tick exits the window first
		return l.hits[0].Add(l.window).Sub(now)
	}

	if !l.burst && len(l.hits) > 0 {
		gap := l.window / time.Duration(l.capacity)
		nextSlot := l.hits[len(l.hits)-1].Add(gap)
		if nextSlot.After(now) {
			return nextSlot.Sub(now)
		}
	}

	l.hits = append(l.hits, now)
	return 0
}
