package server

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClockedLimiter(cfg RateLimitConfig) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
	rl := NewRateLimiterFromConfig(cfg)
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiter_PerMinute(t *testing.T) {
	rl, clock := newClockedLimiter(RateLimitConfig{Enabled: true, RequestsPerMinute: 3})

	for range 3 {
		require.NoError(t, rl.CheckRateLimit("client", 0))
	}
	err := rl.CheckRateLimit("client", 0)
	var rle *RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, "minute", rle.Type)
	assert.Equal(t, 3, rle.Limit)
	assert.Equal(t, time.Minute, rle.RetryAfter)
	assert.Equal(t, 3, rl.GetUsage("client").RequestsLastMinute, "rejected requests are not counted")

	clock.advance(30 * time.Second)
	err = rl.CheckRateLimit("client", 0)
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, 30*time.Second, rle.RetryAfter)

	clock.advance(30 * time.Second)
	assert.NoError(t, rl.CheckRateLimit("client", 0))
}

func TestRateLimiter_PerHour(t *testing.T) {
	rl, clock := newClockedLimiter(RateLimitConfig{Enabled: true, RequestsPerHour: 2})

	require.NoError(t, rl.CheckRateLimit("client", 0))
	clock.advance(2 * time.Minute)
	require.NoError(t, rl.CheckRateLimit("client", 0))
	clock.advance(2 * time.Minute)

	var rle *RateLimitError
	require.True(t, errors.As(rl.CheckRateLimit("client", 0), &rle))
	assert.Equal(t, "hour", rle.Type)

	clock.advance(time.Hour)
	assert.NoError(t, rl.CheckRateLimit("client", 0))
}

func TestRateLimiter_DailyQuotas(t *testing.T) {
	t.Run("requests", func(t *testing.T) {
		rl, clock := newClockedLimiter(RateLimitConfig{Enabled: true, MaxRequestsPerDay: 2})
		require.NoError(t, rl.CheckRateLimit("client", 0))
		require.NoError(t, rl.CheckRateLimit("client", 0))

		var qe *QuotaExceededError
		require.True(t, errors.As(rl.CheckRateLimit("client", 0), &qe))
		assert.Equal(t, "requests", qe.Type)
		assert.Equal(t, int64(2), qe.Used)
		assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), qe.Resets)

		clock.advance(14 * time.Hour)
		assert.NoError(t, rl.CheckRateLimit("client", 0), "quota resets at midnight")
	})

	t.Run("data", func(t *testing.T) {
		rl, _ := newClockedLimiter(RateLimitConfig{Enabled: true, MaxDataPerDay: 100})
		require.NoError(t, rl.CheckRateLimit("client", 60))

		var qe *QuotaExceededError
		require.True(t, errors.As(rl.CheckRateLimit("client", 50), &qe))
		assert.Equal(t, "data", qe.Type)
		assert.Equal(t, int64(60), qe.Used)
		assert.NoError(t, rl.CheckRateLimit("client", 40))
		assert.Equal(t, int64(100), rl.GetUsage("client").DataToday)
	})
}

func TestRateLimiter_IndependentClients(t *testing.T) {
	rl := NewRateLimiter(1, 0, 0, 0)
	require.NoError(t, rl.CheckRateLimit("a", 0))
	require.NoError(t, rl.CheckRateLimit("b", 0))
	assert.Error(t, rl.CheckRateLimit("a", 0))
	assert.Equal(t, ClientUsage{}, rl.GetUsage("unknown"))
}

func TestRateLimiter_Prune(t *testing.T) {
	rl, clock := newClockedLimiter(RateLimitConfig{Enabled: true})
	require.NoError(t, rl.CheckRateLimit("old", 0))
	clock.advance(20 * time.Hour)
	require.NoError(t, rl.CheckRateLimit("recent", 0))
	clock.advance(5 * time.Hour)

	assert.Equal(t, 1, rl.Prune())
	assert.Equal(t, 1, rl.GetUsage("recent").RequestsToday)
	assert.Zero(t, rl.GetUsage("old").RequestsToday)
}

func TestRateLimitErrors_Messages(t *testing.T) {
	rle := &RateLimitError{Type: "minute", Limit: 5, RetryAfter: 10 * time.Second}
	assert.Contains(t, rle.Error(), "rate limit exceeded for minute")
	qe := &QuotaExceededError{Type: "data", Limit: 10, Used: 12, Resets: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}
	assert.Contains(t, qe.Error(), "2026-01-02T00:00:00Z")
}
