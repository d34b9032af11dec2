package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimitConfig holds per-client limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64 // in bytes
}

// RateLimiter manages request rate limiting and quotas per client.
type RateLimiter struct {
	mu  sync.RWMutex
	cfg RateLimitConfig
	now func() time.Time

	clients map[string]*ClientUsage
}

// ClientUsage tracks usage for one client IP.
type ClientUsage struct {
	RequestsLastMinute int       `json:"requests_last_minute"`
	RequestsLastHour   int       `json:"requests_last_hour"`
	RequestsToday      int       `json:"requests_today"`
	DataToday          int64     `json:"data_today"`
	LastRequest        time.Time `json:"last_request"`

	minuteStart time.Time
	hourStart   time.Time
	dayStart    time.Time
}

// NewRateLimiter creates a rate limiter with the given limits.
func NewRateLimiter(requestsPerMinute, requestsPerHour, maxRequestsPerDay int, maxDataPerDay int64) *RateLimiter {
	return NewRateLimiterFromConfig(RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: requestsPerMinute,
		RequestsPerHour:   requestsPerHour,
		MaxRequestsPerDay: maxRequestsPerDay,
		MaxDataPerDay:     maxDataPerDay,
	})
}

// NewRateLimiterFromConfig creates a rate limiter from cfg.
func NewRateLimiterFromConfig(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{cfg: cfg, now: time.Now, clients: make(map[string]*ClientUsage)}
}

// CheckRateLimit records a request of dataSize bytes from clientID, or
// returns a *RateLimitError or *QuotaExceededError without recording it.
func (rl *RateLimiter) CheckRateLimit(clientID string, dataSize int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	usage := rl.usageFor(clientID, now)
	rl.roll(usage, now)

	if err := rl.checkRates(usage, now); err != nil {
		return err
	}
	if err := rl.checkDailyQuotas(usage, dataSize, now); err != nil {
		return err
	}

	usage.RequestsLastMinute++
	usage.RequestsLastHour++
	usage.RequestsToday++
	usage.DataToday += dataSize
	usage.LastRequest = now
	return nil
}

// roll starts new windows once the current ones have elapsed.
func (rl *RateLimiter) roll(usage *ClientUsage, now time.Time) {
	if !sameDay(now, usage.dayStart) {
		usage.RequestsToday = 0
		usage.DataToday = 0
		usage.dayStart = now
	}
	if now.Sub(usage.minuteStart) >= time.Minute {
		usage.RequestsLastMinute = 0
		usage.minuteStart = now
	}
	if now.Sub(usage.hourStart) >= time.Hour {
		usage.RequestsLastHour = 0
		usage.hourStart = now
	}
}

func (rl *RateLimiter) checkRates(usage *ClientUsage, now time.Time) error {
	if rl.cfg.RequestsPerMinute > 0 && usage.RequestsLastMinute >= rl.cfg.RequestsPerMinute {
		return &RateLimitError{
			Type:       "minute",
			Limit:      rl.cfg.RequestsPerMinute,
			RetryAfter: time.Minute - now.Sub(usage.minuteStart),
		}
	}
	if rl.cfg.RequestsPerHour > 0 && usage.RequestsLastHour >= rl.cfg.RequestsPerHour {
		return &RateLimitError{
			Type:       "hour",
			Limit:      rl.cfg.RequestsPerHour,
			RetryAfter: time.Hour - now.Sub(usage.hourStart),
		}
	}
	return nil
}

func (rl *RateLimiter) checkDailyQuotas(usage *ClientUsage, dataSize int64, now time.Time) error {
	resets := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	if rl.cfg.MaxRequestsPerDay > 0 && usage.RequestsToday >= rl.cfg.MaxRequestsPerDay {
		return &QuotaExceededError{
			Type:   "requests",
			Limit:  int64(rl.cfg.MaxRequestsPerDay),
			Used:   int64(usage.RequestsToday),
			Resets: resets,
		}
	}
	if rl.cfg.MaxDataPerDay > 0 && usage.DataToday+dataSize > rl.cfg.MaxDataPerDay {
		return &QuotaExceededError{
			Type:   "data",
			Limit:  rl.cfg.MaxDataPerDay,
			Used:   usage.DataToday,
			Resets: resets,
		}
	}
	return nil
}

func (rl *RateLimiter) usageFor(clientID string, now time.Time) *ClientUsage {
	usage, ok := rl.clients[clientID]
	if !ok {
		usage = &ClientUsage{minuteStart: now, hourStart: now, dayStart: now}
		rl.clients[clientID] = usage
	}
	return usage
}

// GetUsage returns a copy of the usage of clientID.
func (rl *RateLimiter) GetUsage(clientID string) ClientUsage {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	if usage, ok := rl.clients[clientID]; ok {
		return *usage
	}
	return ClientUsage{}
}

// Prune forgets clients idle for longer than a day and returns how many were removed.
func (rl *RateLimiter) Prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	n := 0
	for id, usage := range rl.clients {
		if now.Sub(usage.LastRequest) > 24*time.Hour {
			delete(rl.clients, id)
			n++
		}
	}
	return n
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// RateLimitError represents a rate limit violation.
type RateLimitError struct {
	Type       string        // "minute" or "hour"
	Limit      int           // the limit that was exceeded
	RetryAfter time.Duration // how long to wait before retrying
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Type, e.Limit, e.RetryAfter)
}

// QuotaExceededError represents a quota violation.
type QuotaExceededError struct {
	Type   string    // "requests" or "data"
	Limit  int64     // the limit that was exceeded
	Used   int64     // current usage
	Resets time.Time // when the quota resets
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s (used: %d, limit: %d, resets: %s)",
		e.Type, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
