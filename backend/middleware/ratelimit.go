package middleware

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/countrycache/countrycache/backend/utils"
)

// RateLimiter is a sliding-window limiter keyed by client address
type RateLimiter struct {
	mu        sync.Mutex
	requests  map[string][]time.Time
	window    time.Duration
	limit     int
	now       func() time.Time
	lastSweep time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		window:   window,
		limit:    limit,
		now:      time.Now,
	}
}

// Allow records a request for key and reports whether it fits in the window.
// When it does not, the returned duration is how long until the oldest request expires.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)
	rl.sweep(now, cutoff)

	recent := prune(rl.requests[key], cutoff)
	if len(recent) >= rl.limit {
		rl.requests[key] = recent
		return false, recent[0].Sub(cutoff)
	}
	rl.requests[key] = append(recent, now)
	return true, 0
}

// sweep drops idle keys at most once per window so the map does not grow with every address seen
func (rl *RateLimiter) sweep(now, cutoff time.Time) {
	if now.Sub(rl.lastSweep) < rl.window {
		return
	}
	rl.lastSweep = now
	for key, times := range rl.requests {
		if len(prune(times, cutoff)) == 0 {
			delete(rl.requests, key)
		}
	}
}

func prune(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	return times[i:]
}

// RateLimit limits requests per IP address. A non-positive limit disables it.
func RateLimit(limit int, window time.Duration) fiber.Handler {
	if limit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	limiter := NewRateLimiter(limit, window)

	return func(c *fiber.Ctx) error {
		ip := utils.GetIPAddress(c)

		ok, retryAfter := limiter.Allow(ip)
		if !ok {
			slog.Warn("Rate limit exceeded",
				slog.String("type", "http"),
				slog.String("ip", ip),
				slog.String("path", c.Path()),
				slog.Int("limit", limit),
				slog.Duration("window", window))

			seconds := int(retryAfter.Seconds()) + 1
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(seconds))
			return utils.SendError(c, fiber.StatusTooManyRequests, "Too many requests", nil)
		}
		return c.Next()
	}
}
