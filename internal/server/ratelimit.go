package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter enforces sliding-window request limits per client.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	requestsPerHour   int

	now       func() time.Time
	clients   map[string][]time.Time // accepted request times within the last hour, oldest first
	lastSweep time.Time
}

// sweepInterval bounds how often Allow drops clients idle for an hour.
const sweepInterval = time.Minute

// NewRateLimiter creates a limiter. A limit of zero disables that window.
func NewRateLimiter(requestsPerMinute, requestsPerHour int) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		requestsPerHour:   requestsPerHour,
		now:               time.Now,
		clients:           make(map[string][]time.Time),
	}
}

// Allow records a request from client, or returns a *RateLimitError.
func (rl *RateLimiter) Allow(client string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)
	times := prune(rl.clients[client], now.Add(-time.Hour))

	if rl.requestsPerMinute > 0 {
		recent := times[firstAfter(times, now.Add(-time.Minute)):]
		if len(recent) >= rl.requestsPerMinute {
			rl.clients[client] = times
			return &RateLimitError{Type: "minute", Limit: rl.requestsPerMinute, RetryAfter: recent[0].Add(time.Minute).Sub(now)}
		}
	}
	if rl.requestsPerHour > 0 && len(times) >= rl.requestsPerHour {
		rl.clients[client] = times
		return &RateLimitError{Type: "hour", Limit: rl.requestsPerHour, RetryAfter: times[0].Add(time.Hour).Sub(now)}
	}

	rl.clients[client] = append(times, now)
	return nil
}

// Usage returns the number of accepted requests from client in the last minute and hour.
func (rl *RateLimiter) Usage(client string) (lastMinute, lastHour int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	times := prune(rl.clients[client], now.Add(-time.Hour))
	rl.store(client, times)
	return len(times) - firstAfter(times, now.Add(-time.Minute)), len(times)
}

// Clients returns the number of clients currently tracked.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *RateLimiter) store(client string, times []time.Time) {
	if len(times) == 0 {
		delete(rl.clients, client)
		return
	}
	rl.clients[client] = times
}

// sweep deletes every client without a request in the last hour.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < sweepInterval {
		return
	}
	rl.lastSweep = now
	cutoff := now.Add(-time.Hour)
	for client, times := range rl.clients {
		rl.store(client, prune(times, cutoff))
	}
}

func prune(times []time.Time, cutoff time.Time) []time.Time {
	return times[firstAfter(times, cutoff):]
}

func firstAfter(times []time.Time, cutoff time.Time) int {
	for i, t := range times {
		if t.After(cutoff) {
			return i
		}
	}
	return len(times)
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
