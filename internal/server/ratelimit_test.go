package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func limiterAt(perMinute, perHour int) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(perMinute, perHour)
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiter_NoLimits(t *testing.T) {
	rl, _ := limiterAt(0, 0)
	for i := 0; i < 100; i++ {
		require.NoError(t, rl.Allow("user1"))
	}
	minute, hour := rl.Usage("user1")
	assert.Equal(t, 100, minute)
	assert.Equal(t, 100, hour)
}

func TestRateLimiter_PerMinute(t *testing.T) {
	rl, clock := limiterAt(2, 0)

	require.NoError(t, rl.Allow("user1"))
	clock.advance(10 * time.Second)
	require.NoError(t, rl.Allow("user1"))

	err := rl.Allow("user1")
	var rle *RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, "minute", rle.Type)
	assert.Equal(t, 2, rle.Limit)
	assert.Equal(t, 50*time.Second, rle.RetryAfter)

	// other clients are independent
	require.NoError(t, rl.Allow("user2"))

	// the window slides: the first request expires after a minute
	clock.advance(51 * time.Second)
	require.NoError(t, rl.Allow("user1"))
}

func TestRateLimiter_PerHour(t *testing.T) {
	rl, clock := limiterAt(0, 3)
	for i := 0; i < 3; i++ {
		require.NoError(t, rl.Allow("user1"))
		clock.advance(10 * time.Minute)
	}

	err := rl.Allow("user1")
	var rle *RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, "hour", rle.Type)
	assert.Equal(t, 30*time.Minute, rle.RetryAfter)

	clock.advance(31 * time.Minute)
	require.NoError(t, rl.Allow("user1"))
	_, hour := rl.Usage("user1")
	assert.Equal(t, 3, hour)
}

func TestRateLimiter_ForgetsIdleClients(t *testing.T) {
	rl, clock := limiterAt(10, 100)

	for _, c := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		require.NoError(t, rl.Allow(c))
	}
	assert.Equal(t, 3, rl.Clients())

	clock.advance(61 * time.Minute)
	require.NoError(t, rl.Allow("10.0.0.4"))
	assert.Equal(t, 1, rl.Clients(), "clients idle for an hour are dropped")

	minute, hour := rl.Usage("10.0.0.1")
	assert.Zero(t, minute)
	assert.Zero(t, hour)
	assert.Equal(t, 1, rl.Clients(), "Usage does not track unknown clients")
}

func TestRateLimitMiddleware(t *testing.T) {
	s := newTestServer(t, Config{RateLimit: RateLimitConfig{Enabled: true, RequestsPerMinute: 1}}, nil)

	w := postJSON(t, s.Handler(), "/v1/recognize", pageJSON)
	assert.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, s.Handler(), "/v1/recognize", pageJSON)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "minute", w.Header().Get("X-RateLimit-Type"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded list", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "1.2.3.4:5", "10.0.0.1"},
		{"real ip", map[string]string{"X-Real-IP": " 10.0.0.9 "}, "1.2.3.4:5", "10.0.0.9"},
		{"remote addr", nil, "1.2.3.4:5", "1.2.3.4"},
		{"remote without port", nil, "1.2.3.4", "1.2.3.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(r))
		})
	}
}
