package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 11, 15, 10, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour, Now: clock.Now})
	t.Cleanup(rl.Stop)
	return rl, clock
}

func TestAllow_WindowPerKey(t *testing.T) {
	rl, clock := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("U1"), "request %d", i+1)
	}
	assert.False(t, rl.Allow("U1"))
	assert.True(t, rl.Allow("U2"), "keys are limited independently")

	clock.Advance(30 * time.Second)
	assert.False(t, rl.Allow("U1"), "still inside the window")
	assert.Equal(t, 30*time.Second, rl.RetryAfter("U1"))

	clock.Advance(30 * time.Second)
	assert.True(t, rl.Allow("U1"), "window reset")
	assert.Zero(t, rl.RetryAfter("unknown"))
}

func TestAllow_SteadyTrafficStillResets(t *testing.T) {
	rl, clock := newTestLimiter(t, 2)

	// one request every 20s: the window is anchored at its first request
	for i := 0; i < 6; i++ {
		allowed := rl.Allow("U1")
		if i%3 == 2 {
			assert.False(t, allowed, "request %d", i)
		} else {
			assert.True(t, allowed, "request %d", i)
		}
		clock.Advance(20 * time.Second)
	}
}

func TestCleanupStale(t *testing.T) {
	rl, clock := newTestLimiter(t, 10)
	rl.Allow("old")
	clock.Advance(11 * time.Minute)
	rl.Allow("fresh")

	assert.Equal(t, 1, rl.CleanupStale())
	assert.Equal(t, 1, rl.ActiveClients())
}

func TestStopIsIdempotent(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}

func TestMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
		rl.Middleware(func(c echo.Context) string { return c.QueryParam("owner") }))

	do := func(owner string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?owner="+owner, nil))
		return rec
	}

	require.Equal(t, http.StatusOK, do("a").Code)
	rec := do("a")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "61", rec.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, do("b").Code)
}
