package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gowatch/internal/pkg/cache"
	"gowatch/internal/pkg/middleware"
	"gowatch/internal/pkg/ratelimit"
)

var windowStart = time.Unix(1_700_000_040, 0)

func limitedHandler(store cache.Client, policy ratelimit.Policy, key middleware.KeyFunc, now func() time.Time, hits *atomic.Int64) http.Handler {
	limiter := ratelimit.NewLimiter(store, time.Second, now, quietLogger(), nil)
	return middleware.RateLimit(limiter, policy, key, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRateLimit_HeadersAndDenial(t *testing.T) {
	now := windowStart
	clock := func() time.Time { return now }
	store := cache.NewMemoryClientWithClock(clock)
	var hits atomic.Int64
	h := limitedHandler(store, ratelimit.Policy{Action: "login", Limit: 5, Window: time.Minute}, middleware.ByIP(), clock, &hits)

	reset := strconv.FormatInt(windowStart.Unix()+60, 10)
	for i, want := range []string{"4", "3", "2", "1", "0"} {
		now = windowStart.Add(time.Duration(i) * time.Second)
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
		req.RemoteAddr = "203.0.113.9:54321"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, want, rec.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, reset, rec.Header().Get("X-RateLimit-Reset"))
	}

	now = windowStart.Add(5 * time.Second)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
	req.RemoteAddr = "203.0.113.9:54321"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, reset, rec.Header().Get("X-RateLimit-Reset"))
	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Equal(t, 55, retry)
	assert.LessOrEqual(t, retry, 60)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, rec).Code)
	assert.Equal(t, int64(5), hits.Load())
}

func TestRateLimit_FailOpenStillAdmits(t *testing.T) {
	store := cache.NewMemoryClient()
	store.SetFailure(errors.New("redis down"))
	var hits atomic.Int64
	h := limitedHandler(store, ratelimit.Policy{Action: "login", Limit: 1, Window: time.Minute}, middleware.ByIP(), nil, &hits)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))
	}
	assert.Equal(t, int64(3), hits.Load())
}

func TestByIdentityOrIP(t *testing.T) {
	tokens := newTokens(t)
	tok, err := tokens.Issue("U@Test.com")
	require.NoError(t, err)
	key := middleware.ByIdentityOrIP(tokens)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:1234"
	assert.Equal(t, "198.51.100.7", key(req))

	req.Header.Set("Authorization", "Bearer "+tok)
	assert.Equal(t, "u@test.com", key(req))

	req.Header.Set("Authorization", "Bearer adulterado")
	assert.Equal(t, "198.51.100.7", key(req))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", middleware.ClientIP(req))

	req.RemoteAddr = "10.1.1.1"
	assert.Equal(t, "10.1.1.1", middleware.ClientIP(req))
}

func TestRateLimit_PerIdentityBudgets(t *testing.T) {
	tokens := newTokens(t)
	alice, _ := tokens.Issue("alice@test.com")
	bob, _ := tokens.Issue("bob@test.com")
	store := cache.NewMemoryClient()
	var hits atomic.Int64
	h := limitedHandler(store, ratelimit.Policy{Action: "watchlist_write", Limit: 1, Window: time.Minute},
		middleware.ByIdentityOrIP(tokens), nil, &hits)

	send := func(tok string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "192.0.2.1:1000" // mesmo NAT
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send(alice))
	assert.Equal(t, http.StatusOK, send(bob))
	assert.Equal(t, http.StatusTooManyRequests, send(alice))
}
