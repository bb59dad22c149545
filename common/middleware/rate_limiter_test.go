package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryStore_BurstThenThrottle(t *testing.T) {
	store := NewMemoryStore(100, 15*time.Minute)
	frozen := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return frozen }

	for i := 1; i <= 100; i++ {
		res, err := store.Allow(context.Background(), "10.0.0.1")
		require.NoError(t, err)
		require.True(t, res.Allowed, "request %d should pass", i)
		assert.Equal(t, 100-i, res.Remaining)
	}

	res, err := store.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 15*time.Minute, res.Reset)

	other, err := store.Allow(context.Background(), "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "limits are per key")
}

func TestMemoryStore_ResetsAfterWindow(t *testing.T) {
	store := NewMemoryStore(2, time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		res, _ := store.Allow(context.Background(), "ip")
		require.True(t, res.Allowed)
	}

	now = now.Add(59 * time.Second)
	res, _ := store.Allow(context.Background(), "ip")
	require.False(t, res.Allowed, "no slot frees up before the window ends")
	assert.Equal(t, time.Second, res.Reset)

	now = now.Add(time.Second)
	res, _ = store.Allow(context.Background(), "ip")
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)
	assert.Equal(t, time.Minute, res.Reset)
}

func TestMemoryStore_PacedTrafficCappedPerWindow(t *testing.T) {
	store := NewMemoryStore(100, 15*time.Minute)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now := start
	store.now = func() time.Time { return now }

	allowed := 0
	for now.Sub(start) < 14*time.Minute {
		res, err := store.Allow(context.Background(), "10.0.0.9")
		require.NoError(t, err)
		if res.Allowed {
			allowed++
		}
		now = now.Add(5 * time.Second)
	}

	assert.Equal(t, 100, allowed)
}

func TestMemoryStore_Sweep(t *testing.T) {
	store := NewMemoryStore(10, time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	_, _ = store.Allow(context.Background(), "a")
	now = now.Add(45 * time.Second)
	_, _ = store.Allow(context.Background(), "b")
	require.Equal(t, 2, store.Len())

	now = now.Add(30 * time.Second)
	store.Sweep()
	assert.Equal(t, 1, store.Len())
}

// ---- fake redis counter ----

type fakeRedis struct {
	mu         sync.Mutex
	counts     map[string]int64
	ttls       map[string]time.Duration
	incrErr    error
	pexpireErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrErr != nil {
		return redis.NewIntResult(0, f.incrErr)
	}
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeRedis) PExpire(_ context.Context, key string, d time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pexpireErr != nil {
		return redis.NewBoolResult(false, f.pexpireErr)
	}
	f.ttls[key] = d
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) PTTL(_ context.Context, key string) *redis.DurationCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.ttls[key]
	if !ok {
		return redis.NewDurationResult(-1, nil)
	}
	return redis.NewDurationResult(d, nil)
}

func TestRedisStore_FixedWindow(t *testing.T) {
	fake := newFakeRedis()
	store := NewRedisStore(fake, "rl:payments:", 3, time.Minute)

	for i := 1; i <= 3; i++ {
		res, err := store.Allow(context.Background(), "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 3-i, res.Remaining)
	}

	res, err := store.Allow(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Minute, res.Reset)
	assert.Equal(t, time.Minute, fake.ttls["rl:payments:1.2.3.4"])
}

func TestRedisStore_RetriesExpireAfterFailure(t *testing.T) {
	fake := newFakeRedis()
	fake.pexpireErr = errors.New("timeout")
	store := NewRedisStore(fake, "rl:", 3, time.Minute)

	for i := 0; i < 5; i++ {
		_, err := store.Allow(context.Background(), "ip")
		assert.ErrorContains(t, err, "rate limit expire rl:ip: timeout")
	}
	_, hasTTL := fake.ttls["rl:ip"]
	require.False(t, hasTTL)

	fake.pexpireErr = nil
	res, err := store.Allow(context.Background(), "ip")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Minute, res.Reset)
	assert.Equal(t, time.Minute, fake.ttls["rl:ip"], "key without a TTL gets the window on the next request")
}

func TestRedisStore_IncrError(t *testing.T) {
	fake := newFakeRedis()
	fake.incrErr = errors.New("connection refused")
	store := NewRedisStore(fake, "rl:", 3, time.Minute)

	_, err := store.Allow(context.Background(), "ip")
	assert.ErrorContains(t, err, "connection refused")
}

// ---- middleware ----

type erroringStore struct{}

func (erroringStore) Allow(context.Context, string) (RateLimitResult, error) {
	return RateLimitResult{}, errors.New("redis down")
}

func setupLimitedRouter(store RateLimitStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitMiddleware(store, zap.NewNop()))
	r.POST("/pay", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	return r
}

func TestRateLimitMiddleware_Throttles(t *testing.T) {
	r := setupLimitedRouter(NewMemoryStore(2, time.Minute))

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/pay", nil)
		req.RemoteAddr = "192.0.2.10:5555"
		last = httptest.NewRecorder()
		r.ServeHTTP(last, req)
		codes = append(codes, last.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, "2", last.Header().Get("RateLimit-Limit"))
	assert.Equal(t, "0", last.Header().Get("RateLimit-Remaining"))
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"Too many payment attempts, please try again later."}`, last.Body.String())
}

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	r := setupLimitedRouter(erroringStore{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/pay", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("RateLimit-Limit"))
}
