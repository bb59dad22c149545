package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	apperrors "checkout-service/common/errors"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitResult describes the caller's position in the current window.
type RateLimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Duration
}

// RateLimitStore decides whether one more request from key is allowed.
type RateLimitStore interface {
	Allow(ctx context.Context, key string) (RateLimitResult, error)
}

type windowEntry struct {
	count       int
	windowStart time.Time
}

// MemoryStore keeps a fixed-window counter per key. The counter resets once a
// full window has passed since the key's first request in that window.
type MemoryStore struct {
	ips    map[string]*windowEntry
	mu     sync.Mutex
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewMemoryStore creates an in-process store. Entries whose window has
// expired are removed by Sweep.
func NewMemoryStore(limit int, window time.Duration) *MemoryStore {
	return &MemoryStore{
		ips:    make(map[string]*windowEntry),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow implements RateLimitStore.
func (s *MemoryStore) Allow(_ context.Context, key string) (RateLimitResult, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.ips[key]
	if !exists || now.Sub(entry.windowStart) >= s.window {
		entry = &windowEntry{windowStart: now}
		s.ips[key] = entry
	}
	entry.count++

	remaining := s.limit - entry.count
	if remaining < 0 {
		remaining = 0
	}

	return RateLimitResult{
		Allowed:   entry.count <= s.limit,
		Limit:     s.limit,
		Remaining: remaining,
		Reset:     entry.windowStart.Add(s.window).Sub(now),
	}, nil
}

// Sweep drops entries whose window has ended.
func (s *MemoryStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for ip, e := range s.ips {
		if now.Sub(e.windowStart) >= s.window {
			delete(s.ips, ip)
		}
	}
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ips)
}

// StartSweeper runs Sweep every window until ctx is done.
func (s *MemoryStore) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

// RedisCounter is the subset of the redis client used by RedisStore.
type RedisCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	PExpire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	PTTL(ctx context.Context, key string) *redis.DurationCmd
}

// RedisStore is a fixed-window counter shared by every replica.
type RedisStore struct {
	client RedisCounter
	prefix string
	limit  int
	window time.Duration
}

// NewRedisStore creates a fixed-window store on top of a redis client.
func NewRedisStore(client RedisCounter, prefix string, limit int, window time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, limit: limit, window: window}
}

// Allow implements RateLimitStore.
func (s *RedisStore) Allow(ctx context.Context, key string) (RateLimitResult, error) {
	k := s.prefix + key

	count, err := s.client.Incr(ctx, k).Result()
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("rate limit incr %s: %w", k, err)
	}

	// A key without a TTL is either new or left behind by a failed PEXPIRE.
	// Both get the window applied here, so a counter can never outlive it.
	reset, err := s.client.PTTL(ctx, k).Result()
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("rate limit ttl %s: %w", k, err)
	}
	if reset < 0 {
		if err := s.client.PExpire(ctx, k, s.window).Err(); err != nil {
			return RateLimitResult{}, fmt.Errorf("rate limit expire %s: %w", k, err)
		}
		reset = s.window
	}

	remaining := s.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return RateLimitResult{
		Allowed:   count <= int64(s.limit),
		Limit:     s.limit,
		Remaining: remaining,
		Reset:     reset,
	}, nil
}

// RateLimitMiddleware throttles requests per client IP. Store errors are
// logged and the request is let through.
func RateLimitMiddleware(store RateLimitStore, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		res, err := store.Allow(c.Request.Context(), ip)
		if err != nil {
			log.Warn("Rate limit store unavailable", zap.String("ip", ip), zap.Error(err))
			c.Next()
			return
		}

		c.Header("RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("RateLimit-Reset", strconv.Itoa(int(math.Ceil(res.Reset.Seconds()))))

		if !res.Allowed {
			log.Warn("Rate limit exceeded", zap.String("ip", ip), zap.String("path", c.Request.URL.Path))
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.Reset.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apperrors.ErrTooManyRequests.Body(false))
			return
		}
		c.Next()
	}
}
