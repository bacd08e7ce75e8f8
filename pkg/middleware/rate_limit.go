package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"tutorial-blog/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware allows limit requests per window for each requester
// (user id when authenticated, client IP otherwise) and route. With a Redis
// client it counts in a shared fixed window; without one it falls back to a
// per-process token bucket. Rejected requests get a JSON 429.
func RateLimitMiddleware(redisClient *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return RateLimitWithRejection(redisClient, limit, window, rejectJSON)
}

// RateLimitWithRejection is RateLimitMiddleware with a custom response for
// rejected requests. reject must write the response; the chain is aborted
// after it returns.
func RateLimitWithRejection(redisClient *redis.Client, limit int, window time.Duration, reject gin.HandlerFunc) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if redisClient == nil {
		return memoryRateLimit(newLimiterStore(limit, window, time.Now), reject)
	}

	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:%s:%s", c.FullPath(), requesterKey(c))

		ctx := c.Request.Context()
		count, err := redisClient.Incr(ctx, key).Result()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
			return
		}

		if count == 1 {
			redisClient.Expire(ctx, key, window)
		}

		if count > int64(limit) {
			metrics.RateLimitRejected.WithLabelValues("redis").Inc()
			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			reject(c)
			c.Abort()
			return
		}

		metrics.RateLimitAllowed.WithLabelValues("redis").Inc()
		c.Next()
	}
}

func rejectJSON(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
}

func memoryRateLimit(store *limiterStore, reject gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.FullPath() + ":" + requesterKey(c)
		if !store.allow(key) {
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			c.Header("Retry-After", "1")
			reject(c)
			c.Abort()
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore keeps one token bucket per key. A bucket untouched for a whole
// window has refilled to its burst, so it is dropped on the next sweep.
type limiterStore struct {
	mu        sync.Mutex
	entries   map[string]*limiterEntry
	every     rate.Limit
	burst     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newLimiterStore(limit int, window time.Duration, now func() time.Time) *limiterStore {
	return &limiterStore{
		entries:   make(map[string]*limiterEntry),
		every:     rate.Every(window / time.Duration(limit)),
		burst:     limit,
		window:    window,
		lastSweep: now(),
		now:       now,
	}
}

func (s *limiterStore) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.window {
		s.sweep(now)
	}

	entry, ok := s.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(s.every, s.burst)}
		s.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (s *limiterStore) sweep(now time.Time) {
	for key, entry := range s.entries {
		if now.Sub(entry.lastSeen) >= s.window {
			delete(s.entries, key)
		}
	}
	s.lastSweep = now
}

func requesterKey(c *gin.Context) string {
	if identity, ok := CurrentUser(c); ok {
		return "user:" + identity.UserID
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}
