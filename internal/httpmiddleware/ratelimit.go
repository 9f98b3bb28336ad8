package httpmiddleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter enforces a fixed per-IP request cap per minute. Counters
// live in Redis so the limit holds across replicas; when Redis is not
// configured it degrades to an in-process map.
type RateLimiter struct {
	perMinute int
	client    *redis.Client

	mu    sync.Mutex
	local map[string]*window
}

type window struct {
	count int
	start time.Time
}

// NewRateLimiter creates a limiter. client may be nil.
func NewRateLimiter(perMinute int, client *redis.Client) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	return &RateLimiter{
		perMinute: perMinute,
		client:    client,
		local:     make(map[string]*window),
	}
}

// GinMiddleware returns a gin handler enforcing per-IP limits.
func (l *RateLimiter) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.allow(c, ip) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit"})
			return
		}
		c.Next()
	}
}

func (l *RateLimiter) allow(c *gin.Context, ip string) bool {
	if l.client != nil {
		key := fmt.Sprintf("ratelimit:%s:%s", ip, time.Now().Format("200601021504"))
		count, err := l.client.Incr(c.Request.Context(), key).Result()
		if err == nil {
			if count == 1 {
				l.client.Expire(c.Request.Context(), key, time.Minute)
			}
			return count <= int64(l.perMinute)
		}
		// Redis unavailable, fall back to the local window.
	}
	return l.allowLocal(ip)
}

func (l *RateLimiter) allowLocal(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	w, ok := l.local[ip]
	if !ok || now.Sub(w.start) >= time.Minute {
		l.local[ip] = &window{count: 1, start: now}
		return true
	}
	w.count++
	return w.count <= l.perMinute
}
