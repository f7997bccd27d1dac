package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/histavg/internal/domain/dto"
)

// client represents a rate-limited client with request count and window start.
type client struct {
	windowStart time.Time
	count       int
}

// In-memory fixed-window store, keyed by client IP.
// NOTE: per instance only; a shared store is needed behind a load balancer.
var (
	clients         = make(map[string]*client)
	window          = time.Minute
	limit           = 60
	lastSweep       time.Time
	rateLimiterLock sync.Mutex
)

// sweepExpired drops clients whose window has closed. Runs at most once per
// window; the caller holds rateLimiterLock.
func sweepExpired(now time.Time) {
	if now.Sub(lastSweep) <= window {
		return
	}
	for ip, cl := range clients {
		if now.Sub(cl.windowStart) > window {
			delete(clients, ip)
		}
	}
	lastSweep = now
}

// SetRateLimit replaces the per-IP budget and resets all counters.
// A non-positive n or w leaves the current values in place.
func SetRateLimit(n int, w time.Duration) {
	rateLimiterLock.Lock()
	defer rateLimiterLock.Unlock()
	if n > 0 {
		limit = n
	}
	if w > 0 {
		window = w
	}
	clients = make(map[string]*client)
	lastSweep = time.Time{}
}

// RateLimiter limits the number of requests per client IP.
//
// Behavior:
//   - Allows up to `limit` requests per `window` (default: 60 requests per minute).
//   - If the limit is exceeded, responds 429 with the standard error body.
//
// Usage:
//
//	middleware.SetRateLimit(cfg.Server.RateLimitPerMinute, time.Minute)
//	router.Use(middleware.RateLimiter())
func RateLimiter() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		rateLimiterLock.Lock()
		sweepExpired(now)
		cl, ok := clients[ip]
		if !ok || now.Sub(cl.windowStart) > window {
			cl = &client{windowStart: now}
			clients[ip] = cl
		}
		cl.count++
		exceeded := cl.count > limit
		rateLimiterLock.Unlock()

		if exceeded {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse("rate limit exceeded", nil))
			return
		}

		c.Next()
	}
}
