package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/histavg/internal/logger"
	"github.com/guttosm/histavg/internal/metrics"
)

// RequestLogger is a Gin middleware that logs method, path, status code,
// request latency and request ID, and records the request in the HTTP metrics.
//
// The metrics label is the matched route (c.FullPath()) so that path
// parameters do not explode label cardinality; unmatched requests are
// recorded as "unmatched".
//
// Usage:
//
//	router := gin.New()
//	router.Use(middleware.RequestID(), middleware.RequestLogger())
//
// Example log output:
//
//	{"level":"info","request_id":"123e...","method":"POST","path":"/api/v1/historical-average","status":200,"latency_ms":15,"message":"http_request"}
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTP(method, route, status, latency)

		rid, _ := c.Get(RequestIDKey)

		ev := logger.L().Info()
		if status >= 500 {
			ev = logger.L().Error()
		}
		ev.Str("request_id", toString(rid)).
			Str("method", method).
			Str("path", path).
			Int("status", status).
			Int64("latency_ms", latency.Milliseconds()).
			Str("client_ip", c.ClientIP()).
			Msg("http_request")
	}
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
