package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/histavg/internal/metrics"
	"github.com/guttosm/histavg/internal/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RouterOptions tunes the shared middlewares.
type RouterOptions struct {
	RequestTimeout     time.Duration // deadline for every request context; 0 disables
	RateLimitPerMinute int           // per client IP; 0 keeps the middleware default
}

// NewRouter creates a Gin engine with routes configured.
// It receives a Handler instance with all business logic already injected.
//
// Responsibilities:
//   - Registers global middlewares (RequestID, Logger, Recovery, ErrorHandler).
//   - Rate-limits and time-bounds the adapter routes.
//   - Mounts Prometheus metrics (/metrics) and Swagger docs (/swagger/*any).
//   - Configures API v1 routes (/api/v1).
//
// Note:
//   - Health and readiness endpoints (/healthz, /readyz) are registered in app.InitializeApp().
func NewRouter(handler *Handler, opts RouterOptions) *gin.Engine {
	router := gin.New()

	// ─── Middlewares ───────────────────────────────
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.RecoveryMiddleware(),
		middleware.ErrorHandler,
	)

	// ─── Observability ─────────────────────────────
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// ─── API v1 ───────────────────────────────────
	middleware.SetRateLimit(opts.RateLimitPerMinute, time.Minute)
	v1 := router.Group("/api/v1", middleware.RateLimiter(), middleware.Timeout(opts.RequestTimeout))
	{
		v1.POST("/historical-average", handler.HistoricalAverage)
		v1.POST("/tvl", handler.TVL)
	}

	return router
}
