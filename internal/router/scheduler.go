package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/lts-health/exams-api/internal/config"
	"github.com/lts-health/exams-api/internal/handler/scheduling"
	"github.com/lts-health/exams-api/internal/middleware"
	"github.com/lts-health/exams-api/pkg/metrics"
)

// SchedulerDeps carries what the scheduler API router wires together.
type SchedulerDeps struct {
	Config      *config.Config
	Logger      zerolog.Logger
	Metrics     *metrics.Metrics
	SchedulingH *scheduling.Handler
}

// NewScheduler builds the scheduler API engine. This surface carries no
// bearer auth; access control is the secure identifier plus the
// verify-access check.
func NewScheduler(d SchedulerDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	middleware.RegisterValidators()
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger(d.Logger))
	engine.Use(middleware.Metrics(d.Metrics))
	engine.Use(middleware.CORS())
	engine.Use(middleware.Timeout(d.Config.Server.RequestTimeout))

	if d.Config.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(d.Config.RateLimit.RequestsPerSecond, d.Config.RateLimit.Burst)
		engine.Use(limiter.Middleware())
	}

	engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": "scheduler-api", "status": "running"})
	})
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	root := engine.Group("/")
	d.SchedulingH.RegisterRoutes(root)

	return engine
}
