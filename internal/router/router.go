package router

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/lts-health/exams-api/internal/config"
	"github.com/lts-health/exams-api/internal/handler/analysis"
	"github.com/lts-health/exams-api/internal/handler/audit"
	"github.com/lts-health/exams-api/internal/handler/auth"
	"github.com/lts-health/exams-api/internal/handler/exam"
	"github.com/lts-health/exams-api/internal/handler/health"
	"github.com/lts-health/exams-api/internal/handler/order"
	"github.com/lts-health/exams-api/internal/middleware"
	"github.com/lts-health/exams-api/internal/service/token"
	"github.com/lts-health/exams-api/pkg/metrics"
)

// Handler is anything that can hang its routes off a group.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// Deps carries everything the exams API router wires together.
type Deps struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics
	Tokens    *token.Service
	AuthH     *auth.Handler
	ExamH     *exam.Handler
	AnalysisH *analysis.Handler
	OrderH    *order.Handler
	AuditH    *audit.Handler
	HealthH   *health.Handler
}

// New builds the exams API engine. Token issuance and health are open;
// everything else sits behind bearer auth.
func New(d Deps) *gin.Engine {
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

	open := engine.Group("/")
	d.AuthH.RegisterRoutes(open)
	d.HealthH.RegisterRoutes(open)

	protected := engine.Group("/")
	protected.Use(middleware.Auth(d.Tokens))
	d.AuthH.RegisterProtectedRoutes(protected)
	d.ExamH.RegisterRoutes(protected)
	d.AnalysisH.RegisterRoutes(protected)
	d.OrderH.RegisterRoutes(protected)
	d.AuditH.RegisterRoutes(protected)

	return engine
}
