package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handler struct {
	databases map[string]*sqlx.DB
}

// NewHandler takes every database the readiness probe must see alive,
// keyed by a display name.
func NewHandler(databases map[string]*sqlx.DB) *Handler {
	return &Handler{databases: databases}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.Live)
		health.GET("/ready", h.Ready)
		health.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

func (h *Handler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready pings every database and reports per-database state. Any
// failure turns the whole probe 503.
func (h *Handler) Ready(c *gin.Context) {
	status := http.StatusOK
	checks := make(map[string]string, len(h.databases))
	for name, db := range h.databases {
		if err := db.PingContext(c.Request.Context()); err != nil {
			checks[name] = "unreachable"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	c.JSON(status, gin.H{"databases": checks})
}
