package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lts-health/exams-api/pkg/metrics"
)

// Metrics records request counts, durations and error counts. Paths are
// labeled by route template so cardinality stays bounded.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		m.RequestTotal.WithLabelValues(method, path, status).Inc()
		m.RequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		if c.Writer.Status() >= 400 {
			errType := "client"
			if c.Writer.Status() >= 500 {
				errType = "server"
			}
			m.ErrorTotal.WithLabelValues(method, path, errType).Inc()
		}
	}
}
