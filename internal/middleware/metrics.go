package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"antigravity2api-go/internal/httpformat"
	"antigravity2api-go/internal/monitoring"
)

// Metrics tracks per-route counters and a latency histogram, labelled
// by the client surface the route serves.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		monitoring.HTTPInFlight.Inc()
		c.Next()
		monitoring.HTTPInFlight.Dec()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		surface := string(httpformat.DetectFromContext(c))
		cls := monitoring.StatusClass(c.Writer.Status())
		durSec := time.Since(start).Seconds()

		monitoring.HTTPRequestsTotal.WithLabelValues(surface, c.Request.Method, path, cls).Inc()
		monitoring.HTTPRequestDuration.WithLabelValues(surface, c.Request.Method, path, cls).Observe(durSec)
	}
}
