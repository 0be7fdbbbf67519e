package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"crop-analyze-pipeline/metrics"
)

// Metrics records request counts and latency per endpoint.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status()),
		).Inc()
		metrics.HTTPRequestDurationSeconds.WithLabelValues(endpoint).
			Observe(time.Since(start).Seconds())
	}
}
