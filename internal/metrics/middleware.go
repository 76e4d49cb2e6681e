package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/debtcheck/debtcheck/internal/logging"
)

// Middleware instruments every request with latency, count and in-flight
// metrics. Scrapes of /metrics itself are not recorded.
func Middleware(m *Metrics, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		m.IncHTTPRequestsInFlight()

		defer func() {
			m.DecHTTPRequestsInFlight()

			status := strconv.Itoa(c.Writer.Status())
			endpoint := endpointLabel(c)
			m.RecordRequestLatency(endpoint, c.Request.Method, status, time.Since(start).Seconds())
			m.RecordHTTPRequest(endpoint, c.Request.Method, status)

			if len(c.Errors) > 0 {
				logger.ErrorWithContext(c.Request.Context(), "request error", "error", c.Errors.String())
			}
		}()

		c.Next()
	}
}

// endpointLabel prefers the route template over the raw path so label
// cardinality stays bounded for parameterized routes.
func endpointLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return c.Request.URL.Path
}
