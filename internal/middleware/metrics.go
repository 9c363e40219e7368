package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/class-attendance-api/internal/service"
)

const unmatchedRoute = "unmatched"

// Metrics records latency and status for every request. Degraded responses
// are counted separately per route since they answer 200.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
		if IsDegraded(c) {
			metricsSvc.RecordDegraded(route)
		}
	}
}
