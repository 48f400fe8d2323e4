package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/padma-edu/timetable-api/internal/service"
)

// Metrics records duration and status for every request. Requests that miss
// all routes are bucketed under a single label to keep cardinality bounded.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}

		start := time.Now()
		defer func() {
			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
		}()

		c.Next()
	}
}
