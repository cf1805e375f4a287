package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	awspkg "github.com/nathangtg/coffee-single-tenant-sub000/pkg/aws"
)

const metricsFlushTimeout = 5 * time.Second

// MetricsMiddleware reports request count, latency and error classes to
// CloudWatch per route template. Sends happen off the request goroutine.
func MetricsMiddleware(metrics *awspkg.MetricsClient, serviceName string) gin.HandlerFunc {
	if !metrics.IsEnabled() {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		elapsed := time.Since(start)
		class := statusClass(c.Writer.Status())
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		dims := map[string]string{
			"Service": serviceName,
			"Method":  c.Request.Method,
			"Route":   route,
			"Status":  class,
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), metricsFlushTimeout)
			defer cancel()
			_ = metrics.RecordCount(ctx, awspkg.MetricHTTPRequests, dims)
			_ = metrics.RecordLatency(ctx, awspkg.MetricHTTPLatency, elapsed, dims)
			switch class {
			case "5xx":
				_ = metrics.RecordCount(ctx, awspkg.MetricHTTP5xx, dims)
			case "4xx":
				_ = metrics.RecordCount(ctx, awspkg.MetricHTTP4xx, dims)
			}
		}()
	}
}
