package http

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"carebook/backend/internal/metrics"
)

// RequestTimeout attaches a default deadline to every request that arrives
// without one, so a stalled store round trip cannot hold a handler forever.
func RequestTimeout(timeout time.Duration) gin.HandlerFunc {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if _, ok := ctx.Deadline(); ok {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func Metrics(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		collector.RequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		collector.RequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}
