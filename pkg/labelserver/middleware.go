package labelserver

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger returns a middleware that logs every request at info level.
//
// RequestLogger 返回以 info 级别记录每个请求的中间件。
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		logger.Info("request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client", c.ClientIP(),
		)
	}
}

// writeCacheHeaders adds the label cache counters to the response headers.
// It must run before the body is written.
//
// writeCacheHeaders 把标签缓存计数写入响应头，必须在写出响应体之前调用。
func writeCacheHeaders(c *gin.Context, stats CacheStats) {
	ratio := 0.0
	if total := stats.Hits + stats.Misses; total > 0 {
		ratio = float64(stats.Hits) / float64(total)
	}
	c.Header("X-Label-Cache-Hits", fmt.Sprintf("%d", stats.Hits))
	c.Header("X-Label-Cache-Misses", fmt.Sprintf("%d", stats.Misses))
	c.Header("X-Label-Cache-Hit-Ratio", fmt.Sprintf("%.2f", ratio))
	c.Header("X-Label-Cache-Entries", fmt.Sprintf("%d", stats.Entries))
}
