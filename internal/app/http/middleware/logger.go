package middleware

import (
	"log/slog"
	"time"

	"realestate-app/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const traceHeader = "X-Trace-ID"

// RequestLogger tags every request with a trace id (taken from X-Trace-ID when
// it is a valid uuid) and stores a logger carrying it in the request context.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(traceHeader)
		if _, err := uuid.Parse(traceID); err != nil {
			traceID = uuid.NewString()
		}
		c.Header(traceHeader, traceID)

		coreLogger := logger.With("trace_id", traceID)
		httpLogger := coreLogger.With(
			"http_method", c.Request.Method,
			"http_path", c.Request.URL.Path,
			"remote_addr", c.ClientIP(),
		)

		c.Request = c.Request.WithContext(logging.WithLogger(c.Request.Context(), coreLogger))
		start := time.Now()
		httpLogger.Debug("request started")

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"status_code", status,
			"bytes_written", c.Writer.Size(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		switch {
		case status >= 500:
			httpLogger.Error("request finished", attrs...)
		case status >= 400:
			httpLogger.Warn("request finished", attrs...)
		default:
			httpLogger.Info("request finished", attrs...)
		}
	}
}
