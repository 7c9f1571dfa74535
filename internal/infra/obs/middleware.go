package obs

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Middleware struct {
	Logger  *slog.Logger
	Metrics *Metrics
}

func (m Middleware) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		ctx := context.WithValue(c.Request.Context(), requestIDKey{}, id)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Set("request_id", id)
		c.Next()
	}
}

// LoggerMiddleware logs every request and records it in the HTTP metrics when
// they are configured.
func (m Middleware) LoggerMiddleware() gin.HandlerFunc {
	log := m.Logger
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		took := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if m.Metrics != nil {
			m.Metrics.ObserveHTTP(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), took)
		}
		if log == nil {
			return
		}
		attrs := []any{
			"method", c.Request.Method,
			"path", route,
			"status", c.Writer.Status(),
			"duration", took,
			"request_id", c.GetString("request_id"),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.Last().Err)
		}
		if c.Writer.Status() >= 500 {
			log.ErrorContext(c.Request.Context(), "http", attrs...)
			return
		}
		log.InfoContext(c.Request.Context(), "http", attrs...)
	}
}

type requestIDKey struct{}

func RequestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDKey{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
