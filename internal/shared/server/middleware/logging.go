package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"study-backend/internal/shared/telemetry"
)

// Context keys handlers set so the request log can correlate entities.
const (
	DocumentIDKey       = "documentId"
	QuestionIDKey       = "questionId"
	StatusTransitionKey = "statusTransition"
)

// entityLogFields lists the optional context values copied into request.complete.
var entityLogFields = [...]struct{ key, field string }{
	{userIDKey, "user_id"},
	{DocumentIDKey, "document_id"},
	{QuestionIDKey, "question_id"},
	{StatusTransitionKey, "status_transition"},
}

// Logging writes one request.complete line per request. Server errors log at
// error level and client errors at warn.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       route,
			"status":      status,
			"duration_ms": telemetry.SinceMs(start),
			"bytes":       c.Writer.Size(),
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		for _, f := range entityLogFields {
			if v := c.GetString(f.key); v != "" {
				fields[f.field] = v
			}
		}
		if isGuest, ok := c.Get(isGuestKey); ok {
			fields["is_guest"] = isGuest
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch {
		case status >= http.StatusInternalServerError:
			telemetry.Error("request.complete", fields)
		case status >= http.StatusBadRequest:
			telemetry.Warn("request.complete", fields)
		default:
			telemetry.Info("request.complete", fields)
		}
	}
}
