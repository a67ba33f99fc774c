package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"study-backend/internal/shared/server/respond"
	"study-backend/internal/shared/telemetry"
)

// Recovery turns handler panics into a 500 envelope unless a response is already written.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			fields := map[string]any{
				"request_id": RequestIDFromContext(c),
				"error":      rec,
				"stack":      string(debug.Stack()),
				"path":       c.Request.URL.Path,
				"method":     c.Request.Method,
				"user_id":    UserIDFromContext(c),
			}
			if id := c.GetString(DocumentIDKey); id != "" {
				fields["document_id"] = id
			}
			if id := c.GetString(QuestionIDKey); id != "" {
				fields["question_id"] = id
			}
			telemetry.Error("panic", fields)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal_error", "unexpected server error", nil)
		}()
		c.Next()
	}
}
