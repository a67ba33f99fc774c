package respond

import (
	"github.com/gin-gonic/gin"

	"study-backend/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// contextLogFields maps gin context keys to the log fields they are reported under.
var contextLogFields = map[string]string{
	"requestId":        "request_id",
	"userId":           "user_id",
	"documentId":       "document_id",
	"questionId":       "question_id",
	"statusTransition": "status_transition",
}

// Error logs an http.error event and aborts with the standard envelope.
func Error(c *gin.Context, status int, code, message string, details any) {
	fields := map[string]any{
		"status":  status,
		"code":    code,
		"message": message,
		"path":    c.Request.URL.Path,
		"method":  c.Request.Method,
	}
	for key, field := range contextLogFields {
		if v := c.GetString(key); v != "" {
			fields[field] = v
		}
	}
	if isGuest, ok := c.Get("isGuest"); ok {
		fields["is_guest"] = isGuest
	}
	if status >= 500 {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}
