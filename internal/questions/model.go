package questions

import (
	"strings"
	"time"

	"study-backend/internal/shared/entity"
)

// Confidence is the model's self-reported certainty about an answer.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ConfidenceValues lists the accepted confidence values in schema order.
var ConfidenceValues = []string{string(ConfidenceHigh), string(ConfidenceMedium), string(ConfidenceLow)}

// ParseConfidence maps raw model output onto a Confidence. Unknown values report false.
func ParseConfidence(raw string) (Confidence, bool) {
	switch c := Confidence(strings.ToLower(strings.TrimSpace(raw))); c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return c, true
	}
	return "", false
}

// Question is a persisted question/answer pair.
type Question struct {
	ID           string
	OwnerID      string
	QuestionText string
	// ContextUsed is a truncated snapshot of the context at ask time.
	ContextUsed string
	AIAnswer    string
	Confidence  Confidence
	// DocumentIDs records provenance only; the documents may be gone.
	DocumentIDs []string
	CreatedDate time.Time
}

// Query filters and orders question history.
type Query struct {
	// Search matches question or answer text, case-insensitively.
	Search string
	Sort   entity.Sort
	Limit  int
}

// SortFields lists the fields history may be ordered by.
var SortFields = []string{entity.FieldCreatedDate, "question_text"}

// DayGroup holds the questions asked on one UTC day.
type DayGroup struct {
	Date      string
	Questions []Question
}
