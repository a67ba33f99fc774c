package questions

import (
	"context"
	"strings"
)

// Repo persists questions. Questions are immutable once created.
type Repo interface {
	Create(ctx context.Context, q Question) (Question, error)
	GetByID(ctx context.Context, ownerID, id string) (Question, error)
	List(ctx context.Context, ownerID string, q Query) ([]Question, error)
	// Delete is a no-op for unknown ids.
	Delete(ctx context.Context, ownerID, id string) error
	Count(ctx context.Context, ownerID string) (int, error)
	ClaimGuest(ctx context.Context, guestOwnerID, ownerID string) (int, error)
}

// validateNew enforces that a question is never stored without its text and answer.
func validateNew(q Question) error {
	if strings.TrimSpace(q.OwnerID) == "" {
		return ErrInvalidInput
	}
	if strings.TrimSpace(q.QuestionText) == "" || strings.TrimSpace(q.AIAnswer) == "" {
		return ErrInvalidInput
	}
	if q.Confidence != "" {
		if _, ok := ParseConfidence(string(q.Confidence)); !ok {
			return ErrInvalidInput
		}
	}
	return nil
}
