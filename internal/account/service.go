package account

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"study-backend/internal/documents"
	"study-backend/internal/questions"
	"study-backend/internal/shared/storage/db"
	"study-backend/internal/shared/telemetry"
)

type Service struct {
	Docs      documents.Repo
	Questions questions.Repo
	// DB, when set, moves both collections in one transaction.
	DB      *sql.DB
	Dialect db.Dialect
}

type ClaimResult struct {
	MigratedDocuments int `json:"migratedDocuments"`
	MigratedQuestions int `json:"migratedQuestions"`
}

func NewService(docs documents.Repo, qs questions.Repo) *Service {
	return &Service{Docs: docs, Questions: qs}
}

// WithDB enables transactional claims against a shared SQL database.
func (s *Service) WithDB(sqlDB *sql.DB, dialect db.Dialect) *Service {
	s.DB = sqlDB
	s.Dialect = dialect
	return s
}

// ClaimGuest moves everything owned by a guest identity to a signed-in user.
func (s *Service) ClaimGuest(ctx context.Context, guestOwnerID, ownerID string) (ClaimResult, error) {
	if strings.TrimSpace(guestOwnerID) == "" || strings.TrimSpace(ownerID) == "" {
		return ClaimResult{}, errors.New("guestOwnerID and ownerID are required")
	}

	var (
		res ClaimResult
		err error
	)
	if s.DB != nil {
		res, err = s.claimWithTx(ctx, guestOwnerID, ownerID)
	} else {
		res, err = s.claimEach(ctx, guestOwnerID, ownerID)
	}
	if err != nil {
		return ClaimResult{}, err
	}
	telemetry.Info("account.claim_guest", map[string]any{
		"guest_owner_id":     guestOwnerID,
		"owner_id":           ownerID,
		"migrated_documents": res.MigratedDocuments,
		"migrated_questions": res.MigratedQuestions,
	})
	return res, nil
}

func (s *Service) claimWithTx(ctx context.Context, guestOwnerID, ownerID string) (ClaimResult, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return ClaimResult{}, err
	}
	defer tx.Rollback()

	docRes, err := tx.ExecContext(ctx, s.Dialect.Rebind(`UPDATE documents SET owner_id = ? WHERE owner_id = ?`), ownerID, guestOwnerID)
	if err != nil {
		return ClaimResult{}, err
	}
	docCount, _ := docRes.RowsAffected()

	questionRes, err := tx.ExecContext(ctx, s.Dialect.Rebind(`UPDATE questions SET owner_id = ? WHERE owner_id = ?`), ownerID, guestOwnerID)
	if err != nil {
		return ClaimResult{}, err
	}
	questionCount, _ := questionRes.RowsAffected()

	if err := tx.Commit(); err != nil {
		return ClaimResult{}, err
	}
	return ClaimResult{MigratedDocuments: int(docCount), MigratedQuestions: int(questionCount)}, nil
}

func (s *Service) claimEach(ctx context.Context, guestOwnerID, ownerID string) (ClaimResult, error) {
	docCount, err := s.Docs.ClaimGuest(ctx, guestOwnerID, ownerID)
	if err != nil {
		return ClaimResult{}, err
	}
	questionCount, err := s.Questions.ClaimGuest(ctx, guestOwnerID, ownerID)
	if err != nil {
		return ClaimResult{}, err
	}
	return ClaimResult{MigratedDocuments: docCount, MigratedQuestions: questionCount}, nil
}
