package questions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"study-backend/internal/shared/entity"
	"study-backend/internal/shared/storage/db"
)

// SQLRepo implements Repo on Postgres or SQLite.
type SQLRepo struct {
	DB      *sql.DB
	Dialect db.Dialect
}

const questionColumns = `id, owner_id, question_text, context_used, ai_answer, confidence, document_ids, created_date`

var questionOrderColumns = map[string]string{
	entity.FieldCreatedDate: "created_date",
	"question_text":         "LOWER(question_text)",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (Question, error) {
	var q Question
	var confidence, documentIDs string
	if err := row.Scan(
		&q.ID,
		&q.OwnerID,
		&q.QuestionText,
		&q.ContextUsed,
		&q.AIAnswer,
		&confidence,
		&documentIDs,
		&q.CreatedDate,
	); err != nil {
		return Question{}, err
	}
	q.Confidence = Confidence(confidence)
	q.CreatedDate = q.CreatedDate.UTC()
	q.DocumentIDs = []string{}
	if documentIDs != "" {
		if err := json.Unmarshal([]byte(documentIDs), &q.DocumentIDs); err != nil {
			return Question{}, fmt.Errorf("decode document_ids: %w", err)
		}
	}
	return q, nil
}

func (r *SQLRepo) Create(ctx context.Context, q Question) (Question, error) {
	if err := validateNew(q); err != nil {
		return Question{}, err
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.DocumentIDs == nil {
		q.DocumentIDs = []string{}
	}
	ids, err := json.Marshal(q.DocumentIDs)
	if err != nil {
		return Question{}, fmt.Errorf("encode document_ids: %w", err)
	}
	q.CreatedDate = time.Now().UTC()

	query := r.Dialect.Rebind(`
INSERT INTO questions (` + questionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = r.DB.ExecContext(ctx, query,
		q.ID,
		q.OwnerID,
		q.QuestionText,
		q.ContextUsed,
		q.AIAnswer,
		string(q.Confidence),
		string(ids),
		q.CreatedDate,
	)
	if err != nil {
		return Question{}, fmt.Errorf("insert question: %w", err)
	}
	return q, nil
}

func (r *SQLRepo) GetByID(ctx context.Context, ownerID, id string) (Question, error) {
	query := r.Dialect.Rebind(`
SELECT ` + questionColumns + `
FROM questions
WHERE owner_id = ? AND id = ?`)
	q, err := scanQuestion(r.DB.QueryRowContext(ctx, query, ownerID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Question{}, ErrNotFound
		}
		return Question{}, err
	}
	return q, nil
}

func (r *SQLRepo) List(ctx context.Context, ownerID string, q Query) ([]Question, error) {
	s := q.Sort.OrElse(entity.NewestFirst)
	orderCol, ok := questionOrderColumns[s.Field]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entity.ErrInvalidSort, s.Field)
	}
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}

	var sb strings.Builder
	args := []any{ownerID}
	sb.WriteString(`
SELECT ` + questionColumns + `
FROM questions
WHERE owner_id = ?`)
	if needle := strings.ToLower(strings.TrimSpace(q.Search)); needle != "" {
		pattern := "%" + likeEscaper.Replace(needle) + "%"
		sb.WriteString(` AND (LOWER(question_text) LIKE ? ESCAPE '\' OR LOWER(ai_answer) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	sb.WriteString(fmt.Sprintf(`
ORDER BY %s %s, id %s`, orderCol, dir, dir))
	if q.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}

	rows, err := r.DB.QueryContext(ctx, r.Dialect.Rebind(sb.String()), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Question{}
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, question)
	}
	return out, rows.Err()
}

func (r *SQLRepo) Delete(ctx context.Context, ownerID, id string) error {
	query := r.Dialect.Rebind(`DELETE FROM questions WHERE owner_id = ? AND id = ?`)
	if _, err := r.DB.ExecContext(ctx, query, ownerID, id); err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	return nil
}

func (r *SQLRepo) Count(ctx context.Context, ownerID string) (int, error) {
	var n int
	query := r.Dialect.Rebind(`SELECT COUNT(*) FROM questions WHERE owner_id = ?`)
	if err := r.DB.QueryRowContext(ctx, query, ownerID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *SQLRepo) ClaimGuest(ctx context.Context, guestOwnerID, ownerID string) (int, error) {
	query := r.Dialect.Rebind(`
UPDATE questions
SET owner_id = ?
WHERE owner_id = ?`)
	res, err := r.DB.ExecContext(ctx, query, ownerID, guestOwnerID)
	if err != nil {
		return 0, err
	}
	updated, _ := res.RowsAffected()
	return int(updated), nil
}

var _ Repo = (*SQLRepo)(nil)
