package documents

import (
	"context"
	"database/sql"
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

const documentColumns = `id, owner_id, title, original_file_url, file_type, status, extracted_text, created_date, updated_date`

var documentOrderColumns = map[string]string{
	entity.FieldCreatedDate: "created_date",
	"updated_date":          "updated_date",
	"title":                 "LOWER(title)",
	"status":                "status",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var fileType, status string
	if err := row.Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.Title,
		&doc.OriginalFileURL,
		&fileType,
		&status,
		&doc.ExtractedText,
		&doc.CreatedDate,
		&doc.UpdatedDate,
	); err != nil {
		return Document{}, err
	}
	doc.FileType = FileType(fileType)
	doc.Status = Status(status)
	doc.CreatedDate = doc.CreatedDate.UTC()
	doc.UpdatedDate = doc.UpdatedDate.UTC()
	return doc, nil
}

// Create inserts a new document.
func (r *SQLRepo) Create(ctx context.Context, doc Document) (Document, error) {
	if err := validateNew(doc); err != nil {
		return Document{}, err
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	doc.CreatedDate = now
	doc.UpdatedDate = now

	query := r.Dialect.Rebind(`
INSERT INTO documents (` + documentColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.DB.ExecContext(ctx, query,
		doc.ID,
		doc.OwnerID,
		doc.Title,
		doc.OriginalFileURL,
		string(doc.FileType),
		string(doc.Status),
		doc.ExtractedText,
		doc.CreatedDate,
		doc.UpdatedDate,
	)
	if err != nil {
		return Document{}, fmt.Errorf("insert document: %w", err)
	}
	return doc, nil
}

// GetByID fetches a document owned by ownerID.
func (r *SQLRepo) GetByID(ctx context.Context, ownerID, id string) (Document, error) {
	query := r.Dialect.Rebind(`
SELECT ` + documentColumns + `
FROM documents
WHERE owner_id = ? AND id = ?`)
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, ownerID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// List lists the owner's documents filtered and ordered by q.
func (r *SQLRepo) List(ctx context.Context, ownerID string, q Query) ([]Document, error) {
	s := q.Sort.OrElse(entity.NewestFirst)
	orderCol, ok := documentOrderColumns[s.Field]
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
SELECT ` + documentColumns + `
FROM documents
WHERE owner_id = ?`)
	if q.Status != "" {
		sb.WriteString(` AND status = ?`)
		args = append(args, string(q.Status))
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

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// Finalize writes the extraction outcome if the document is still processing.
func (r *SQLRepo) Finalize(ctx context.Context, ownerID, id, text string, status Status) (Document, error) {
	if !status.Terminal() {
		return Document{}, ErrInvalidInput
	}
	query := r.Dialect.Rebind(`
UPDATE documents
SET extracted_text = ?, status = ?, updated_date = ?
WHERE owner_id = ? AND id = ? AND status = 'processing'
RETURNING ` + documentColumns)
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, text, string(status), time.Now().UTC(), ownerID, id))
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("finalize document: %w", err)
	}
	if _, getErr := r.GetByID(ctx, ownerID, id); getErr != nil {
		return Document{}, getErr
	}
	return Document{}, ErrAlreadyFinal
}

// Rename changes a document title.
func (r *SQLRepo) Rename(ctx context.Context, ownerID, id, title string) (Document, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Document{}, ErrInvalidInput
	}
	query := r.Dialect.Rebind(`
UPDATE documents
SET title = ?, updated_date = ?
WHERE owner_id = ? AND id = ?
RETURNING ` + documentColumns)
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, title, time.Now().UTC(), ownerID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("rename document: %w", err)
	}
	return doc, nil
}

// Delete removes a document. Unknown ids are ignored.
func (r *SQLRepo) Delete(ctx context.Context, ownerID, id string) error {
	query := r.Dialect.Rebind(`DELETE FROM documents WHERE owner_id = ? AND id = ?`)
	if _, err := r.DB.ExecContext(ctx, query, ownerID, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Count returns the number of the owner's documents, optionally by status.
func (r *SQLRepo) Count(ctx context.Context, ownerID string, status Status) (int, error) {
	query := `SELECT COUNT(*) FROM documents WHERE owner_id = ?`
	args := []any{ownerID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	var n int
	if err := r.DB.QueryRowContext(ctx, r.Dialect.Rebind(query), args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ClaimGuest reassigns documents owned by a guest to an authenticated owner.
func (r *SQLRepo) ClaimGuest(ctx context.Context, guestOwnerID, ownerID string) (int, error) {
	query := r.Dialect.Rebind(`
UPDATE documents
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
