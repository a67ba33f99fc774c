package documents

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"study-backend/internal/shared/entity"
	"study-backend/internal/shared/storage/db"
)

var docCols = []string{"id", "owner_id", "title", "original_file_url", "file_type", "status", "extracted_text", "created_date", "updated_date"}

func newSQLRepo(t *testing.T, dialect db.Dialect) (*SQLRepo, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &SQLRepo{DB: conn, Dialect: dialect}, mock
}

func TestSQLRepoCreate(t *testing.T) {
	repo, mock := newSQLRepo(t, db.Postgres)
	doc := Document{
		OwnerID:         "u1",
		Title:           "notes.pdf",
		OriginalFileURL: "http://files/notes.pdf",
		FileType:        FileTypePDF,
		Status:          StatusProcessing,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents")).
		WithArgs(sqlmock.AnyArg(), "u1", "notes.pdf", "http://files/notes.pdf", "pdf", "processing", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	created, err := repo.Create(context.Background(), doc)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" || created.CreatedDate.IsZero() {
		t.Fatalf("expected id and dates, got %+v", created)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestSQLRepoFinalizeOnlyFromProcessing(t *testing.T) {
	repo, mock := newSQLRepo(t, db.Postgres)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE owner_id = $4 AND id = $5 AND status = 'processing'")).
		WithArgs("Hello world", "completed", sqlmock.AnyArg(), "u1", "d1").
		WillReturnRows(sqlmock.NewRows(docCols).
			AddRow("d1", "u1", "notes.pdf", "http://files/notes.pdf", "pdf", "completed", "Hello world", now, now))

	doc, err := repo.Finalize(context.Background(), "u1", "d1", "Hello world", StatusCompleted)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if doc.Status != StatusCompleted || doc.ExtractedText != "Hello world" {
		t.Fatalf("unexpected document %+v", doc)
	}

	// Second finalize: the guarded update matches nothing, the row still exists.
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE documents")).
		WithArgs("", "failed", sqlmock.AnyArg(), "u1", "d1").
		WillReturnRows(sqlmock.NewRows(docCols))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner_id")).
		WithArgs("u1", "d1").
		WillReturnRows(sqlmock.NewRows(docCols).
			AddRow("d1", "u1", "notes.pdf", "http://files/notes.pdf", "pdf", "completed", "Hello world", now, now))

	if _, err := repo.Finalize(context.Background(), "u1", "d1", "", StatusFailed); !errors.Is(err, ErrAlreadyFinal) {
		t.Fatalf("expected ErrAlreadyFinal, got %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE documents")).
		WillReturnRows(sqlmock.NewRows(docCols))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner_id")).
		WillReturnRows(sqlmock.NewRows(docCols))

	if _, err := repo.Finalize(context.Background(), "u1", "missing", "", StatusFailed); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestSQLRepoListBuildsFilteredQuery(t *testing.T) {
	repo, mock := newSQLRepo(t, db.SQLite)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE owner_id = ? AND status = ?\nORDER BY LOWER(title) ASC, id ASC LIMIT ?")).
		WithArgs("u1", "completed", 5).
		WillReturnRows(sqlmock.NewRows(docCols).
			AddRow("d1", "u1", "algebra", "u", "doc", "completed", "x", now, now).
			AddRow("d2", "u1", "biology", "u", "pdf", "completed", "y", now, now))

	docs, err := repo.List(context.Background(), "u1", Query{
		Status: StatusCompleted,
		Sort:   entity.Sort{Field: "title"},
		Limit:  5,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 2 || docs[0].FileType != FileTypeDoc || docs[1].Title != "biology" {
		t.Fatalf("unexpected documents %+v", docs)
	}

	if _, err := repo.List(context.Background(), "u1", Query{Sort: entity.Sort{Field: "size"}}); !errors.Is(err, entity.ErrInvalidSort) {
		t.Fatalf("expected ErrInvalidSort, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestSQLRepoDeleteAndCount(t *testing.T) {
	repo, mock := newSQLRepo(t, db.Postgres)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents WHERE owner_id = $1 AND id = $2")).
		WithArgs("u1", "nope").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM documents WHERE owner_id = $1 AND status = $2")).
		WithArgs("u1", "completed").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectExec(regexp.QuoteMeta("SET owner_id = $1")).
		WithArgs("user-1", "guest:g").
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := repo.Delete(context.Background(), "u1", "nope"); err != nil {
		t.Fatalf("Delete of unknown id should succeed: %v", err)
	}
	n, err := repo.Count(context.Background(), "u1", StatusCompleted)
	if err != nil || n != 4 {
		t.Fatalf("Count = %d err=%v", n, err)
	}
	claimed, err := repo.ClaimGuest(context.Background(), "guest:g", "user-1")
	if err != nil || claimed != 2 {
		t.Fatalf("ClaimGuest = %d err=%v", claimed, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
