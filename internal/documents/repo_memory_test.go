package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"study-backend/internal/shared/entity"
)

func TestFileTypeFromMIME(t *testing.T) {
	tests := []struct {
		mime string
		want FileType
	}{
		{"application/pdf", FileTypePDF},
		{"image/png", FileTypeImage},
		{"IMAGE/JPEG", FileTypeImage},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", FileTypeDoc},
		{"", FileTypeDoc},
		// pdf wins over image when both appear.
		{"image/x-pdf", FileTypePDF},
	}
	for _, tt := range tests {
		if got := FileTypeFromMIME(tt.mime); got != tt.want {
			t.Fatalf("FileTypeFromMIME(%q) = %q, want %q", tt.mime, got, tt.want)
		}
	}
}

func TestStatusForText(t *testing.T) {
	if StatusForText("Hello world") != StatusCompleted {
		t.Fatalf("non-empty text should complete")
	}
	if StatusForText("") != StatusFailed || StatusForText(" \n\t") != StatusFailed {
		t.Fatalf("empty text should fail")
	}
}

func TestMemoryRepoFinalizeIsOneShot(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	doc, err := repo.Create(ctx, Document{
		OwnerID:         "u1",
		Title:           "notes.pdf",
		OriginalFileURL: "http://files/notes.pdf",
		FileType:        FileTypePDF,
		Status:          StatusProcessing,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if doc.ID == "" || doc.CreatedDate.IsZero() {
		t.Fatalf("expected id and created date, got %+v", doc)
	}

	if _, err := repo.Finalize(ctx, "u1", doc.ID, "x", StatusProcessing); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for non-terminal status, got %v", err)
	}
	if _, err := repo.Finalize(ctx, "u2", doc.ID, "x", StatusCompleted); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another owner, got %v", err)
	}

	final, err := repo.Finalize(ctx, "u1", doc.ID, "Hello world", StatusCompleted)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if final.Status != StatusCompleted || final.ExtractedText != "Hello world" {
		t.Fatalf("unexpected finalized doc %+v", final)
	}
	if !final.CreatedDate.Equal(doc.CreatedDate) {
		t.Fatalf("created date changed")
	}

	if _, err := repo.Finalize(ctx, "u1", doc.ID, "", StatusFailed); !errors.Is(err, ErrAlreadyFinal) {
		t.Fatalf("expected ErrAlreadyFinal, got %v", err)
	}
	got, _ := repo.GetByID(ctx, "u1", doc.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("status reverted to %q", got.Status)
	}
}

func TestMemoryRepoCreateValidates(t *testing.T) {
	repo := NewMemoryRepo()
	bad := []Document{
		{Title: "t", OriginalFileURL: "u", FileType: FileTypePDF, Status: StatusProcessing},
		{OwnerID: "o", OriginalFileURL: "u", FileType: FileTypePDF, Status: StatusProcessing},
		{OwnerID: "o", Title: "t", FileType: FileTypePDF, Status: StatusProcessing},
		{OwnerID: "o", Title: "t", OriginalFileURL: "u", FileType: "txt", Status: StatusProcessing},
		{OwnerID: "o", Title: "t", OriginalFileURL: "u", FileType: FileTypePDF, Status: "queued"},
	}
	for i, doc := range bad {
		if _, err := repo.Create(context.Background(), doc); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestMemoryRepoListOrdering(t *testing.T) {
	repo := NewMemoryRepo()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	ctx := context.Background()
	for _, title := range []string{"b", "C", "a"} {
		if _, err := repo.Create(ctx, Document{OwnerID: "u1", Title: title, OriginalFileURL: "u", FileType: FileTypeDoc, Status: StatusProcessing}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	newest, _ := repo.List(ctx, "u1", Query{})
	if titles(newest) != "a,C,b" {
		t.Fatalf("unexpected default order %s", titles(newest))
	}
	byTitle, _ := repo.List(ctx, "u1", Query{Sort: entity.Sort{Field: "title"}, Limit: 2})
	if titles(byTitle) != "a,b" {
		t.Fatalf("unexpected title order %s", titles(byTitle))
	}
}

func TestMemoryRepoClaimGuestAndCount(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := repo.Create(ctx, Document{OwnerID: "guest:g", Title: "t", OriginalFileURL: "u", FileType: FileTypeDoc, Status: StatusProcessing}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	n, err := repo.ClaimGuest(ctx, "guest:g", "user-1")
	if err != nil || n != 3 {
		t.Fatalf("expected 3 claimed, got %d err=%v", n, err)
	}
	count, _ := repo.Count(ctx, "user-1", StatusProcessing)
	if count != 3 {
		t.Fatalf("expected 3 processing documents, got %d", count)
	}
	count, _ = repo.Count(ctx, "guest:g", "")
	if count != 0 {
		t.Fatalf("expected guest to own nothing, got %d", count)
	}
}

func titles(docs []Document) string {
	out := ""
	for i, d := range docs {
		if i > 0 {
			out += ","
		}
		out += d.Title
	}
	return out
}
