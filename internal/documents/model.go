package documents

import (
	"strings"
	"time"

	"study-backend/internal/shared/entity"
)

// Status is the lifecycle state of a document. It only moves forward
// from processing to one of the two terminal states.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s is completed or failed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// StatusForText derives the final status from the extracted text.
func StatusForText(text string) Status {
	if strings.TrimSpace(text) == "" {
		return StatusFailed
	}
	return StatusCompleted
}

// FileType classifies an upload by its declared MIME type.
type FileType string

const (
	FileTypePDF   FileType = "pdf"
	FileTypeImage FileType = "image"
	FileTypeDoc   FileType = "doc"
)

// FileTypeFromMIME checks "pdf" before "image"; anything else is a doc.
func FileTypeFromMIME(mimeType string) FileType {
	m := strings.ToLower(mimeType)
	switch {
	case strings.Contains(m, "pdf"):
		return FileTypePDF
	case strings.Contains(m, "image"):
		return FileTypeImage
	default:
		return FileTypeDoc
	}
}

// Document is an uploaded file and the text extracted from it.
type Document struct {
	ID              string
	OwnerID         string
	Title           string
	OriginalFileURL string
	FileType        FileType
	Status          Status
	ExtractedText   string
	CreatedDate     time.Time
	UpdatedDate     time.Time
}

// Query filters and orders a document listing. Zero values mean no filter,
// newest first and no limit.
type Query struct {
	Status Status
	Sort   entity.Sort
	Limit  int
}

// SortFields lists the fields a document listing may be ordered by.
var SortFields = []string{entity.FieldCreatedDate, "updated_date", "title", "status"}
