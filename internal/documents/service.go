package documents

import (
	"context"
	"strings"

	"study-backend/internal/shared/entity"
)

// Service contains the read and maintenance operations on documents.
// Creation and finalization belong to the ingestion pipeline.
type Service struct {
	Repo Repo
}

// NewService constructs a Service.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// List returns the owner's documents.
func (s *Service) List(ctx context.Context, ownerID string, q Query) ([]Document, error) {
	if ownerID == "" {
		return nil, ErrInvalidInput
	}
	if q.Status != "" && !q.Status.Valid() {
		return nil, ErrInvalidInput
	}
	if q.Limit < 0 {
		q.Limit = 0
	}
	return s.Repo.List(ctx, ownerID, q)
}

// Completed returns the documents an answer can be grounded on, newest first.
func (s *Service) Completed(ctx context.Context, ownerID string) ([]Document, error) {
	return s.List(ctx, ownerID, Query{Status: StatusCompleted, Sort: entity.NewestFirst})
}

// Get returns one document.
func (s *Service) Get(ctx context.Context, ownerID, id string) (Document, error) {
	if ownerID == "" || strings.TrimSpace(id) == "" {
		return Document{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, ownerID, id)
}

// Rename changes the display title of a document.
func (s *Service) Rename(ctx context.Context, ownerID, id, title string) (Document, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.Rename(ctx, ownerID, id, title)
}

// Delete removes a document. Questions that reference it are kept.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return ErrInvalidInput
	}
	return s.Repo.Delete(ctx, ownerID, id)
}
