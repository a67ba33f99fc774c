// Package overview assembles the home dashboard: counts and the most recent items.
package overview

import (
	"context"
	"fmt"

	"study-backend/internal/documents"
	"study-backend/internal/questions"
	"study-backend/internal/shared/entity"
)

// RecentLimit is how many recent documents and questions the overview shows.
const RecentLimit = 5

// Overview summarizes an owner's study material.
type Overview struct {
	DocumentCount   int
	ReadyCount      int
	ProcessingCount int
	QuestionCount   int
	RecentDocuments []documents.Document
	RecentQuestions []questions.Question
}

type Service struct {
	Docs      documents.Repo
	Questions questions.Repo
}

func NewService(docs documents.Repo, qs questions.Repo) *Service {
	return &Service{Docs: docs, Questions: qs}
}

// Get builds the overview for ownerID.
func (s *Service) Get(ctx context.Context, ownerID string) (Overview, error) {
	var (
		out Overview
		err error
	)
	if out.DocumentCount, err = s.Docs.Count(ctx, ownerID, ""); err != nil {
		return Overview{}, fmt.Errorf("count documents: %w", err)
	}
	if out.ReadyCount, err = s.Docs.Count(ctx, ownerID, documents.StatusCompleted); err != nil {
		return Overview{}, fmt.Errorf("count ready documents: %w", err)
	}
	if out.ProcessingCount, err = s.Docs.Count(ctx, ownerID, documents.StatusProcessing); err != nil {
		return Overview{}, fmt.Errorf("count processing documents: %w", err)
	}
	if out.QuestionCount, err = s.Questions.Count(ctx, ownerID); err != nil {
		return Overview{}, fmt.Errorf("count questions: %w", err)
	}
	if out.RecentDocuments, err = s.Docs.List(ctx, ownerID, documents.Query{Sort: entity.NewestFirst, Limit: RecentLimit}); err != nil {
		return Overview{}, fmt.Errorf("recent documents: %w", err)
	}
	if out.RecentQuestions, err = s.Questions.List(ctx, ownerID, questions.Query{Sort: entity.NewestFirst, Limit: RecentLimit}); err != nil {
		return Overview{}, fmt.Errorf("recent questions: %w", err)
	}
	return out, nil
}
