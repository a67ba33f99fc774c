package answering

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"study-backend/internal/documents"
	"study-backend/internal/questions"
	"study-backend/internal/shared/server/middleware"
	"study-backend/internal/shared/server/respond"
)

// DocumentSource lists the documents an owner can ask about.
type DocumentSource interface {
	Completed(ctx context.Context, ownerID string) ([]documents.Document, error)
}

// Handler exposes the pipeline over HTTP.
type Handler struct {
	Pipeline *Pipeline
	Docs     DocumentSource
}

// NewHandler constructs a Handler.
func NewHandler(p *Pipeline, docs DocumentSource) *Handler {
	return &Handler{Pipeline: p, Docs: docs}
}

// RegisterRoutes attaches the ask route.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/questions", h.ask)
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	ID          string               `json:"id"`
	Question    string               `json:"question"`
	Answer      string               `json:"answer"`
	Confidence  questions.Confidence `json:"confidence,omitempty"`
	Context     string               `json:"context"`
	DocumentIDs []string             `json:"documentIds"`
	CreatedDate time.Time            `json:"createdDate"`
}

func (h *Handler) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	ownerID := middleware.UserIDFromContext(c)
	docs, err := h.Docs.Completed(c.Request.Context(), ownerID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load documents", nil)
		return
	}

	res, err := h.Pipeline.Answer(c.Request.Context(), ownerID, req.Question, docs)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyQuestion):
			respond.Error(c, http.StatusBadRequest, "validation_error", "question is required", nil)
		case errors.Is(err, ErrNoKnowledgeBase):
			respond.Error(c, http.StatusConflict, "no_knowledge_base", "upload and process at least one document before asking", nil)
		case errors.Is(err, ErrGenerationFailed):
			respond.Error(c, http.StatusBadGateway, "generation_failed", "could not generate an answer, please retry", gin.H{"question": req.Question, "retryable": true})
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to save question", gin.H{"question": req.Question})
		}
		return
	}

	c.Set(middleware.QuestionIDKey, res.QuestionID)
	respond.Created(c, askResponse{
		ID:          res.QuestionID,
		Question:    res.QuestionText,
		Answer:      res.Answer,
		Confidence:  res.Confidence,
		Context:     res.Context,
		DocumentIDs: res.DocumentIDs,
		CreatedDate: res.CreatedDate,
	})
}
