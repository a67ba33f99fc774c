package overview

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"study-backend/internal/documents"
	"study-backend/internal/questions"
	"study-backend/internal/shared/server/middleware"
	"study-backend/internal/shared/server/respond"
	"study-backend/internal/shared/telemetry"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/overview", h.get)
}

type response struct {
	DocumentCount   int                  `json:"documentCount"`
	ReadyCount      int                  `json:"readyCount"`
	ProcessingCount int                  `json:"processingCount"`
	QuestionCount   int                  `json:"questionCount"`
	CanAsk          bool                 `json:"canAsk"`
	RecentDocuments []documents.Response `json:"recentDocuments"`
	RecentQuestions []questions.Response `json:"recentQuestions"`
}

func (h *Handler) get(c *gin.Context) {
	ownerID := middleware.UserIDFromContext(c)
	ov, err := h.Svc.Get(c.Request.Context(), ownerID)
	if err != nil {
		telemetry.Error("overview.failed", map[string]any{"owner_id": ownerID, "error": err})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load overview", nil)
		return
	}
	respond.OK(c, response{
		DocumentCount:   ov.DocumentCount,
		ReadyCount:      ov.ReadyCount,
		ProcessingCount: ov.ProcessingCount,
		QuestionCount:   ov.QuestionCount,
		CanAsk:          ov.ReadyCount > 0,
		RecentDocuments: documents.ToResponses(ov.RecentDocuments),
		RecentQuestions: questions.ToResponses(ov.RecentQuestions),
	})
}
