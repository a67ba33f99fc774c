package documents

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"study-backend/internal/shared/entity"
	"study-backend/internal/shared/server/middleware"
	"study-backend/internal/shared/server/respond"
)

const maxListLimit = 100

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
// POST /documents is registered by the ingestion handler.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.PATCH("/documents/:id", h.rename)
	rg.DELETE("/documents/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	ownerID := middleware.UserIDFromContext(c)

	sortSpec, err := entity.ParseSort(c.Query("sort"), SortFields...)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer", nil)
		return
	}
	status := Status(strings.ToLower(strings.TrimSpace(c.Query("status"))))
	if status != "" && !status.Valid() {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unknown status", gin.H{"status": status})
		return
	}

	docs, err := h.Svc.List(c.Request.Context(), ownerID, Query{Status: status, Sort: sortSpec, Limit: limit})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, ToResponses(docs))
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.DocumentIDKey, id)

	doc, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, ToResponse(doc))
}

type renameRequest struct {
	Title string `json:"title"`
}

func (h *Handler) rename(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.DocumentIDKey, id)

	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	doc, err := h.Svc.Rename(c.Request.Context(), middleware.UserIDFromContext(c), id, req.Title)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, ToResponse(doc))
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.DocumentIDKey, id)

	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), id); err != nil {
		h.fail(c, err)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, entity.ErrInvalidSort):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "document request failed", nil)
	}
}

func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, errors.New("invalid limit")
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, nil
}
