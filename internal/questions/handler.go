package questions

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"study-backend/internal/shared/entity"
	"study-backend/internal/shared/server/middleware"
	"study-backend/internal/shared/server/respond"
	"study-backend/internal/shared/telemetry"
)

const maxListLimit = 200

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches history routes. POST /questions is registered by the answering handler.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/questions", h.list)
	rg.GET("/questions/:id", h.get)
	rg.DELETE("/questions/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	sortSpec, err := parseHistorySort(c.Query("sort"), c.Query("order"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid sort or order", nil)
		return
	}
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer", nil)
			return
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}
	}

	qs, err := h.Svc.History(c.Request.Context(), middleware.UserIDFromContext(c), Query{
		Search: c.Query("q"),
		Sort:   sortSpec,
		Limit:  limit,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	switch strings.ToLower(c.Query("group")) {
	case "":
		respond.OK(c, ToResponses(qs))
	case "day":
		groups := GroupByDay(qs)
		out := make([]dayGroupResponse, 0, len(groups))
		for _, g := range groups {
			out = append(out, dayGroupResponse{Date: g.Date, Questions: ToResponses(g.Questions)})
		}
		respond.OK(c, out)
	default:
		respond.Error(c, http.StatusBadRequest, "validation_error", "group must be day", nil)
	}
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.QuestionIDKey, id)

	q, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := ToResponse(q)
	if rendered, err := RenderMarkdown(q.AIAnswer); err == nil {
		resp.AnswerHTML = rendered
	} else {
		telemetry.Warn("questions.render_failed", map[string]any{"question_id": id, "error": err})
	}
	respond.OK(c, resp)
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.QuestionIDKey, id)

	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), id); err != nil {
		h.fail(c, err)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "question not found", nil)
	case errors.Is(err, ErrInvalidInput), errors.Is(err, entity.ErrInvalidSort):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "question request failed", nil)
	}
}

// parseHistorySort prefers an explicit sort spec over the order shorthand.
func parseHistorySort(sortRaw, order string) (entity.Sort, error) {
	if strings.TrimSpace(sortRaw) != "" {
		return entity.ParseSort(sortRaw, SortFields...)
	}
	return SortForOrder(order)
}
