package account

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"study-backend/internal/shared/server/middleware"
	"study-backend/internal/shared/server/respond"
)

const maxGuestIDLength = 128

type claimRequest struct {
	GuestID string `json:"guestId"`
}

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/account/claim-guest", h.claimGuest)
}

// claimGuest hands a guest's documents and history to the signed-in caller.
// The guest id comes from the JSON body or, failing that, the X-Guest-Id header.
func (h *Handler) claimGuest(c *gin.Context) {
	if h.Svc == nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "service unavailable", nil)
		return
	}
	ownerID := strings.TrimSpace(middleware.UserIDFromContext(c))
	if middleware.IsGuest(c) || ownerID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "login required", nil)
		return
	}

	var req claimRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
	}
	guestID := strings.TrimSpace(req.GuestID)
	if guestID == "" {
		guestID = strings.TrimSpace(c.GetHeader("X-Guest-Id"))
	}
	switch {
	case guestID == "":
		respond.Error(c, http.StatusBadRequest, "validation_error", "guest id is required", []map[string]string{
			{"field": "guestId", "issue": "required"},
		})
		return
	case len(guestID) > maxGuestIDLength || strings.HasPrefix(guestID, middleware.GuestPrefix):
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid guest id", []map[string]string{
			{"field": "guestId", "issue": "invalid"},
		})
		return
	}

	result, err := h.Svc.ClaimGuest(c.Request.Context(), middleware.GuestPrefix+guestID, ownerID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to claim guest data", nil)
		return
	}
	respond.OK(c, result)
}
