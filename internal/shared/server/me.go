package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"study-backend/internal/shared/server/middleware"
	"study-backend/internal/shared/server/respond"
)

type meResponse struct {
	UserID     string `json:"userId"`
	IsGuest    bool   `json:"isGuest"`
	AuthMethod string `json:"authMethod"`
	GuestID    string `json:"guestId,omitempty"`
	Email      string `json:"email,omitempty"`
	Name       string `json:"name,omitempty"`
}

func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

// meHandler describes the caller. Guests get back the id a later
// claim-guest call needs.
func meHandler(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}

	me := meResponse{UserID: userID, AuthMethod: "bearer"}
	if middleware.IsGuest(c) {
		me.IsGuest = true
		me.AuthMethod = "guest"
		me.GuestID = strings.TrimPrefix(userID, middleware.GuestPrefix)
	} else {
		me.Email = middleware.UserEmailFromContext(c)
		me.Name = middleware.UserNameFromContext(c)
	}
	respond.OK(c, me)
}
