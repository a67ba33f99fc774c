package files

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"study-backend/internal/shared/server/respond"
	"study-backend/internal/shared/storage/object"
	"study-backend/internal/shared/telemetry"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes serves stored files. Keys are unguessable, so no identity is required.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/files/*key", h.download)
}

func (h *Handler) download(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file key is required", nil)
		return
	}

	rc, err := h.Svc.Open(c.Request.Context(), key)
	if err != nil {
		switch {
		case errors.Is(err, object.ErrInvalidKey):
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid file key", nil)
		case errors.Is(err, os.ErrNotExist):
			respond.Error(c, http.StatusNotFound, "not_found", "file not found", nil)
		default:
			telemetry.Error("files.open_failed", map[string]any{"key": key, "error": err})
			respond.Error(c, http.StatusNotFound, "not_found", "file not found", nil)
		}
		return
	}
	defer rc.Close()

	name := DisplayName(key)
	var sniff [512]byte
	n, _ := io.ReadFull(rc, sniff[:])
	c.Header("Content-Type", ContentType(name, sniff[:n]))
	c.Header("Content-Disposition", `inline; filename="`+strings.ReplaceAll(name, `"`, "")+`"`)
	c.Header("Cache-Control", "private, max-age=3600")
	c.Status(http.StatusOK)
	if n > 0 {
		_, _ = c.Writer.Write(sniff[:n])
	}
	_, _ = io.Copy(c.Writer, rc)
}
