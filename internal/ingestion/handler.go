package ingestion

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"study-backend/internal/documents"
	"study-backend/internal/files"
	"study-backend/internal/gateway"
	"study-backend/internal/shared/server/middleware"
	"study-backend/internal/shared/server/respond"
)

// AllowedExtensions are the upload types accepted by POST /documents.
var AllowedExtensions = []string{".pdf", ".png", ".jpg", ".jpeg", ".doc", ".docx"}

// Handler exposes the pipeline over HTTP.
type Handler struct {
	Pipeline    *Pipeline
	MaxUploadMB int
}

// NewHandler constructs a Handler.
func NewHandler(p *Pipeline, maxUploadMB int) *Handler {
	return &Handler{Pipeline: p, MaxUploadMB: maxUploadMB}
}

// RegisterRoutes attaches the upload route.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.upload)
}

type uploadResponse struct {
	Document documents.Response `json:"document"`
	Method   Method             `json:"method"`
}

func (h *Handler) upload(c *gin.Context) {
	maxBytes := int64(h.MaxUploadMB) << 20
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the upload limit", gin.H{"maxMb": maxBytes >> 20})
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if !allowedExtension(fileHeader.Filename) {
		respond.Error(c, http.StatusBadRequest, "unsupported_file_type", "supported types are PDF, PNG, JPG, DOC and DOCX", gin.H{"fileName": fileHeader.Filename})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	contentType := strings.TrimSpace(fileHeader.Header.Get("Content-Type"))
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = files.ContentType(fileHeader.Filename, nil)
	}

	res, err := h.Pipeline.IngestAs(c.Request.Context(), middleware.UserIDFromContext(c), gateway.File{
		Name:        fileHeader.Filename,
		ContentType: contentType,
		Size:        fileHeader.Size,
		Body:        file,
	}, c.PostForm("title"))
	if res.Document.ID != "" {
		c.Set(middleware.DocumentIDKey, res.Document.ID)
		c.Set(middleware.StatusTransitionKey, res.Transition())
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrUploadFailed):
			respond.Error(c, http.StatusBadGateway, "upload_failed", "file upload failed", nil)
		default:
			var details any
			if res.Document.ID != "" {
				details = gin.H{"documentId": res.Document.ID, "status": res.Document.Status}
			}
			respond.Error(c, http.StatusInternalServerError, "ingest_failed", "document processing failed", details)
		}
		return
	}

	respond.Created(c, uploadResponse{
		Document: documents.ToResponse(res.Document),
		Method:   res.Method,
	})
}

func allowedExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
