package answering

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-backend/internal/documents"
	"study-backend/internal/questions"
	"study-backend/internal/shared/server/middleware"
)

type staticDocs []documents.Document

func (s staticDocs) Completed(context.Context, string) ([]documents.Document, error) {
	return s, nil
}

func ask(t *testing.T, inv *fakeInvoker, docs staticDocs, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(middleware.Auth(nil))
	NewHandler(NewPipeline(inv, questions.NewMemoryRepo(), 0), docs).RegisterRoutes(api)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/questions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Guest-Id", "g-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestAskHandler(t *testing.T) {
	inv := &fakeInvoker{out: map[string]any{"answer": "Light to chemical energy.", "confidence": "high"}}
	resp := ask(t, inv, staticDocs(bioNotes()), `{"question":"What is photosynthesis?"}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var body askResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.ID)
	assert.Equal(t, "Light to chemical energy.", body.Answer)
	assert.Equal(t, []string{"doc-1"}, body.DocumentIDs)
}

func TestAskHandlerErrors(t *testing.T) {
	tests := []struct {
		name     string
		inv      *fakeInvoker
		docs     staticDocs
		body     string
		wantCode int
		wantText string
	}{
		{name: "no documents", inv: &fakeInvoker{}, body: `{"question":"Hi?"}`, wantCode: http.StatusConflict, wantText: "no_knowledge_base"},
		{name: "blank question", inv: &fakeInvoker{}, docs: staticDocs(bioNotes()), body: `{"question":"  "}`, wantCode: http.StatusBadRequest, wantText: "validation_error"},
		{name: "bad json", inv: &fakeInvoker{}, docs: staticDocs(bioNotes()), body: `{`, wantCode: http.StatusBadRequest, wantText: "validation_error"},
		{name: "gateway failure echoes question", inv: &fakeInvoker{err: errors.New("down")}, docs: staticDocs(bioNotes()), body: `{"question":"Keep me"}`, wantCode: http.StatusBadGateway, wantText: "Keep me"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ask(t, tt.inv, tt.docs, tt.body)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Contains(t, resp.Body.String(), tt.wantText)
		})
	}
}
