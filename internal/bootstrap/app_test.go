package bootstrap

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"study-backend/internal/shared/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Env:             "dev",
		Port:            "8080",
		PublicBaseURL:   "http://study.test",
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
		MaxUploadMB:     5,
		Gateway:         "builtin",
		LLMProvider:     "none",
	}
}

func docxBytes(t *testing.T, text string) []byte {
	t.Helper()
	doc := `<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if _, err := w.Write([]byte(doc)); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func send(app *App, req *http.Request) *httptest.ResponseRecorder {
	req.Header.Set("X-Guest-Id", "g-1")
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	return resp
}

func TestBuildInMemory(t *testing.T) {
	app, err := Build(testConfig(t))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer app.Close()

	if app.DB != nil {
		t.Fatalf("expected in-memory repositories without DATABASE_URL")
	}
	if app.Router == nil || app.IngestPipeline == nil || app.AnswerPipeline == nil {
		t.Fatalf("expected router and pipelines to be wired")
	}

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected health 200, got %d", resp.Code)
	}
}

func TestBuildRequiresDatabaseInProduction(t *testing.T) {
	cfg := testConfig(t)
	cfg.Env = "production"
	cfg.JWTSecret = "s3cret"
	if _, err := Build(cfg); err == nil {
		t.Fatalf("expected error without DATABASE_URL in production")
	}
}

func TestUploadThenAskWithoutProvider(t *testing.T) {
	app, err := Build(testConfig(t))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer app.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "cells.docx")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := part.Write(docxBytes(t, "Mitochondria produce ATP")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.WriteField("title", "Cell biology"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp := send(app, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var uploaded struct {
		Document struct {
			ID            string `json:"id"`
			Title         string `json:"title"`
			FileType      string `json:"fileType"`
			Status        string `json:"status"`
			ExtractedText string `json:"extractedText"`
		} `json:"document"`
		Method string `json:"method"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &uploaded); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	if uploaded.Document.Status != "completed" || uploaded.Method != "primary" {
		t.Fatalf("unexpected upload result %+v", uploaded)
	}
	if uploaded.Document.Title != "Cell biology" || uploaded.Document.FileType != "doc" {
		t.Fatalf("unexpected document %+v", uploaded.Document)
	}
	if !strings.Contains(uploaded.Document.ExtractedText, "Mitochondria") {
		t.Fatalf("expected extracted text, got %q", uploaded.Document.ExtractedText)
	}

	// No LLM provider is configured, so the answer step fails without persisting anything.
	ask := httptest.NewRequest(http.MethodPost, "/api/v1/questions", strings.NewReader(`{"question":"What do mitochondria do?"}`))
	ask.Header.Set("Content-Type", "application/json")
	resp = send(app, ask)
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = send(app, httptest.NewRequest(http.MethodGet, "/api/v1/overview", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected overview 200, got %d", resp.Code)
	}
	var ov struct {
		DocumentCount int  `json:"documentCount"`
		ReadyCount    int  `json:"readyCount"`
		QuestionCount int  `json:"questionCount"`
		CanAsk        bool `json:"canAsk"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &ov); err != nil {
		t.Fatalf("decode overview: %v", err)
	}
	if ov.DocumentCount != 1 || ov.ReadyCount != 1 || ov.QuestionCount != 0 || !ov.CanAsk {
		t.Fatalf("unexpected overview %+v", ov)
	}
}

func TestAskWithoutDocumentsIsRejected(t *testing.T) {
	app, err := Build(testConfig(t))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer app.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/questions", strings.NewReader(`{"question":"anything?"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := send(app, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", resp.Code, resp.Body.String())
	}
}
