package account

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"study-backend/internal/documents"
	"study-backend/internal/questions"
	"study-backend/internal/shared/auth"
	"study-backend/internal/shared/server/middleware"
	"study-backend/internal/shared/storage/db"
)

func newRouter(t *testing.T, svc *Service) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	signer, err := auth.NewSigner("", false)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	token, err := signer.Sign(auth.Claims{Sub: "user-1", Email: "student@example.com"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(middleware.Auth(signer))
	NewHandler(svc).RegisterRoutes(api)
	return router, token
}

func claim(router *gin.Engine, token, guestID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if guestID != "" {
		req.Header.Set("X-Guest-Id", guestID)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestClaimGuestMigratesData(t *testing.T) {
	docRepo := documents.NewMemoryRepo()
	questionRepo := questions.NewMemoryRepo()
	router, token := newRouter(t, NewService(docRepo, questionRepo))

	guestOwner := middleware.GuestPrefix + "g-1"
	if _, err := docRepo.Create(context.Background(), documents.Document{
		OwnerID:         guestOwner,
		Title:           "notes.pdf",
		OriginalFileURL: "http://files/notes.pdf",
		FileType:        documents.FileTypePDF,
		Status:          documents.StatusProcessing,
	}); err != nil {
		t.Fatalf("create document: %v", err)
	}
	if _, err := questionRepo.Create(context.Background(), questions.Question{
		OwnerID:      guestOwner,
		QuestionText: "What is ATP?",
		AIAnswer:     "The energy currency of the cell.",
	}); err != nil {
		t.Fatalf("create question: %v", err)
	}

	resp := claim(router, token, "g-1")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if got := resp.Body.String(); got != `{"migratedDocuments":1,"migratedQuestions":1}` {
		t.Fatalf("unexpected body %s", got)
	}

	if n, _ := docRepo.Count(context.Background(), "user-1", ""); n != 1 {
		t.Fatalf("expected 1 migrated document, got %d", n)
	}
	if n, _ := questionRepo.Count(context.Background(), "user-1"); n != 1 {
		t.Fatalf("expected 1 migrated question, got %d", n)
	}

	resp = claim(router, token, "g-1")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 on idempotent call, got %d", resp.Code)
	}
	if got := resp.Body.String(); got != `{"migratedDocuments":0,"migratedQuestions":0}` {
		t.Fatalf("unexpected body on second claim %s", got)
	}
}

func TestClaimGuestRequiresSignedInUser(t *testing.T) {
	router, token := newRouter(t, NewService(documents.NewMemoryRepo(), questions.NewMemoryRepo()))

	if resp := claim(router, "", "g-1"); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected guest caller to be rejected, got %d", resp.Code)
	}
	if resp := claim(router, token, ""); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected missing guest id to be rejected, got %d", resp.Code)
	}
}

func TestClaimGuestReadsBody(t *testing.T) {
	docRepo := documents.NewMemoryRepo()
	router, token := newRouter(t, NewService(docRepo, questions.NewMemoryRepo()))
	if _, err := docRepo.Create(context.Background(), documents.Document{
		OwnerID:         middleware.GuestPrefix + "g-body",
		Title:           "essay.docx",
		OriginalFileURL: "http://files/essay.docx",
		FileType:        documents.FileTypeDoc,
		Status:          documents.StatusCompleted,
	}); err != nil {
		t.Fatalf("create document: %v", err)
	}

	tests := []struct {
		name string
		body string
		code int
		want string
	}{
		{name: "body id", body: `{"guestId":"g-body"}`, code: http.StatusOK, want: `{"migratedDocuments":1,"migratedQuestions":0}`},
		{name: "malformed body", body: `{"guestId":`, code: http.StatusBadRequest},
		{name: "prefixed id", body: `{"guestId":"guest:g-body"}`, code: http.StatusBadRequest},
		{name: "oversized id", body: `{"guestId":"` + strings.Repeat("g", 200) + `"}`, code: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, resp.Code, resp.Body.String())
			}
			if tt.want != "" && resp.Body.String() != tt.want {
				t.Fatalf("unexpected body %s", resp.Body.String())
			}
		})
	}
}

func TestClaimGuestUsesTransaction(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET owner_id = $1 WHERE owner_id = $2")).
		WithArgs("user-1", "guest:g-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE questions SET owner_id = $1 WHERE owner_id = $2")).
		WithArgs("user-1", "guest:g-1").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()

	svc := NewService(nil, nil).WithDB(conn, db.Postgres)
	res, err := svc.ClaimGuest(context.Background(), "guest:g-1", "user-1")
	if err != nil {
		t.Fatalf("ClaimGuest: %v", err)
	}
	if res.MigratedDocuments != 2 || res.MigratedQuestions != 5 {
		t.Fatalf("unexpected result %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
