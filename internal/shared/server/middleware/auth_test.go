package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"study-backend/internal/shared/auth"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *auth.Signer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	signer, err := auth.NewSigner("test-secret", false)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	router := gin.New()
	router.Use(Auth(signer))
	router.GET("/api/v1/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": UserIDFromContext(c), "guest": IsGuest(c)})
	})
	router.OPTIONS("/api/v1/documents/current", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router, signer
}

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	router, _ := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/documents/current", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestAuthResolvesIdentity(t *testing.T) {
	router, signer := newAuthRouter(t)
	token, err := signer.Sign(auth.Claims{Sub: "user-42"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tests := []struct {
		name       string
		header     string
		value      string
		wantStatus int
		wantBody   string
	}{
		{name: "bearer", header: "Authorization", value: "Bearer " + token, wantStatus: http.StatusOK, wantBody: `{"guest":false,"userId":"user-42"}`},
		{name: "guest", header: "X-Guest-Id", value: "abc", wantStatus: http.StatusOK, wantBody: `{"guest":true,"userId":"guest:abc"}`},
		{name: "bad token", header: "Authorization", value: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "basic scheme", header: "Authorization", value: "Basic Zm9vOmJhcg==", wantStatus: http.StatusUnauthorized},
		{name: "missing", wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, resp.Code)
			}
			if tt.wantBody != "" && resp.Body.String() != tt.wantBody {
				t.Fatalf("unexpected body %s", resp.Body.String())
			}
		})
	}
}
