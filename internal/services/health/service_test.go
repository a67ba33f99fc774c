package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

func TestStatusWithoutDatabase(t *testing.T) {
	st := NewService(nil, "local", "builtin").Status(context.Background())
	if !st.OK || st.Database != "memory" {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestHealthReportsDatabaseDown(t *testing.T) {
	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewService(conn, "s3", "remote").RegisterRoutes(router.Group("/api/v1"))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
