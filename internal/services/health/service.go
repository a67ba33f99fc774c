package health

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"study-backend/internal/shared/server/respond"
)

const pingTimeout = 2 * time.Second

// Service encapsulates health-related checks.
type Service struct {
	DB      *sql.DB
	Storage string
	Gateway string
}

// Status is the health payload.
type Status struct {
	OK       bool   `json:"ok"`
	Database string `json:"database"`
	Storage  string `json:"storage,omitempty"`
	Gateway  string `json:"gateway,omitempty"`
}

// NewService constructs a new health service. A nil db means in-memory repositories.
func NewService(db *sql.DB, storage, gateway string) *Service {
	return &Service{DB: db, Storage: storage, Gateway: gateway}
}

// Status reports liveness plus the database reachability.
func (s *Service) Status(ctx context.Context) Status {
	st := Status{OK: true, Database: "memory", Storage: s.Storage, Gateway: s.Gateway}
	if s.DB == nil {
		return st
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.DB.PingContext(pingCtx); err != nil {
		st.OK = false
		st.Database = "down"
		return st
	}
	st.Database = "up"
	return st
}

// RegisterRoutes attaches GET /health.
func (s *Service) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", func(c *gin.Context) {
		st := s.Status(c.Request.Context())
		code := http.StatusOK
		if !st.OK {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, st)
	})
}
