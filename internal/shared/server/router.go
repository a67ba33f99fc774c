package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"study-backend/internal/account"
	"study-backend/internal/answering"
	"study-backend/internal/documents"
	"study-backend/internal/files"
	"study-backend/internal/ingestion"
	"study-backend/internal/overview"
	"study-backend/internal/questions"
	"study-backend/internal/services/health"
	"study-backend/internal/shared/config"
	"study-backend/internal/shared/metrics"
	"study-backend/internal/shared/server/middleware"
)

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config          config.Config
	Verifier        middleware.TokenVerifier
	Limiter         middleware.Limiter
	Health          *health.Service
	FilesHandler    *files.Handler
	DocumentHandler *documents.Handler
	IngestHandler   *ingestion.Handler
	QuestionHandler *questions.Handler
	AnswerHandler   *answering.Handler
	OverviewHandler *overview.Handler
	AccountHandler  *account.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)
	r.GET("/metrics", metrics.Handler())

	// Health and file downloads need no identity.
	public := r.Group("/api/v1")
	if deps.Health != nil {
		deps.Health.RegisterRoutes(public)
	} else {
		public.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": true})
		})
	}
	if deps.FilesHandler != nil {
		deps.FilesHandler.RegisterRoutes(public)
	}

	api := r.Group("/api/v1")
	api.Use(middleware.Auth(deps.Verifier))
	if rl := rateLimit(deps); rl != nil {
		api.Use(rl)
	}
	registerMeRoutes(api)

	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(api)
	}
	if deps.IngestHandler != nil {
		deps.IngestHandler.RegisterRoutes(api)
	}
	if deps.QuestionHandler != nil {
		deps.QuestionHandler.RegisterRoutes(api)
	}
	if deps.AnswerHandler != nil {
		deps.AnswerHandler.RegisterRoutes(api)
	}
	if deps.OverviewHandler != nil {
		deps.OverviewHandler.RegisterRoutes(api)
	}
	if deps.AccountHandler != nil {
		deps.AccountHandler.RegisterRoutes(api)
	}

	return r
}

// rateLimit budgets the two AI-backed endpoints. It returns nil when both limits are off.
func rateLimit(deps RouterDeps) gin.HandlerFunc {
	rules := map[string]middleware.RateLimitRule{}
	if n := deps.Config.RateLimitIngestPerMin; n > 0 {
		rules[middleware.RateLimitGroupIngest] = middleware.PerMinute(n)
	}
	if n := deps.Config.RateLimitAskPerMin; n > 0 {
		rules[middleware.RateLimitGroupAsk] = middleware.PerMinute(n)
	}
	if len(rules) == 0 {
		return nil
	}
	return middleware.RateLimit(middleware.RateLimitConfig{
		Rules:    rules,
		GroupFor: rateLimitGroup,
		Limiter:  deps.Limiter,
	})
}

func rateLimitGroup(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return ""
	}
	switch c.FullPath() {
	case "/api/v1/documents":
		return middleware.RateLimitGroupIngest
	case "/api/v1/questions":
		return middleware.RateLimitGroupAsk
	}
	return ""
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
