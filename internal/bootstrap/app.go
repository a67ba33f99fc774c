package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"study-backend/internal/account"
	"study-backend/internal/answering"
	"study-backend/internal/documents"
	"study-backend/internal/extract"
	"study-backend/internal/files"
	"study-backend/internal/gateway"
	"study-backend/internal/gateway/gemini"
	"study-backend/internal/gateway/openai"
	"study-backend/internal/gateway/remote"
	"study-backend/internal/ingestion"
	"study-backend/internal/overview"
	"study-backend/internal/questions"
	"study-backend/internal/services/health"
	"study-backend/internal/shared/auth"
	"study-backend/internal/shared/config"
	"study-backend/internal/shared/server"
	"study-backend/internal/shared/server/middleware"
	"study-backend/internal/shared/storage/db"
	"study-backend/internal/shared/storage/object"
	localstore "study-backend/internal/shared/storage/object/local"
	miniostore "study-backend/internal/shared/storage/object/minio"
	s3store "study-backend/internal/shared/storage/object/s3"
)

// App holds shared dependencies.
type App struct {
	Config  config.Config
	Router  *gin.Engine
	DB      *sql.DB
	Dialect db.Dialect
	Store   object.ObjectStore
	Files   *files.Service
	Gateway gateway.Gateway
	Signer  *auth.Signer
	Limiter middleware.Limiter

	DocumentsRepo     documents.Repo
	QuestionsRepo     questions.Repo
	DocumentsService  *documents.Service
	QuestionsService  *questions.Service
	IngestPipeline    *ingestion.Pipeline
	AnswerPipeline    *answering.Pipeline
	OverviewService   *overview.Service
	AccountService    *account.Service
	HealthService     *health.Service
	DocumentsHandler  *documents.Handler
	IngestHandler     *ingestion.Handler
	QuestionsHandler  *questions.Handler
	AnswerHandler     *answering.Handler
	OverviewHandler   *overview.Handler
	AccountHandler    *account.Handler
	FilesHandler      *files.Handler

	closers []io.Closer
}

// Build prepares shared dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	app := &App{Config: cfg}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	if sqlDB != nil {
		app.Dialect = db.DialectFor(cfg.DatabaseURL)
		if err := db.RunMigrations(ctx, sqlDB, app.Dialect); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Store = store
	app.Files = files.NewService(store, cfg.PublicBaseURL)

	gw, err := app.buildGateway(ctx)
	if err != nil {
		return nil, err
	}
	app.Gateway = gw

	signer, err := auth.NewSigner(cfg.JWTSecret, cfg.Env == "production")
	if err != nil {
		return nil, err
	}
	app.Signer = signer
	app.Limiter = app.buildLimiter()

	app.buildServices()

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Verifier:        app.Signer,
		Limiter:         app.Limiter,
		Health:          app.HealthService,
		FilesHandler:    app.FilesHandler,
		DocumentHandler: app.DocumentsHandler,
		IngestHandler:   app.IngestHandler,
		QuestionHandler: app.QuestionsHandler,
		AnswerHandler:   app.AnswerHandler,
		OverviewHandler: app.OverviewHandler,
		AccountHandler:  app.AccountHandler,
	})

	return app, nil
}

// Close releases provider clients and the database pool.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.DB != nil && !db.IsLambdaRuntime() {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if cfg.IsDevLike() {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		return miniostore.New(ctx, miniostore.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func (a *App) buildGateway(ctx context.Context) (gateway.Gateway, error) {
	cfg := a.Config
	timeout := time.Duration(cfg.LLMTimeoutSeconds) * time.Second

	if cfg.Gateway == "remote" {
		return remote.New(ctx, remote.Options{
			BaseURL:      cfg.GatewayBaseURL,
			APIKey:       cfg.GatewayAPIKey,
			TokenURL:     cfg.GatewayTokenURL,
			ClientID:     cfg.GatewayClientID,
			ClientSecret: cfg.GatewayClientSecret,
			Timeout:      timeout,
			MaxRetries:   uint64(max(cfg.GatewayMaxRetries, 0)),
		})
	}

	var invoker gateway.Invoker = gateway.Placeholder{}
	switch cfg.LLMProvider {
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" && cfg.IsDevLike() {
			log.Printf("bootstrap: OPENAI_API_KEY empty; llm calls will fail")
			break
		}
		client, err := openai.NewClient(openai.Config{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.LLMModel,
			Timeout:    timeout,
			MaxRetries: max(cfg.GatewayMaxRetries, 0),
		}, a.Files)
		if err != nil {
			return nil, err
		}
		invoker = client
	case "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" && cfg.IsDevLike() {
			log.Printf("bootstrap: GEMINI_API_KEY empty; llm calls will fail")
			break
		}
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.LLMModel, timeout, a.Files)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client)
		invoker = client
	}

	return gateway.Composite{
		Uploader:  a.Files,
		Extractor: extract.NewExtractor(a.Files),
		Invoker:   invoker,
	}, nil
}

func (a *App) buildLimiter() middleware.Limiter {
	if strings.TrimSpace(a.Config.RedisAddr) == "" {
		return middleware.NewRateLimiter(nil)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     a.Config.RedisAddr,
		Password: a.Config.RedisPassword,
	})
	a.closers = append(a.closers, client)
	return middleware.NewRedisLimiter(client)
}

func (a *App) buildServices() {
	if a.DB != nil {
		a.DocumentsRepo = &documents.SQLRepo{DB: a.DB, Dialect: a.Dialect}
		a.QuestionsRepo = &questions.SQLRepo{DB: a.DB, Dialect: a.Dialect}
	} else {
		a.DocumentsRepo = documents.NewMemoryRepo()
		a.QuestionsRepo = questions.NewMemoryRepo()
	}

	a.DocumentsService = documents.NewService(a.DocumentsRepo)
	a.QuestionsService = questions.NewService(a.QuestionsRepo)
	a.IngestPipeline = ingestion.NewPipeline(a.Gateway, a.DocumentsRepo)
	a.AnswerPipeline = answering.NewPipeline(a.Gateway, a.QuestionsRepo, a.Config.AnswerMaxContextChars)
	a.OverviewService = overview.NewService(a.DocumentsRepo, a.QuestionsRepo)
	a.AccountService = account.NewService(a.DocumentsRepo, a.QuestionsRepo)
	if a.DB != nil {
		a.AccountService = a.AccountService.WithDB(a.DB, a.Dialect)
	}

	gatewayLabel := a.Config.Gateway
	if gatewayLabel != "remote" {
		gatewayLabel = a.Config.LLMProvider
	}
	a.HealthService = health.NewService(a.DB, a.Config.ObjectStoreType, gatewayLabel)

	a.DocumentsHandler = documents.NewHandler(a.DocumentsService)
	a.IngestHandler = ingestion.NewHandler(a.IngestPipeline, a.Config.MaxUploadMB)
	a.QuestionsHandler = questions.NewHandler(a.QuestionsService)
	a.AnswerHandler = answering.NewHandler(a.AnswerPipeline, a.DocumentsService)
	a.OverviewHandler = overview.NewHandler(a.OverviewService)
	a.AccountHandler = account.NewHandler(a.AccountService)
	a.FilesHandler = files.NewHandler(a.Files)
}
