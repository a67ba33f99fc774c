package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	PublicBaseURL   string
	JWTSecret       string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioBucket     string
	MinioUseSSL     bool
	MaxUploadMB     int

	DatabaseURL string

	Gateway             string
	GatewayBaseURL      string
	GatewayAPIKey       string
	GatewayTokenURL     string
	GatewayClientID     string
	GatewayClientSecret string
	GatewayMaxRetries   int

	LLMProvider           string
	LLMModel              string
	OpenAIAPIKey          string
	GeminiAPIKey          string
	LLMTimeoutSeconds     int
	AnswerMaxContextChars int

	RateLimitIngestPerMin int
	RateLimitAskPerMin    int
	RedisAddr             string
	RedisPassword         string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	for _, path := range []string{".env", "cmd/.env"} {
		if err := godotenv.Load(path); err == nil {
			log.Printf("config: loaded %s", path)
		}
	}

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	port := getEnv("PORT", "8080")
	return Config{
		Port:            port,
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		PublicBaseURL:   strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:"+strings.TrimPrefix(port, ":")), "/"),
		JWTSecret:       getEnv("JWT_SECRET", ""),

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		MinioEndpoint:   getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey:  getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:  getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:     getEnv("MINIO_BUCKET", "study-uploads"),
		MinioUseSSL:     getEnvBool("MINIO_USE_SSL", false),
		MaxUploadMB:     getEnvInt("MAX_UPLOAD_MB", 20),

		DatabaseURL: dbURL,

		Gateway:             normalizeGateway(getEnv("GATEWAY", "builtin")),
		GatewayBaseURL:      strings.TrimRight(getEnv("GATEWAY_BASE_URL", ""), "/"),
		GatewayAPIKey:       getEnv("GATEWAY_API_KEY", ""),
		GatewayTokenURL:     getEnv("GATEWAY_TOKEN_URL", ""),
		GatewayClientID:     getEnv("GATEWAY_CLIENT_ID", ""),
		GatewayClientSecret: getEnv("GATEWAY_CLIENT_SECRET", ""),
		GatewayMaxRetries:   getEnvInt("GATEWAY_MAX_RETRIES", 0),

		LLMProvider:           normalizeProvider(getEnv("LLM_PROVIDER", "openai")),
		LLMModel:              getEnv("LLM_MODEL", ""),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		LLMTimeoutSeconds:     getEnvInt("LLM_TIMEOUT_SECONDS", 120),
		AnswerMaxContextChars: getEnvInt("ANSWER_MAX_CONTEXT_CHARS", 0),

		RateLimitIngestPerMin: getEnvInt("RATE_LIMIT_INGEST_PER_MIN", 0),
		RateLimitAskPerMin:    getEnvInt("RATE_LIMIT_ASK_PER_MIN", 0),
		RedisAddr:             getEnv("REDIS_ADDR", ""),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
	}
}

// IsDevLike reports whether the environment tolerates in-memory fallbacks.
func (c Config) IsDevLike() bool {
	return c.Env == "dev" || c.Env == "local" || c.Env == ""
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config: %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}

func normalizeGateway(raw string) string {
	if strings.ToLower(strings.TrimSpace(raw)) == "remote" {
		return "remote"
	}
	return "builtin"
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "gemini", "google":
		return "gemini"
	case "none", "":
		return "none"
	default:
		return "openai"
	}
}
