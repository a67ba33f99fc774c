package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver
	_ "github.com/mattn/go-sqlite3"    // register sqlite3 as database/sql driver

	"study-backend/internal/shared/telemetry"
)

// Options controls database pool and connectivity behavior.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	PingAttempts    int
}

var (
	openDB         = sql.Open
	singletonMu    sync.Mutex
	singletonCond  = sync.NewCond(&singletonMu)
	singletonDB    *sql.DB
	singletonInFly bool
)

// IsLambdaRuntime reports whether the current process is running in AWS Lambda.
func IsLambdaRuntime() bool {
	return strings.TrimSpace(os.Getenv("AWS_LAMBDA_FUNCTION_NAME")) != ""
}

// DefaultLambdaOptions returns conservative defaults for Lambda concurrency.
func DefaultLambdaOptions() Options {
	return Options{
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxIdleTime: 30 * time.Second,
		ConnMaxLifetime: 15 * time.Minute,
		PingTimeout:     3 * time.Second,
		PingAttempts:    1,
	}
}

// DefaultServerOptions returns defaults for long-running server processes.
func DefaultServerOptions() Options {
	return Options{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
		PingAttempts:    5,
	}
}

// DefaultMigrateOptions returns defaults for short-lived CLI migrations.
func DefaultMigrateOptions() Options {
	return Options{
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
		PingAttempts:    3,
	}
}

// OptionsFromEnv overrides defaults with the DB_* variables that are set.
// Malformed values are logged and ignored.
func OptionsFromEnv(defaults Options) Options {
	opts := defaults
	ints := []struct {
		key string
		dst *int
	}{
		{"DB_MAX_OPEN_CONNS", &opts.MaxOpenConns},
		{"DB_MAX_IDLE_CONNS", &opts.MaxIdleConns},
		{"DB_PING_ATTEMPTS", &opts.PingAttempts},
	}
	for _, e := range ints {
		if raw := strings.TrimSpace(os.Getenv(e.key)); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				telemetry.Warn("db.env_invalid", map[string]any{"key": e.key, "value": raw, "error": err})
				continue
			}
			*e.dst = v
		}
	}
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"DB_CONN_MAX_LIFETIME", &opts.ConnMaxLifetime},
		{"DB_CONN_MAX_IDLE_TIME", &opts.ConnMaxIdleTime},
		{"DB_PING_TIMEOUT", &opts.PingTimeout},
	}
	for _, e := range durations {
		if raw := strings.TrimSpace(os.Getenv(e.key)); raw != "" {
			v, err := time.ParseDuration(raw)
			if err != nil {
				telemetry.Warn("db.env_invalid", map[string]any{"key": e.key, "value": raw, "error": err})
				continue
			}
			*e.dst = v
		}
	}
	return opts
}

// Connect opens a *sql.DB for DATABASE_URL and verifies connectivity, retrying the
// ping with exponential backoff. The returned *sql.DB should be shared by callers.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	target, err := ParseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	db, err := openDB(target.Driver, target.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if target.Dialect == SQLite {
		// :memory: databases live per connection.
		opts.MaxOpenConns = 1
		opts.MaxIdleConns = 1
	}
	applyOptions(db, opts)

	if err := pingWithRetry(ctx, db, opts); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	stats := db.Stats()
	telemetry.Info("db.connected", map[string]any{
		"dialect":  string(target.Dialect),
		"open":     stats.OpenConnections,
		"max_open": stats.MaxOpenConnections,
		"lambda":   IsLambdaRuntime(),
	})
	return db, nil
}

func pingWithRetry(ctx context.Context, db *sql.DB, opts Options) error {
	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	attempts := opts.PingAttempts
	if attempts <= 0 {
		attempts = 1
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 250 * time.Millisecond
	exp.MaxInterval = 5 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			telemetry.Warn("db.ping_failed", map[string]any{"attempt": attempt, "attempts": attempts, "error": err})
			return err
		}
		return nil
	}, policy)
}

// GetSingleton returns a process-wide *sql.DB, initializing it once per execution environment.
// If initialization fails, a later call will retry until successful.
func GetSingleton(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	singletonMu.Lock()
	if singletonDB != nil {
		singletonMu.Unlock()
		return singletonDB, nil
	}
	if singletonInFly {
		for singletonInFly && singletonDB == nil {
			singletonCond.Wait()
		}
		if singletonDB != nil {
			singletonMu.Unlock()
			return singletonDB, nil
		}
	}
	singletonInFly = true
	singletonMu.Unlock()

	db, err := Connect(ctx, databaseURL, opts)

	singletonMu.Lock()
	if err == nil {
		singletonDB = db
	}
	singletonInFly = false
	singletonCond.Broadcast()
	singletonMu.Unlock()

	if err == nil {
		telemetry.Info("db.singleton_init", map[string]any{"cold_start": true})
	}
	return singletonDB, err
}

func applyOptions(db *sql.DB, opts Options) {
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = time.Hour
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}
