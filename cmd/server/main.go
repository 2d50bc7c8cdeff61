package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/lychee-technology/formview"
	"github.com/lychee-technology/formview/factory"
	"github.com/lychee-technology/formview/internal/store"
	"go.uber.org/zap"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	logger, err := factory.NewLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool store.Pool
	if cfg.Server.Backend == "postgres" {
		pgPool, err := factory.NewDatabasePool(ctx, cfg.Database)
		if err != nil {
			sugar.Fatalf("failed to create database pool: %v", err)
		}
		defer pgPool.Close()
		pool = pgPool
	}

	backend, err := factory.NewBackend(ctx, cfg, pool)
	if err != nil {
		sugar.Fatalf("failed to create backend: %v", err)
	}

	sugar.Infow("schema directory", "dir", cfg.Server.SchemaDir, "backend", cfg.Server.Backend, "blobs", cfg.Blob.Backend)
	if err := backend.Start(ctx); err != nil {
		sugar.Fatalf("server error: %v", err)
	}
}

// loadConfig reads CONFIG_FILE when set, then applies environment overrides.
func loadConfig() (*formview.Config, error) {
	cfg := formview.DefaultConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		loaded, err := formview.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	applyEnv(cfg)
	return cfg, cfg.Validate()
}

func applyEnv(cfg *formview.Config) {
	cfg.Server.Host = getEnv("HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("PORT", cfg.Server.Port)
	cfg.Server.APIPrefix = getEnv("API_PREFIX", cfg.Server.APIPrefix)
	cfg.Server.SchemaDir = getEnv("SCHEMA_DIR", cfg.Server.SchemaDir)
	cfg.Server.Backend = getEnv("STORE_BACKEND", cfg.Server.Backend)

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvInt("DB_PORT", cfg.Database.Port)
	cfg.Database.Database = getEnv("DB_NAME", cfg.Database.Database)
	cfg.Database.Username = getEnv("DB_USER", cfg.Database.Username)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.SSLMode = getEnv("DB_SSL_MODE", cfg.Database.SSLMode)
	cfg.Database.Table = getEnv("DB_TABLE", cfg.Database.Table)
	cfg.Database.MaxConnections = getEnvInt("DB_MAX_CONNECTIONS", cfg.Database.MaxConnections)
	cfg.Database.ConnMaxLifetime = time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_SECONDS", int(cfg.Database.ConnMaxLifetime/time.Second))) * time.Second
	cfg.Database.Timeout = time.Duration(getEnvInt("DB_TIMEOUT_SECONDS", int(cfg.Database.Timeout/time.Second))) * time.Second
	cfg.Database.IAMAuth = getEnv("DB_IAM_AUTH", strconv.FormatBool(cfg.Database.IAMAuth)) == "true"
	cfg.Database.Region = getEnv("AWS_REGION", cfg.Database.Region)

	cfg.Blob.Backend = getEnv("BLOB_BACKEND", cfg.Blob.Backend)
	cfg.Blob.Bucket = getEnv("S3_BUCKET", cfg.Blob.Bucket)
	cfg.Blob.Prefix = getEnv("S3_PREFIX", cfg.Blob.Prefix)
	cfg.Blob.Region = getEnv("AWS_REGION", cfg.Blob.Region)
	cfg.Blob.Endpoint = getEnv("S3_ENDPOINT", cfg.Blob.Endpoint)
	cfg.Blob.AccessKeyID = getEnv("AWS_ACCESS_KEY_ID", cfg.Blob.AccessKeyID)
	cfg.Blob.SecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", cfg.Blob.SecretAccessKey)
	cfg.Blob.PublicURL = getEnv("BLOB_PUBLIC_URL", cfg.Blob.PublicURL)

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
