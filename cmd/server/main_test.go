package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lychee-technology/formview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("API_PREFIX", "/api")
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("DB_TIMEOUT_SECONDS", "12")
	t.Setenv("DB_IAM_AUTH", "true")
	t.Setenv("BLOB_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "attachments")

	cfg := formview.DefaultConfig()
	applyEnv(cfg)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/api", cfg.Server.APIPrefix)
	assert.Equal(t, "postgres", cfg.Server.Backend)
	assert.Equal(t, 5432, cfg.Database.Port, "unparsable ints keep the default")
	assert.Equal(t, 12*time.Second, cfg.Database.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.True(t, cfg.Database.IAMAuth)
	assert.Equal(t, "s3", cfg.Blob.Backend)
	assert.Equal(t, "attachments", cfg.Blob.Bucket)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formview.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7070\n  schemaDir: ./schemas\n"), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "./schemas", cfg.Server.SchemaDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfigRejectsInvalidEnv(t *testing.T) {
	t.Setenv("LOG_FORMAT", "xml")
	_, err := loadConfig()
	var cfgErr *formview.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "logging.format", cfgErr.Field)
}
