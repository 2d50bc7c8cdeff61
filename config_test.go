package formview

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultNamespace, cfg.Form.Namespace)
	assert.True(t, cfg.Form.FenceLoads)
	assert.Equal(t, "memory", cfg.Server.Backend)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{name: "timeout", modify: func(c *Config) { c.Client.Timeout = 0 }, field: "client.timeout"},
		{name: "namespace", modify: func(c *Config) { c.Form.Namespace = "" }, field: "form.namespace"},
		{name: "page size", modify: func(c *Config) { c.Form.PageSize = 0 }, field: "form.pageSize"},
		{name: "port", modify: func(c *Config) { c.Server.Port = 70000 }, field: "server.port"},
		{name: "backend", modify: func(c *Config) { c.Server.Backend = "duckdb" }, field: "server.backend"},
		{
			name: "postgres pool",
			modify: func(c *Config) {
				c.Server.Backend = "postgres"
				c.Database.MaxConnections = 0
			},
			field: "database.maxConnections",
		},
		{
			name: "postgres table",
			modify: func(c *Config) {
				c.Server.Backend = "postgres"
				c.Database.Table = ""
			},
			field: "database.table",
		},
		{name: "bucket", modify: func(c *Config) { c.Blob.Backend = "s3" }, field: "blob.bucket"},
		{name: "blob backend", modify: func(c *Config) { c.Blob.Backend = "gcs" }, field: "blob.backend"},
		{name: "log format", modify: func(c *Config) { c.Logging.Format = "xml" }, field: "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
client:
  baseURL: http://api.local
  timeout: 5s
form:
  pageSize: 50
server:
  backend: postgres
blob:
  backend: s3
  bucket: uploads
`), 0o644))

	cfg, err := LoadConfig(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "http://api.local", cfg.Client.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 50, cfg.Form.PageSize)
	assert.Equal(t, DefaultNamespace, cfg.Form.Namespace, "unset fields keep their defaults")
	assert.Equal(t, "uploads", cfg.Blob.Bucket)

	jsonPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"server": {"port": 9090}}`), 0o644))
	cfg, err = LoadConfig(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)

	badPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badPath, []byte("logging:\n  format: xml\n"), 0o644))
	_, err = LoadConfig(badPath)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
