package formview

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config consolidates client, form, server and storage settings
type Config struct {
	Client   ClientConfig   `json:"client" yaml:"client"`
	Form     FormConfig     `json:"form" yaml:"form"`
	Server   ServerConfig   `json:"server" yaml:"server"`
	Database DatabaseConfig `json:"database" yaml:"database"`
	Blob     BlobConfig     `json:"blob" yaml:"blob"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
}

// ClientConfig contains resource client settings
type ClientConfig struct {
	BaseURL   string            `json:"baseURL" yaml:"baseURL"`
	Timeout   time.Duration     `json:"timeout" yaml:"timeout"`
	Headers   map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	UserAgent string            `json:"userAgent" yaml:"userAgent"`
}

// FormConfig contains form compilation and lifecycle settings
type FormConfig struct {
	Namespace          string `json:"namespace" yaml:"namespace"`
	PageSize           int    `json:"pageSize" yaml:"pageSize"`
	ValidateBeforeSave bool   `json:"validateBeforeSave" yaml:"validateBeforeSave"`
	FenceLoads         bool   `json:"fenceLoads" yaml:"fenceLoads"`
}

// ServerConfig contains reference backend settings
type ServerConfig struct {
	Host           string `json:"host" yaml:"host"`
	Port           int    `json:"port" yaml:"port"`
	APIPrefix      string `json:"apiPrefix" yaml:"apiPrefix"`
	SchemaDir      string `json:"schemaDir" yaml:"schemaDir"`
	Backend        string `json:"backend" yaml:"backend"` // memory or postgres
	MaxUploadBytes int64  `json:"maxUploadBytes" yaml:"maxUploadBytes"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host            string        `json:"host" yaml:"host"`
	Port            int           `json:"port" yaml:"port"`
	Database        string        `json:"database" yaml:"database"`
	Username        string        `json:"username" yaml:"username"`
	Password        string        `json:"password" yaml:"password"`
	SSLMode         string        `json:"sslMode" yaml:"sslMode"`
	Table           string        `json:"table" yaml:"table"`
	MaxConnections  int           `json:"maxConnections" yaml:"maxConnections"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" yaml:"connMaxLifetime"`
	Timeout         time.Duration `json:"timeout" yaml:"timeout"`
	IAMAuth         bool          `json:"iamAuth" yaml:"iamAuth"`
	Region          string        `json:"region" yaml:"region"`
}

// BlobConfig contains attachment storage settings
type BlobConfig struct {
	Backend         string `json:"backend" yaml:"backend"` // memory or s3
	Bucket          string `json:"bucket" yaml:"bucket"`
	Prefix          string `json:"prefix" yaml:"prefix"`
	Region          string `json:"region" yaml:"region"`
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	AccessKeyID     string `json:"accessKeyID" yaml:"accessKeyID"`
	SecretAccessKey string `json:"secretAccessKey" yaml:"secretAccessKey"`
	PublicURL       string `json:"publicURL" yaml:"publicURL"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // json or console
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Client: ClientConfig{
			BaseURL:   "http://localhost:8080",
			Timeout:   30 * time.Second,
			UserAgent: "formview",
		},
		Form: FormConfig{
			Namespace:  DefaultNamespace,
			PageSize:   20,
			FenceLoads: true,
		},
		Server: ServerConfig{
			Port:           8080,
			SchemaDir:      "schemas",
			Backend:        "memory",
			MaxUploadBytes: 32 << 20,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "formview",
			SSLMode:         "disable",
			Table:           "documents",
			MaxConnections:  10,
			ConnMaxLifetime: 5 * time.Minute,
			Timeout:         30 * time.Second,
		},
		Blob: BlobConfig{
			Backend: "memory",
			Prefix:  "attachments/",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Client.Timeout <= 0 {
		return &ConfigError{Field: "client.timeout", Message: "must be greater than 0"}
	}

	if c.Form.Namespace == "" {
		return &ConfigError{Field: "form.namespace", Message: "must not be empty"}
	}

	if c.Form.PageSize <= 0 {
		return &ConfigError{Field: "form.pageSize", Message: "must be greater than 0"}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &ConfigError{Field: "server.port", Message: "must be between 1 and 65535"}
	}

	switch c.Server.Backend {
	case "memory":
	case "postgres":
		if c.Database.MaxConnections <= 0 {
			return &ConfigError{Field: "database.maxConnections", Message: "must be greater than 0"}
		}
		if c.Database.Table == "" {
			return &ConfigError{Field: "database.table", Message: "must not be empty"}
		}
	default:
		return &ConfigError{Field: "server.backend", Message: "must be one of memory, postgres"}
	}

	switch c.Blob.Backend {
	case "memory":
	case "s3":
		if c.Blob.Bucket == "" {
			return &ConfigError{Field: "blob.bucket", Message: "is required for the s3 backend"}
		}
	default:
		return &ConfigError{Field: "blob.backend", Message: "must be one of memory, s3"}
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return &ConfigError{Field: "logging.format", Message: "must be one of json, console"}
	}

	return nil
}

// LoadConfig reads a YAML or JSON file over the defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}
