package factory

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dsql/auth"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/formview"
	"github.com/lychee-technology/formview/internal"
	"github.com/lychee-technology/formview/internal/server"
	"github.com/lychee-technology/formview/internal/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger from the logging settings. Callers usually
// install it with zap.ReplaceGlobals, which every package logs through.
func NewLogger(cfg formview.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, &formview.ConfigError{Field: "logging.level", Message: err.Error()}
	}
	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// NewRegistry fetches the entity index of the backend at cfg.BaseURL and returns a
// registry with one resource per entity type.
//
// Usage:
//
//	cfg := formview.DefaultConfig()
//	registry, err := factory.NewRegistry(ctx, cfg.Client, nil)
//	if err != nil {
//	    // handle error
//	}
//	res, err := registry.Get("article")
func NewRegistry(ctx context.Context, cfg formview.ClientConfig, client *http.Client) (formview.Registry, error) {
	return internal.NewRegistryBuilder(cfg, client).Build(ctx)
}

// ControllerParams selects the document a model controller edits.
type ControllerParams struct {
	Type string
	// ID binds an existing document. Empty starts from the schema's default document.
	ID string
	// Defaults are JSON pointer assignments applied to every default document.
	Defaults map[string]any
	Engine   formview.ViewEngine
}

// NewModelController creates a controller and runs its initial schema fetch and load.
// When the initial load fails the controller is returned in the error state together
// with the error, so callers can still subscribe, retry or rebind.
//
// Usage:
//
//	ctrl, err := factory.NewModelController(ctx, registry, cfg.Form, factory.ControllerParams{
//	    Type: "article",
//	    ID:   "8d3c",
//	})
func NewModelController(ctx context.Context, registry formview.Registry, cfg formview.FormConfig, params ControllerParams) (formview.ModelController, error) {
	ctrl, err := internal.NewModelController(internal.ModelControllerOptions{
		Registry:           registry,
		Type:               params.Type,
		ID:                 params.ID,
		Defaults:           params.Defaults,
		Namespace:          cfg.Namespace,
		Engine:             params.Engine,
		ValidateBeforeSave: cfg.ValidateBeforeSave,
		FenceLoads:         cfg.FenceLoads,
	})
	if err != nil {
		return nil, err
	}
	if err := ctrl.Init(ctx); err != nil {
		return ctrl, err
	}
	return ctrl, nil
}

// NewForm compiles schema against model without a controller. Attachments are not
// collected; use a model controller for documents with files.
func NewForm(schema *formview.Schema, model formview.Document, cfg formview.FormConfig, registry formview.Registry, engine formview.ViewEngine) (formview.Form, error) {
	return internal.NewForm(schema, model, internal.FormOptions{
		Namespace: cfg.Namespace,
		Registry:  registry,
		Engine:    engine,
	})
}

// NewModelList creates a paginated list over the "all" view of typeName and loads
// its first page.
func NewModelList(ctx context.Context, registry formview.Registry, cfg formview.FormConfig, typeName string, headers []string) (formview.ModelList, error) {
	list, err := internal.NewModelList(internal.ModelListOptions{
		Registry: registry,
		Type:     typeName,
		Limit:    cfg.PageSize,
		Headers:  headers,
	})
	if err != nil {
		return nil, err
	}
	if err := list.Init(ctx); err != nil {
		return nil, err
	}
	return list, nil
}

// NewDatabasePool opens a PostgreSQL pool. With IAMAuth every new connection gets a
// fresh DSQL auth token as its password.
func NewDatabasePool(ctx context.Context, cfg formview.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(ConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.ConnConfig.ConnectTimeout = cfg.Timeout

	if cfg.IAMAuth {
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		endpoint := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		poolConfig.BeforeConnect = func(ctx context.Context, cc *pgx.ConnConfig) error {
			token, err := auth.GenerateDbConnectAuthToken(ctx, endpoint, awsCfg.Region, awsCfg.Credentials)
			if err != nil {
				return fmt.Errorf("generate iam auth token: %w", err)
			}
			cc.Password = token
			return nil
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	zap.S().Infow("database pool ready", "host", cfg.Host, "database", cfg.Database, "iam", cfg.IAMAuth)
	return pool, nil
}

// ConnString renders cfg as a postgres:// URL. The password is left out under IAM auth.
func ConnString(cfg formview.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Database,
	}
	switch {
	case cfg.IAMAuth || cfg.Password == "":
		u.User = url.User(cfg.Username)
	default:
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	q := url.Values{}
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Backend is the reference document server.
type Backend struct {
	server *server.Server
}

// Handler returns the HTTP handler of the backend.
func (b *Backend) Handler() http.Handler { return b.server.Handler() }

// Start serves until ctx is cancelled.
func (b *Backend) Start(ctx context.Context) error { return b.server.Start(ctx) }

// NewBackend assembles the reference backend: schemas from cfg.Server.SchemaDir, the
// document store selected by cfg.Server.Backend and the attachment store selected by
// cfg.Blob.Backend. pool is only used by the postgres backend; *pgxpool.Pool
// satisfies it.
//
// Usage:
//
//	cfg, err := formview.LoadConfig("formview.yaml")
//	pool, err := factory.NewDatabasePool(ctx, cfg.Database)
//	backend, err := factory.NewBackend(ctx, cfg, pool)
//	err = backend.Start(ctx)
func NewBackend(ctx context.Context, cfg *formview.Config, pool store.Pool) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	schemas, err := server.LoadSchemaDir(cfg.Server.SchemaDir)
	if err != nil {
		return nil, err
	}
	docs, err := NewDocumentStore(ctx, cfg, pool)
	if err != nil {
		return nil, err
	}
	blobs, err := NewBlobStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Backend{server: server.NewServer(cfg.Server, schemas, docs, blobs)}, nil
}

// NewDocumentStore returns the document store of cfg.Server.Backend. The postgres
// store creates its table when missing.
func NewDocumentStore(ctx context.Context, cfg *formview.Config, pool store.Pool) (store.Store, error) {
	switch cfg.Server.Backend {
	case "postgres":
		if pool == nil {
			return nil, fmt.Errorf("postgres backend requires a database pool")
		}
		pg := store.NewPostgresStore(pool, cfg.Database.Table)
		if err := pg.EnsureTable(ctx); err != nil {
			return nil, err
		}
		return pg, nil
	case "memory", "":
		return store.NewMemoryStore(), nil
	}
	return nil, &formview.ConfigError{Field: "server.backend", Message: "must be one of memory, postgres"}
}

// NewBlobStore returns the attachment store of cfg.Blob.Backend. In-memory
// attachments are served by the backend itself under {apiPrefix}/_files.
func NewBlobStore(ctx context.Context, cfg *formview.Config) (store.BlobStore, error) {
	switch cfg.Blob.Backend {
	case "s3":
		s3Store, err := store.NewS3BlobStore(ctx, cfg.Blob)
		if err != nil {
			return nil, err
		}
		if err := s3Store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s3Store, nil
	case "memory", "":
		return store.NewMemoryBlobStore(memoryBlobURL(cfg)), nil
	}
	return nil, &formview.ConfigError{Field: "blob.backend", Message: "must be one of memory, s3"}
}

func memoryBlobURL(cfg *formview.Config) string {
	if cfg.Blob.PublicURL != "" {
		return cfg.Blob.PublicURL
	}
	host := cfg.Server.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	prefix := strings.TrimSuffix(cfg.Server.APIPrefix, "/")
	return "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.Server.Port)) + prefix + "/_files"
}
