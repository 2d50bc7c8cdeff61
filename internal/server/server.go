// Package server is a reference backend for the resource client: entity index,
// id generator, schemas, documents with id/rev concurrency, multipart
// attachments, and an "all" view plus a text search index per type.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lychee-technology/formview"
	"github.com/lychee-technology/formview/internal/store"
	"go.uber.org/zap"
)

// Server serves the document API.
type Server struct {
	cfg     formview.ServerConfig
	schemas *SchemaSet
	store   store.Store
	blobs   store.BlobStore
	mux     *http.ServeMux
}

// NewServer wires the API routes over the given schemas and stores.
func NewServer(cfg formview.ServerConfig, schemas *SchemaSet, docs store.Store, blobs store.BlobStore) *Server {
	s := &Server{
		cfg:     cfg,
		schemas: schemas,
		store:   docs,
		blobs:   blobs,
		mux:     http.NewServeMux(),
	}
	s.RegisterRoutes()
	return s
}

// RegisterRoutes registers all API routes below the configured prefix.
func (s *Server) RegisterRoutes() {
	api := http.NewServeMux()
	api.HandleFunc("GET /_index", s.handleIndex)
	api.HandleFunc("GET /_uuids", s.handleUUIDs)
	api.HandleFunc("GET /{type}/_schema", s.handleSchema)
	api.HandleFunc("GET /{type}/_view/{name}", s.handleView)
	api.HandleFunc("GET /{type}/_search/{name}", s.handleSearch)
	api.HandleFunc("GET /{type}", s.handleCollection)
	api.HandleFunc("POST /{type}", s.handleCreate)
	api.HandleFunc("GET /{type}/{id}", s.handleGet)
	api.HandleFunc("PUT /{type}/{id}", s.handleCreateWithID)
	api.HandleFunc("PUT /{type}/{id}/{rev}", s.handleUpdate)
	api.HandleFunc("DELETE /{type}/{id}/{rev}", s.handleDelete)

	// attachments live beside the api mux: "/_files/{key}" would overlap "/{type}/_schema"
	prefix := strings.TrimSuffix(s.cfg.APIPrefix, "/")
	s.mux.HandleFunc("GET "+prefix+"/_files/{key}", s.handleFile)
	if prefix == "" {
		s.mux.Handle("/", api)
		return
	}
	s.mux.Handle(prefix+"/", http.StripPrefix(prefix, api))
}

// Handler returns the root handler with request logging.
func (s *Server) Handler() http.Handler {
	return logRequests(s.mux)
}

// Start serves on the configured address until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		zap.S().Infow("starting server", "addr", addr, "prefix", s.cfg.APIPrefix)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		fields := []any{"method", r.Method, "path", r.URL.Path, "status", rec.status, "latency_ms", time.Since(start).Milliseconds()}
		if rec.status >= http.StatusInternalServerError {
			zap.S().Warnw("request failed", fields...)
			return
		}
		zap.S().Debugw("request", fields...)
	})
}
