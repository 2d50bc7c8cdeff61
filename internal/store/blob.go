package store

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrBlobNotFound is returned for unknown attachment keys.
var ErrBlobNotFound = errors.New("attachment not found")

// BlobStore keeps uploaded attachments.
type BlobStore interface {
	// Put stores data under key and returns the URL clients fetch it from.
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Get(ctx context.Context, key string) ([]byte, string, error)
}

type blob struct {
	data        []byte
	contentType string
}

// MemoryBlobStore keeps attachments in process memory. URLs point at baseURL + key.
type MemoryBlobStore struct {
	mu      sync.RWMutex
	baseURL string
	blobs   map[string]blob
}

var _ BlobStore = (*MemoryBlobStore)(nil)

// NewMemoryBlobStore creates a store whose URLs start with baseURL.
func NewMemoryBlobStore(baseURL string) *MemoryBlobStore {
	return &MemoryBlobStore{baseURL: strings.TrimSuffix(baseURL, "/"), blobs: make(map[string]blob)}
}

func (s *MemoryBlobStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = blob{data: append([]byte(nil), data...), contentType: contentType}
	return s.baseURL + "/" + key, nil
}

func (s *MemoryBlobStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[key]
	if !ok {
		return nil, "", ErrBlobNotFound
	}
	return append([]byte(nil), b.data...), b.contentType, nil
}
