package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/lychee-technology/formview"
)

// MemoryStore keeps documents in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]formview.Document
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string]formview.Document)}
}

func (s *MemoryStore) Get(ctx context.Context, typeName, id string) (formview.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[typeName][id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc.Clone()
}

func (s *MemoryStore) Put(ctx context.Context, typeName string, doc formview.Document) (formview.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.docs[typeName]
	if docs == nil {
		docs = make(map[string]formview.Document)
		s.docs[typeName] = docs
	}
	stored, exists := docs[doc.ID()]
	out, err := prepare(typeName, doc, stored.Rev(), exists && doc.ID() != "")
	if err != nil {
		return nil, err
	}
	docs[out.ID()] = out
	return out.Clone()
}

func (s *MemoryStore) Delete(ctx context.Context, typeName, id, rev string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.docs[typeName][id]
	if !ok {
		return ErrNotFound
	}
	if stored.Rev() != rev {
		return ErrConflict
	}
	delete(s.docs[typeName], id)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, typeName string, q ListQuery) ([]formview.Document, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.docs[typeName]))
	for id, doc := range s.docs[typeName] {
		if q.Text != "" && !containsText(doc, q.Text) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	total := len(ids)

	out := make([]formview.Document, 0)
	for _, id := range ids {
		if id < q.StartKey {
			continue
		}
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
		doc, err := s.docs[typeName][id].Clone()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, doc)
	}
	return out, total, nil
}

func containsText(doc formview.Document, text string) bool {
	data, err := json.Marshal(doc)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(data)), strings.ToLower(text))
}
