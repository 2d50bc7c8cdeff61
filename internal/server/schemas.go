package server

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/lychee-technology/formview"
	"go.uber.org/zap"
)

// SchemaSet holds the entity schemas served by the backend, keyed by type name.
type SchemaSet struct {
	mu      sync.RWMutex
	schemas map[string]*formview.Schema
}

func NewSchemaSet() *SchemaSet {
	return &SchemaSet{schemas: make(map[string]*formview.Schema)}
}

// LoadSchemaDir reads every .json, .yaml and .yml file of dir. The file name without
// extension is the entity type.
func LoadSchemaDir(dir string) (*SchemaSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read schema directory %s: %w", dir, err)
	}
	set := NewSchemaSet()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read schema file %s: %w", path, err)
		}
		var schema *formview.Schema
		if ext == ".json" {
			schema, err = formview.ParseSchema(data)
		} else {
			schema, err = formview.ParseSchemaYAML(data)
		}
		if err != nil {
			return nil, fmt.Errorf("parse schema file %s: %w", path, err)
		}
		if err := set.Add(strings.TrimSuffix(name, filepath.Ext(name)), schema); err != nil {
			return nil, err
		}
	}
	zap.S().Infow("loaded schemas", "dir", dir, "types", len(set.schemas))
	return set, nil
}

// Add registers schema under typeName. The top level has to be an object.
func (s *SchemaSet) Add(typeName string, schema *formview.Schema) error {
	if !formview.IsObjectSchema(schema) {
		return formview.NewUnsupportedSchemaError("", "top level schema of "+typeName+" has to be an object")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas[typeName] = schema
	return nil
}

func (s *SchemaSet) Get(typeName string) (*formview.Schema, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	schema, ok := s.schemas[typeName]
	return schema, ok
}

// Types lists the registered types, sorted.
func (s *SchemaSet) Types() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	types := make([]string, 0, len(s.schemas))
	for t := range s.schemas {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Index describes the endpoints of every type, relative to the API base.
func (s *SchemaSet) Index() map[string]formview.ResourceDescriptor {
	index := make(map[string]formview.ResourceDescriptor)
	for _, t := range s.Types() {
		index[t] = formview.ResourceDescriptor{
			Path:        "/" + t,
			SchemaPath:  "/" + t + "/_schema",
			ViewPaths:   map[string]string{"all": "/" + t + "/_view/all"},
			SearchPaths: map[string]string{"text": "/" + t + "/_search/text"},
		}
	}
	return index
}
