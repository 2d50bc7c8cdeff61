package internal

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/lychee-technology/formview"
	"go.uber.org/zap"
)

// ResourceRegistry maps entity types to their resource clients. It is populated
// once by a RegistryBuilder and read-only afterwards.
type ResourceRegistry struct {
	baseURL   string
	tr        *Transport
	resources map[string]*ResourceClient
}

var _ formview.Registry = (*ResourceRegistry)(nil)

// RegistryBuilder loads the entity index of a backend into a ResourceRegistry.
type RegistryBuilder struct {
	baseURL string
	tr      *Transport
}

// NewRegistryBuilder creates a builder for the backend at cfg.BaseURL. A nil client
// uses a default one with the configured timeout.
func NewRegistryBuilder(cfg formview.ClientConfig, client *http.Client) *RegistryBuilder {
	return &RegistryBuilder{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		tr:      NewTransport(cfg, client),
	}
}

// Build fetches {base}/_index and creates one resource client per entry.
func (b *RegistryBuilder) Build(ctx context.Context) (*ResourceRegistry, error) {
	index := make(map[string]formview.ResourceDescriptor)
	boot := &ResourceClient{typeName: "_index", tr: b.tr}
	if err := boot.do(ctx, http.MethodGet, b.baseURL+"/_index", nil, &index); err != nil {
		return nil, err
	}
	r := b.FromIndex(index)
	zap.S().Infow("resource registry initialised", "baseURL", b.baseURL, "types", len(r.resources))
	return r, nil
}

// FromIndex creates the registry from an already fetched entity index.
func (b *RegistryBuilder) FromIndex(index map[string]formview.ResourceDescriptor) *ResourceRegistry {
	r := &ResourceRegistry{
		baseURL:   b.baseURL,
		tr:        b.tr,
		resources: make(map[string]*ResourceClient, len(index)),
	}
	for typeName, desc := range index {
		r.resources[typeName] = NewResourceClient(typeName, desc.WithBase(b.baseURL), b.tr)
	}
	return r
}

// Get returns the resource of typeName.
func (r *ResourceRegistry) Get(typeName string) (formview.Resource, error) {
	res, ok := r.resources[typeName]
	if !ok {
		return nil, formview.NewUnknownResourceError(typeName)
	}
	return res, nil
}

// Types lists the registered entity types, sorted.
func (r *ResourceRegistry) Types() []string {
	types := make([]string, 0, len(r.resources))
	for t := range r.resources {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// GetIDs asks the backend for count fresh identifiers; count below 1 asks for one.
func (r *ResourceRegistry) GetIDs(ctx context.Context, count int) ([]string, error) {
	if count < 1 {
		count = 1
	}
	var res struct {
		UUIDs []string `json:"uuids"`
	}
	client := &ResourceClient{typeName: "_uuids", tr: r.tr}
	if err := client.do(ctx, http.MethodGet, r.baseURL+"/_uuids?count="+strconv.Itoa(count), nil, &res); err != nil {
		return nil, err
	}
	return res.UUIDs, nil
}
