package internal

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lychee-technology/formview"
)

// memResource is an in-process formview.Resource over a map of documents.
type memResource struct {
	typeName string
	schema   *formview.Schema

	mu       sync.Mutex
	docs     map[string]formview.Document
	seq      int
	saves    []formview.Document
	files    [][]formview.Attachment
	destroys int
	saveErr  error
	loadHook func(id string)
	views    []formview.Params
}

func newMemResource(typeName string, schema *formview.Schema) *memResource {
	return &memResource{typeName: typeName, schema: schema, docs: make(map[string]formview.Document)}
}

func (r *memResource) put(doc formview.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc.Rev() == "" {
		doc[formview.FieldRev] = "1-seed"
	}
	r.docs[doc.ID()] = doc
}

func (r *memResource) Type() string { return r.typeName }

func (r *memResource) Descriptor() formview.ResourceDescriptor {
	return formview.ResourceDescriptor{Path: "/" + r.typeName}
}

func (r *memResource) Schema(context.Context) (*formview.Schema, error) {
	if r.schema == nil {
		return nil, formview.NewTransportError(404, formview.ErrCodeNotFound, "no schema")
	}
	return r.schema, nil
}

func (r *memResource) Load(_ context.Context, id string, _ formview.Params) (formview.Document, error) {
	if r.loadHook != nil {
		r.loadHook(id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, formview.NewTransportError(404, formview.ErrCodeNotFound, "missing")
	}
	return doc.Clone()
}

func (r *memResource) Save(_ context.Context, doc formview.Document, files []formview.Attachment) (formview.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, _ = doc.Clone()
	r.saves = append(r.saves, doc)
	r.files = append(r.files, files)
	if r.saveErr != nil {
		return nil, r.saveErr
	}
	r.seq++
	if doc.ID() == "" {
		doc[formview.FieldID] = fmt.Sprintf("%s-%d", r.typeName, r.seq)
	}
	doc[formview.FieldRev] = fmt.Sprintf("%d-mem", r.seq)
	doc[formview.FieldType] = r.typeName
	r.docs[doc.ID()] = doc
	return doc.Clone()
}

func (r *memResource) Destroy(_ context.Context, doc formview.Document) error {
	if !doc.HasIdentity() {
		return formview.NewMissingIdentityError()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroys++
	delete(r.docs, doc.ID())
	return nil
}

// View serves "all": rows ordered by id, starting at startkey, at most limit rows.
func (r *memResource) View(_ context.Context, name string, params formview.Params) (*formview.ViewResult, error) {
	if name != "all" {
		return nil, formview.NewUnknownViewError(r.typeName, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, params)

	ids := make([]string, 0, len(r.docs))
	for id := range r.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	start, _ := params["startkey"].(string)
	limit, _ := params["limit"].(int)
	res := &formview.ViewResult{TotalRows: len(ids)}
	for _, id := range ids {
		if id < start {
			continue
		}
		if limit > 0 && len(res.Rows) == limit {
			break
		}
		doc, _ := r.docs[id].Clone()
		res.Rows = append(res.Rows, formview.ViewRow{ID: id, Doc: doc})
	}
	return res, nil
}

func (r *memResource) Search(_ context.Context, name string, _ formview.Params) (*formview.ViewResult, error) {
	return nil, formview.NewUnknownSearchIndexError(r.typeName, name)
}

type memRegistry map[string]formview.Resource

func (m memRegistry) Get(typeName string) (formview.Resource, error) {
	res, ok := m[typeName]
	if !ok {
		return nil, formview.NewUnknownResourceError(typeName)
	}
	return res, nil
}

func (m memRegistry) Types() []string {
	types := make([]string, 0, len(m))
	for t := range m {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func (m memRegistry) GetIDs(context.Context, int) ([]string, error) {
	return []string{"generated"}, nil
}
