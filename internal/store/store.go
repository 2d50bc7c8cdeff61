// Package store persists documents and attachments for the reference backend.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lychee-technology/formview"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrConflict = errors.New("document update conflict")
)

// ListQuery selects a page of documents ordered by id.
type ListQuery struct {
	// StartKey is the inclusive first id; empty starts at the beginning.
	StartKey string
	// Limit bounds the page; zero returns every matching document.
	Limit int
	// Text keeps documents whose JSON body contains it, case-insensitively.
	Text string
}

// Store keeps documents per entity type with optimistic concurrency on _rev.
type Store interface {
	Get(ctx context.Context, typeName, id string) (formview.Document, error)
	// Put creates or updates doc. Updates must carry the stored _rev and creates
	// must not carry one, otherwise ErrConflict. The stored document is returned
	// with its new _rev.
	Put(ctx context.Context, typeName string, doc formview.Document) (formview.Document, error)
	Delete(ctx context.Context, typeName, id, rev string) error
	// List returns one page and the number of documents matching the query.
	List(ctx context.Context, typeName string, q ListQuery) ([]formview.Document, int, error)
}

// NewID returns a fresh document id.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NextRev returns the revision following rev, in the form "<n>-<hex>".
func NextRev(rev string) string {
	n := 0
	if head, _, ok := strings.Cut(rev, "-"); ok {
		n, _ = strconv.Atoi(head)
	}
	return fmt.Sprintf("%d-%s", n+1, NewID())
}

// prepare validates the revision against the stored one and stamps identity fields.
func prepare(typeName string, doc formview.Document, storedRev string, exists bool) (formview.Document, error) {
	out, err := doc.Clone()
	if err != nil {
		return nil, fmt.Errorf("clone document: %w", err)
	}
	if out == nil {
		out = formview.Document{}
	}
	rev := out.Rev()
	switch {
	case exists && rev != storedRev:
		return nil, ErrConflict
	case !exists && rev != "":
		return nil, ErrNotFound
	}
	if out.ID() == "" {
		out[formview.FieldID] = NewID()
	}
	out[formview.FieldRev] = NextRev(rev)
	out[formview.FieldType] = typeName
	return out, nil
}
