package formview

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Reserved document fields.
const (
	FieldID   = "_id"
	FieldRev  = "_rev"
	FieldType = "type_"

	// FieldRefID holds the referenced document id inside a reference value.
	FieldRefID = "id_"
)

// Document is a top-level data value exchanged with a resource.
type Document map[string]any

// ID returns the document identity or "".
func (d Document) ID() string { return d.stringField(FieldID) }

// Rev returns the revision token or "".
func (d Document) Rev() string { return d.stringField(FieldRev) }

// Type returns the entity type discriminator or "".
func (d Document) Type() string { return d.stringField(FieldType) }

// HasIdentity reports whether both id and rev are present.
func (d Document) HasIdentity() bool { return d.ID() != "" && d.Rev() != "" }

// IsNew reports whether the document has never been saved.
func (d Document) IsNew() bool { return d.Rev() == "" }

func (d Document) stringField(name string) string {
	if d == nil {
		return ""
	}
	s, _ := d[name].(string)
	return s
}

// Clone returns a deep copy through a JSON round trip.
func (d Document) Clone() (Document, error) {
	if d == nil {
		return nil, nil
	}
	var out Document
	if err := CloneJSON(d, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AsDocument converts an object value to a Document.
func AsDocument(v any) (Document, bool) {
	switch m := v.(type) {
	case Document:
		return m, true
	case map[string]any:
		return Document(m), true
	}
	return nil, false
}

// CloneJSON copies src into dst by encoding and decoding it.
func CloneJSON(src any, dst any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	return nil
}

// CloneValue returns a deep copy of a JSON-shaped value.
func CloneValue(v any) (any, error) {
	switch v.(type) {
	case nil, string, bool, float64, int, int64:
		return v, nil
	}
	var out any
	if err := CloneJSON(v, &out); err != nil {
		return nil, err
	}
	return out, nil
}
