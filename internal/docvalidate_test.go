package internal

import (
	"context"
	"testing"

	"github.com/lychee-technology/formview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const postSchema = `{
	"type": "object",
	"required": ["title", "author"],
	"properties": {
		"title": {"type": "string", "minLength": 3, "pattern": "^[A-Z]"},
		"rating": {"type": "integer", "minimum": 1, "maximum": 5},
		"price": {"type": "number", "multipleOf": 0.05},
		"status": {"enum": ["draft", "live"]},
		"author": {"$ref": "user", "view": "single-select-ref"},
		"tags": {"type": "array", "items": {"type": "object", "properties": {"name": {"type": "string", "maxLength": 5}}}},
		"blocks": {"type": "array", "items": {"anyOf": [
			{"name": "paragraph", "type": "object", "properties": {"text": {"type": "string"}}}
		]}}
	}
}`

func TestCheckDocument(t *testing.T) {
	schema := parseSchema(t, postSchema)

	tests := []struct {
		name string
		doc  formview.Document
		want []formview.FieldError
	}{
		{
			name: "valid",
			doc: formview.Document{
				"title":  "Hello",
				"rating": 3.0,
				"price":  1.15,
				"status": "live",
				"author": map[string]any{"id_": "u1"},
				"tags":   []any{map[string]any{"name": "go"}},
				"blocks": []any{map[string]any{"type_": "paragraph", "text": "x"}},
			},
		},
		{
			name: "missing required",
			doc:  formview.Document{},
			want: []formview.FieldError{
				{Path: "/title", Code: "required"},
				{Path: "/author", Code: "required"},
			},
		},
		{
			name: "constraint failures",
			doc: formview.Document{
				"title":  "hi",
				"rating": 6.5,
				"price":  1.12,
				"status": "gone",
				"author": map[string]any{},
				"tags":   []any{map[string]any{"name": "golang"}},
				"blocks": []any{map[string]any{"type_": "video"}},
			},
			want: []formview.FieldError{
				{Path: "/title", Code: "minLength"},
				{Path: "/title", Code: "pattern"},
				{Path: "/rating", Code: "integer"},
				{Path: "/rating", Code: "maximum"},
				{Path: "/price", Code: "multipleOf"},
				{Path: "/status", Code: "enum"},
				{Path: "/author", Code: "required"},
				{Path: "/tags/0/name", Code: "maxLength"},
				{Path: "/blocks/0", Code: "variant"},
			},
		},
		{
			name: "type mismatch",
			doc:  formview.Document{"title": 5.0, "author": map[string]any{"id_": "u1"}, "tags": "x"},
			want: []formview.FieldError{
				{Path: "/title", Code: "type"},
				{Path: "/title", Code: "required"},
				{Path: "/tags", Code: "type"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckDocument(schema, tt.doc)
			codes := make([]formview.FieldError, len(got))
			for i, e := range got {
				codes[i] = formview.FieldError{Path: e.Path, Code: e.Code}
			}
			assert.Equal(t, len(tt.want), len(got), "errors: %v", got)
			if len(tt.want) > 0 {
				assert.Equal(t, tt.want, codes)
			}
		})
	}
}

func TestValidateDocument(t *testing.T) {
	schema := parseSchema(t, `{
		"type": "object",
		"required": ["title"],
		"properties": {
			"title": {"type": "string", "minLength": 3, "view": "text"},
			"author": {"$ref": "user"}
		}
	}`)

	require.NoError(t, ValidateDocument(schema, formview.Document{"title": "Hello", "author": map[string]any{"id_": "u1"}}))
	assert.Error(t, ValidateDocument(schema, formview.Document{"title": "Hi"}))
	assert.Error(t, ValidateDocument(schema, formview.Document{}))
	assert.Error(t, ValidateDocument(schema, formview.Document{"title": "Hello", "author": "u1"}))
}

func TestCheckDocumentAgreesWithFormOnReferences(t *testing.T) {
	const src = `{
		"type": "object",
		"required": ["author"],
		"properties": {"author": {"$ref": "user"}}
	}`
	users := newMemResource("user", nil)
	users.put(formview.Document{formview.FieldID: "u1", "name": "Ada"})
	author := formview.Path{}.Key("author")

	f := newTestForm(t, src, nil, FormOptions{Registry: memRegistry{"user": users}})
	require.NoError(t, f.SelectRef(context.Background(), author, "u1"))
	require.True(t, f.Valid(), "errors: %v", f.Errors())
	assert.Empty(t, CheckDocument(f.Schema(), f.Model()))

	// the document id field does not identify a reference
	f = newTestForm(t, src, formview.Document{"author": map[string]any{formview.FieldID: "u1"}}, FormOptions{})
	assert.Equal(t, []string{"/author:required"}, f.Errors())
	assert.Equal(t, []formview.FieldError{{Path: "/author", Code: "required", Message: "reference is required"}},
		CheckDocument(f.Schema(), f.Model()))
}
