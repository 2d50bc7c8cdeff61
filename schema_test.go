package formview

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blogSchema = `{
	"type": "object",
	"title": "Blog post",
	"required": ["title"],
	"properties": {
		"title": {"type": "string", "minLength": 3, "maxLength": 80},
		"body": {"type": "string", "view": "text"},
		"author": {"$ref": "user", "view": {"type": "single-select-ref", "name": "Written by", "previewPath": "/name"}},
		"rating": {"type": "integer", "minimum": 1, "maximum": 5, "x-hint": "stars"},
		"blocks": {
			"type": "array",
			"items": {
				"anyOf": [
					{"name": "paragraph", "type": "object", "properties": {"text": {"type": "string"}}},
					{"name": "quote", "type": "object", "properties": {"cite": {"type": "string"}}}
				]
			}
		}
	}
}`

func TestParseSchemaKeepsPropertyOrder(t *testing.T) {
	s, err := ParseSchema([]byte(blogSchema))
	require.NoError(t, err)

	assert.Equal(t, []string{"title", "body", "author", "rating", "blocks"}, s.Properties.Names())
	assert.True(t, s.IsRequired("title"))
	assert.False(t, s.IsRequired("body"))
	assert.Equal(t, "Blog post", s.Title)

	title, ok := s.Properties.Get("title")
	require.True(t, ok)
	require.NotNil(t, title.MinLength)
	assert.Equal(t, 3, *title.MinLength)
	assert.True(t, title.HasKeyword("maxLength"))
	assert.False(t, title.HasKeyword("pattern"))

	rating, _ := s.Properties.Get("rating")
	assert.Equal(t, "stars", rating.Extra["x-hint"])
	assert.True(t, rating.HasKeyword("x-hint"))
}

func TestParseSchemaViewSpecs(t *testing.T) {
	s, err := ParseSchema([]byte(blogSchema))
	require.NoError(t, err)

	body, _ := s.Properties.Get("body")
	require.NotNil(t, body.View)
	assert.True(t, body.View.IsString)
	assert.Equal(t, "text", body.View.Kind)

	author, _ := s.Properties.Get("author")
	require.NotNil(t, author.View)
	assert.False(t, author.View.IsString)
	assert.Equal(t, "single-select-ref", author.View.Kind)
	assert.Equal(t, "Written by", author.View.Name)
	assert.Equal(t, "/name", author.View.Options["previewPath"])
	assert.True(t, author.HasRef())
	assert.Equal(t, "user", author.Ref)
}

func TestParseSchemaVariants(t *testing.T) {
	s, err := ParseSchema([]byte(blogSchema))
	require.NoError(t, err)

	blocks, _ := s.Properties.Get("blocks")
	quote, idx, ok := blocks.Items.Variant("quote")
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.True(t, IsObjectSchema(quote))

	_, _, ok = blocks.Items.Variant("image")
	assert.False(t, ok)
}

func TestParseSchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		code string
	}{
		{name: "numeric view", in: `{"type":"object","properties":{"a":{"type":"string","view":5}}}`, code: ErrCodeInvalidViewSpec},
		{name: "type array", in: `{"type":["string","null"]}`, code: ErrCodeUnsupportedSchema},
		{name: "unknown type", in: `{"type":"date"}`, code: ErrCodeUnsupportedSchema},
		{name: "anyOf outside items", in: `{"anyOf":[{"name":"a","type":"object"}]}`, code: ErrCodeUnsupportedSchema},
		{name: "variant without name", in: `{"type":"array","items":{"anyOf":[{"type":"object"}]}}`, code: ErrCodeMissingVariantName},
		{name: "duplicate variant", in: `{"type":"array","items":{"anyOf":[{"name":"a","type":"object"},{"name":"a","type":"object"}]}}`, code: ErrCodeDuplicateVariant},
		{name: "bad pattern", in: `{"type":"string","pattern":"(["}`, code: ErrCodeInvalidPattern},
		{name: "not json", in: `{"type":`, code: ErrCodeUnsupportedSchema},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSchema([]byte(tt.in))
			require.Error(t, err)
			assert.True(t, HasErrorCode(err, tt.code), "got %v", err)
		})
	}
}

func TestSchemaMarshalRoundTrip(t *testing.T) {
	s, err := ParseSchema([]byte(blogSchema))
	require.NoError(t, err)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	again, err := ParseSchema(data)
	require.NoError(t, err)
	assert.Equal(t, s.Properties.Names(), again.Properties.Names())

	var original, encoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(blogSchema), &original))
	require.NoError(t, json.Unmarshal(data, &encoded))
	assert.Equal(t, original, encoded)
}

func TestSchemaNullDefaultIsPresent(t *testing.T) {
	s, err := ParseSchema([]byte(`{"type":"string","default":null}`))
	require.NoError(t, err)
	assert.True(t, s.HasDefault())
	assert.Nil(t, s.Default)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"string","default":null}`, string(data))
}

func TestParseSchemaYAML(t *testing.T) {
	s, err := ParseSchemaYAML([]byte(`
type: object
properties:
  zeta:
    type: string
  alpha:
    type: number
    multipleOf: 0.5
  nested:
    view:
      type: object
      name: Nested
    properties:
      inner:
        type: boolean
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "nested"}, s.Properties.Names())

	alpha, _ := s.Properties.Get("alpha")
	require.NotNil(t, alpha.MultipleOf)
	assert.Equal(t, 0.5, *alpha.MultipleOf)

	nested, _ := s.Properties.Get("nested")
	assert.Equal(t, "object", InferType(nested))
	assert.Equal(t, "Nested", nested.View.Name)
}

func TestParseSchemaNullKeywordsAreAbsent(t *testing.T) {
	s, err := ParseSchema([]byte(`{"type":"object","properties":null,"items":null}`))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Properties.Len())
	assert.Nil(t, s.Items)
	assert.Equal(t, "object", InferType(s))

	v, err := CreateValue(s, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, v)

	s, err = ParseSchemaYAML([]byte("type: object\nproperties:\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Properties.Len())
}
