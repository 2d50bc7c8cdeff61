package formview

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Schema is a JSON-Schema-like description of one field or substructure of an entity.
// Only the keywords that drive form behavior are typed; everything else is kept in Extra.
type Schema struct {
	Type        string
	Types       []string // set when "type" is given as an array; rejected by the compiler
	Title       string
	Description string
	Name        string
	Format      string
	Properties  *Properties
	Items       *Schema
	AnyOf       []*Schema
	Enum        []any
	Ref         string
	Default     any
	Required    []string
	View        *ViewSpec
	MinLength   *int
	MaxLength   *int
	Pattern     *string
	Minimum     *float64
	Maximum     *float64
	MultipleOf  *float64
	Extra       map[string]any

	hasRef     bool
	hasDefault bool
}

// HasDefault reports whether the default keyword is present, including a null default.
func (s *Schema) HasDefault() bool {
	return s != nil && s.hasDefault
}

// SetDefault sets the default keyword.
func (s *Schema) SetDefault(v any) {
	s.Default = v
	s.hasDefault = true
}

// HasEnum reports whether the enum keyword is present.
func (s *Schema) HasEnum() bool {
	return s != nil && s.Enum != nil
}

// HasRef reports whether $ref is present as a string.
func (s *Schema) HasRef() bool {
	return s != nil && (s.hasRef || s.Ref != "")
}

// SetRef sets the $ref keyword.
func (s *Schema) SetRef(ref string) {
	s.Ref = ref
	s.hasRef = true
}

// IsRequired reports whether name is listed in required.
func (s *Schema) IsRequired(name string) bool {
	if s == nil {
		return false
	}
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// HasKeyword reports whether the schema declares the named keyword.
func (s *Schema) HasKeyword(name string) bool {
	if s == nil {
		return false
	}
	switch name {
	case "type":
		return s.Type != "" || len(s.Types) > 0
	case "title":
		return s.Title != ""
	case "properties":
		return s.Properties != nil
	case "items":
		return s.Items != nil
	case "anyOf":
		return s.AnyOf != nil
	case "enum":
		return s.HasEnum()
	case "$ref":
		return s.HasRef()
	case "default":
		return s.hasDefault
	case "required":
		return s.Required != nil
	case "view":
		return s.View != nil
	case "minLength":
		return s.MinLength != nil
	case "maxLength":
		return s.MaxLength != nil
	case "pattern":
		return s.Pattern != nil
	case "minimum":
		return s.Minimum != nil
	case "maximum":
		return s.Maximum != nil
	case "multipleOf":
		return s.MultipleOf != nil
	case "format":
		return s.Format != ""
	case "name":
		return s.Name != ""
	}
	_, ok := s.Extra[name]
	return ok
}

// Variant returns the anyOf variant with the given name.
func (s *Schema) Variant(name string) (*Schema, int, bool) {
	if s == nil {
		return nil, -1, false
	}
	for i, v := range s.AnyOf {
		if v != nil && v.Name == name {
			return v, i, true
		}
	}
	return nil, -1, false
}

// UnmarshalJSON decodes a schema node, keeping property declaration order.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Schema{}
	for key, value := range raw {
		if err := s.decodeKeyword(key, value); err != nil {
			return fmt.Errorf("schema keyword %q: %w", key, err)
		}
	}
	return nil
}

func (s *Schema) decodeKeyword(key string, value json.RawMessage) error {
	switch key {
	case "type":
		var t any
		if err := json.Unmarshal(value, &t); err != nil {
			return err
		}
		switch tv := t.(type) {
		case string:
			s.Type = tv
		case []any:
			for _, item := range tv {
				name, ok := item.(string)
				if !ok {
					return NewUnsupportedSchemaError("", "type entries must be strings")
				}
				s.Types = append(s.Types, name)
			}
		default:
			return NewUnsupportedSchemaError("", "type must be a string")
		}
		return nil
	case "title":
		return json.Unmarshal(value, &s.Title)
	case "description":
		return json.Unmarshal(value, &s.Description)
	case "name":
		return json.Unmarshal(value, &s.Name)
	case "format":
		return json.Unmarshal(value, &s.Format)
	case "properties":
		if isNull(value) {
			return nil
		}
		s.Properties = &Properties{}
		return json.Unmarshal(value, s.Properties)
	case "items":
		if isNull(value) {
			return nil
		}
		s.Items = &Schema{}
		return json.Unmarshal(value, s.Items)
	case "anyOf":
		return json.Unmarshal(value, &s.AnyOf)
	case "enum":
		if err := json.Unmarshal(value, &s.Enum); err != nil {
			return err
		}
		if s.Enum == nil {
			s.Enum = []any{}
		}
		return nil
	case "$ref":
		var ref any
		if err := json.Unmarshal(value, &ref); err != nil {
			return err
		}
		if str, ok := ref.(string); ok {
			s.SetRef(str)
			return nil
		}
		s.setExtra(key, ref)
		return nil
	case "default":
		var v any
		if err := json.Unmarshal(value, &v); err != nil {
			return err
		}
		s.SetDefault(v)
		return nil
	case "required":
		var req any
		if err := json.Unmarshal(value, &req); err != nil {
			return err
		}
		// draft-3 style boolean required on a property is not a set of names
		list, ok := req.([]any)
		if !ok {
			s.setExtra(key, req)
			return nil
		}
		s.Required = make([]string, 0, len(list))
		for _, item := range list {
			if name, ok := item.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
		return nil
	case "view":
		s.View = &ViewSpec{}
		return json.Unmarshal(value, s.View)
	case "minLength":
		return json.Unmarshal(value, &s.MinLength)
	case "maxLength":
		return json.Unmarshal(value, &s.MaxLength)
	case "pattern":
		return json.Unmarshal(value, &s.Pattern)
	case "minimum":
		return json.Unmarshal(value, &s.Minimum)
	case "maximum":
		return json.Unmarshal(value, &s.Maximum)
	case "multipleOf":
		return json.Unmarshal(value, &s.MultipleOf)
	}
	var v any
	if err := json.Unmarshal(value, &v); err != nil {
		return err
	}
	s.setExtra(key, v)
	return nil
}

func (s *Schema) setExtra(key string, v any) {
	if s.Extra == nil {
		s.Extra = make(map[string]any)
	}
	s.Extra[key] = v
}

// MarshalJSON encodes the schema with a stable keyword order.
func (s *Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(key string, v any) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode schema keyword %q: %w", key, err)
		}
		buf.Write(data)
		return nil
	}

	type field struct {
		key     string
		present bool
		value   any
	}
	fields := []field{
		{"type", s.Type != "", s.Type},
		{"type", len(s.Types) > 0, s.Types},
		{"name", s.Name != "", s.Name},
		{"title", s.Title != "", s.Title},
		{"description", s.Description != "", s.Description},
		{"format", s.Format != "", s.Format},
		{"$ref", s.HasRef(), s.Ref},
		{"enum", s.Enum != nil, s.Enum},
		{"default", s.hasDefault, s.Default},
		{"required", s.Required != nil, s.Required},
		{"view", s.View != nil, s.View},
		{"minLength", s.MinLength != nil, s.MinLength},
		{"maxLength", s.MaxLength != nil, s.MaxLength},
		{"pattern", s.Pattern != nil, s.Pattern},
		{"minimum", s.Minimum != nil, s.Minimum},
		{"maximum", s.Maximum != nil, s.Maximum},
		{"multipleOf", s.MultipleOf != nil, s.MultipleOf},
		{"properties", s.Properties != nil, s.Properties},
		{"items", s.Items != nil, s.Items},
		{"anyOf", s.AnyOf != nil, s.AnyOf},
	}
	for _, f := range fields {
		if !f.present {
			continue
		}
		if err := write(f.key, f.value); err != nil {
			return nil, err
		}
	}
	keys := make([]string, 0, len(s.Extra))
	for k := range s.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := write(k, s.Extra[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ParseSchema decodes a JSON schema document and checks it.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		if fe, ok := AsFormError(err); ok {
			return nil, fe
		}
		return nil, NewUnsupportedSchemaError("", "invalid schema document").WithCause(err)
	}
	if err := s.Check(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Property is one named entry of an object schema.
type Property struct {
	Name   string
	Schema *Schema
}

// Properties is an ordered property map.
type Properties struct {
	entries []Property
	index   map[string]int
}

// NewProperties builds an ordered property map.
func NewProperties(entries ...Property) *Properties {
	p := &Properties{}
	for _, e := range entries {
		p.Set(e.Name, e.Schema)
	}
	return p
}

// Len returns the number of properties.
func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.entries)
}

// Get returns the schema of a property.
func (p *Properties) Get(name string) (*Schema, bool) {
	if p == nil {
		return nil, false
	}
	i, ok := p.index[name]
	if !ok {
		return nil, false
	}
	return p.entries[i].Schema, true
}

// Set adds or replaces a property, keeping the original position on replace.
func (p *Properties) Set(name string, s *Schema) {
	if p.index == nil {
		p.index = make(map[string]int)
	}
	if i, ok := p.index[name]; ok {
		p.entries[i].Schema = s
		return
	}
	p.index[name] = len(p.entries)
	p.entries = append(p.entries, Property{Name: name, Schema: s})
}

// Names returns property names in declaration order.
func (p *Properties) Names() []string {
	if p == nil {
		return nil
	}
	names := make([]string, len(p.entries))
	for i, e := range p.entries {
		names[i] = e.Name
	}
	return names
}

// Entries returns the properties in declaration order.
func (p *Properties) Entries() []Property {
	if p == nil {
		return nil
	}
	out := make([]Property, len(p.entries))
	copy(out, p.entries)
	return out
}

// UnmarshalJSON reads the object token by token so that declaration order survives.
func (p *Properties) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*p = Properties{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return NewUnsupportedSchemaError("", "properties must be an object")
	}
	*p = Properties{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return NewUnsupportedSchemaError("", "property name must be a string")
		}
		var child Schema
		if err := dec.Decode(&child); err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
		p.Set(name, &child)
	}
	_, err = dec.Token()
	return err
}

// MarshalJSON writes properties in declaration order.
func (p *Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range p.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(e.Name)
		buf.Write(k)
		buf.WriteByte(':')
		data, err := json.Marshal(e.Schema)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ViewSpec is the per-field control override. The string form replaces the control
// kind; the object form supplies kind and display name plus passthrough options.
type ViewSpec struct {
	Kind     string
	Name     string
	Options  map[string]any
	IsString bool
}

// UnmarshalJSON rejects anything but a string or an object.
func (v *ViewSpec) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch spec := raw.(type) {
	case string:
		*v = ViewSpec{Kind: spec, IsString: true}
		return nil
	case map[string]any:
		*v = ViewSpec{}
		for key, value := range spec {
			switch key {
			case "type":
				kind, ok := value.(string)
				if !ok {
					return NewInvalidViewSpecError("")
				}
				v.Kind = kind
			case "name":
				name, ok := value.(string)
				if !ok {
					return NewInvalidViewSpecError("")
				}
				v.Name = name
			default:
				if v.Options == nil {
					v.Options = make(map[string]any)
				}
				v.Options[key] = value
			}
		}
		return nil
	}
	return NewInvalidViewSpecError("")
}

// MarshalJSON restores the original string or object form.
func (v *ViewSpec) MarshalJSON() ([]byte, error) {
	if v.IsString {
		return json.Marshal(v.Kind)
	}
	out := make(map[string]any, len(v.Options)+2)
	for k, val := range v.Options {
		out[k] = val
	}
	if v.Kind != "" {
		out["type"] = v.Kind
	}
	if v.Name != "" {
		out["name"] = v.Name
	}
	return json.Marshal(out)
}

// isNull reports whether a raw keyword value is the JSON null literal.
func isNull(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}
