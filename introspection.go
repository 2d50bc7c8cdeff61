package formview

import (
	"regexp"
)

// IsObjectSchema reports whether s describes an object.
func IsObjectSchema(s *Schema) bool {
	return s != nil && (s.Type == "object" || s.Properties != nil)
}

// IsArraySchema reports whether s describes an array.
func IsArraySchema(s *Schema) bool {
	return s != nil && (s.Type == "array" || s.Items != nil)
}

// IsRefSchema reports whether s references another entity type.
func IsRefSchema(s *Schema) bool {
	return s.HasRef()
}

// IsPrivateProperty reports whether name is a reserved document field that is
// never rendered or defaulted.
func IsPrivateProperty(name string) bool {
	return name == FieldID || name == FieldRev || name == FieldType
}

// InferType returns the declared type, or object/array inferred from properties/items.
func InferType(s *Schema) string {
	if s == nil {
		return ""
	}
	if s.Type != "" {
		return s.Type
	}
	t := ""
	if s.Properties != nil {
		t = "object"
	}
	if s.Items != nil {
		t = "array"
	}
	return t
}

// CreateValue synthesizes the default value for a schema. Objects are filled
// recursively; arrays stay empty. A non-empty typeName is stamped as type_ on objects.
func CreateValue(s *Schema, typeName string) (any, error) {
	return createValue(s, typeName, nil)
}

func createValue(s *Schema, typeName string, at Path) (any, error) {
	if s == nil {
		return nil, NewUnsupportedSchemaError(at.Pointer(), "cannot create default value for missing schema")
	}
	if s.HasEnum() {
		if s.HasDefault() {
			return CloneValue(s.Default)
		}
		if len(s.Enum) == 0 {
			return nil, nil
		}
		return CloneValue(s.Enum[0])
	}
	if s.HasRef() {
		if s.HasDefault() {
			return CloneValue(s.Default)
		}
		return map[string]any{}, nil
	}
	if len(s.Types) > 0 {
		return nil, NewUnsupportedSchemaError(at.Pointer(), "only single types are supported")
	}

	t := InferType(s)
	if t == "" {
		return nil, NewUnsupportedSchemaError(at.Pointer(), "cannot create default value for schema without type")
	}

	switch t {
	case "boolean":
		if s.HasDefault() {
			return s.Default, nil
		}
		return true, nil
	case "integer", "number":
		if s.HasDefault() {
			return s.Default, nil
		}
		return float64(0), nil
	case "string":
		if s.HasDefault() {
			return s.Default, nil
		}
		return "", nil
	case "array":
		if s.HasDefault() {
			return CloneValue(s.Default)
		}
		return []any{}, nil
	case "object":
		if s.HasDefault() {
			return CloneValue(s.Default)
		}
		obj := make(map[string]any, s.Properties.Len()+1)
		for _, p := range s.Properties.Entries() {
			if IsPrivateProperty(p.Name) {
				continue
			}
			v, err := createValue(p.Schema, "", at.Key("properties").Key(p.Name))
			if err != nil {
				return nil, err
			}
			obj[p.Name] = v
		}
		if typeName != "" {
			obj[FieldType] = typeName
		}
		return obj, nil
	}
	return nil, NewUnsupportedSchemaError(at.Pointer(), "cannot create default value for unknown type: "+t)
}

// CreateDocument synthesizes a default top-level document.
func CreateDocument(s *Schema, typeName string) (Document, error) {
	v, err := CreateValue(s, typeName)
	if err != nil {
		return nil, err
	}
	doc, ok := AsDocument(v)
	if !ok {
		return nil, NewUnsupportedSchemaError("", "top level schema has to be an object")
	}
	return doc, nil
}

var knownTypes = map[string]bool{
	"object":  true,
	"array":   true,
	"string":  true,
	"number":  true,
	"integer": true,
	"boolean": true,
	"null":    true,
}

// Check validates the schema tree at load time: single types only, anyOf only under
// items with unique variant names, and compilable patterns.
func (s *Schema) Check() error {
	return checkSchema(s, nil, false)
}

func checkSchema(s *Schema, at Path, underItems bool) error {
	if s == nil {
		return nil
	}
	if len(s.Types) > 0 {
		return NewUnsupportedSchemaError(at.Pointer(), "only single types are supported")
	}
	if s.Type != "" && !knownTypes[s.Type] {
		return NewUnsupportedSchemaError(at.Pointer(), "unknown type: "+s.Type)
	}
	if s.AnyOf != nil && !underItems {
		return NewUnsupportedSchemaError(at.Pointer(), "anyOf is only supported for array items")
	}
	if s.Pattern != nil {
		if _, err := regexp.Compile(*s.Pattern); err != nil {
			return NewInvalidPatternError(at.Pointer(), *s.Pattern, err)
		}
	}
	for _, p := range s.Properties.Entries() {
		if err := checkSchema(p.Schema, at.Key("properties").Key(p.Name), false); err != nil {
			return err
		}
	}
	if s.Items != nil {
		if err := checkSchema(s.Items, at.Key("items"), true); err != nil {
			return err
		}
	}
	seen := make(map[string]bool, len(s.AnyOf))
	for i, variant := range s.AnyOf {
		vp := at.Key("anyOf").Index(i)
		if variant == nil || variant.Name == "" {
			return NewMissingVariantNameError(vp.Pointer())
		}
		if seen[variant.Name] {
			return NewDuplicateVariantError(vp.Pointer(), variant.Name)
		}
		seen[variant.Name] = true
		if err := checkSchema(variant, vp, false); err != nil {
			return err
		}
	}
	return nil
}
