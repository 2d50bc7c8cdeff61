package internal

import (
	"fmt"
	"regexp"

	"github.com/goccy/go-json"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/lychee-technology/formview"
)

// ValidateDocument checks doc against schema as a JSON Schema. Entity references
// are treated as opaque objects and view annotations are ignored.
func ValidateDocument(schema *formview.Schema, doc formview.Document) error {
	raw, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to marshal schema for validation: %w", err)
	}
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("failed to unmarshal schema: %w", err)
	}
	sanitizeSchema(tree)

	schemaBytes, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("failed to marshal schema for validation: %w", err)
	}
	var js jsonschema.Schema
	if err := json.Unmarshal(schemaBytes, &js); err != nil {
		return fmt.Errorf("failed to unmarshal into jsonschema.Schema: %w", err)
	}
	resolved, err := js.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return fmt.Errorf("failed to resolve JSON schema: %w", err)
	}

	var data any
	if err := formview.CloneJSON(doc, &data); err != nil {
		return err
	}
	if err := resolved.Validate(data); err != nil {
		return fmt.Errorf("JSON validation failed: %w", err)
	}
	return nil
}

// sanitizeSchema rewrites entity references to plain objects and drops form-only keywords.
func sanitizeSchema(node map[string]any) {
	if _, ok := node["$ref"]; ok {
		for k := range node {
			if k != "title" && k != "description" {
				delete(node, k)
			}
		}
		node["type"] = "object"
		return
	}
	delete(node, "view")
	delete(node, "name")
	if props, ok := node["properties"].(map[string]any); ok {
		for _, p := range props {
			if m, ok := p.(map[string]any); ok {
				sanitizeSchema(m)
			}
		}
	}
	if items, ok := node["items"].(map[string]any); ok {
		sanitizeSchema(items)
	}
	if variants, ok := node["anyOf"].([]any); ok {
		for _, v := range variants {
			if m, ok := v.(map[string]any); ok {
				sanitizeSchema(m)
			}
		}
	}
}

// CheckDocument walks doc along schema and reports field failures with the same
// codes the form controls use, addressed by JSON pointer.
func CheckDocument(schema *formview.Schema, doc formview.Document) []formview.FieldError {
	var errs []formview.FieldError
	checkValue(schema, map[string]any(doc), nil, false, &errs)
	return errs
}

func checkValue(s *formview.Schema, v any, at formview.Path, required bool, errs *[]formview.FieldError) {
	if s == nil {
		return
	}
	fail := func(code, msg string) {
		*errs = append(*errs, formview.FieldError{Path: at.Pointer(), Code: code, Message: msg})
	}
	switch {
	case s.HasEnum():
		if v != nil && !EnumPredicate(s.Enum)(v) {
			fail("enum", "value is not one of the allowed values")
		}
		return
	case s.HasRef():
		if required {
			obj, _ := asObject(v)
			if !RequiredIdentity(obj[formview.FieldRefID]) {
				fail("required", "reference is required")
			}
		}
		return
	}

	switch formview.InferType(s) {
	case "object":
		obj, ok := asObject(v)
		if !ok {
			if v != nil {
				fail("type", "value is not an object")
			}
			return
		}
		for _, p := range s.Properties.Entries() {
			if formview.IsPrivateProperty(p.Name) {
				continue
			}
			child, present := obj[p.Name]
			req := s.IsRequired(p.Name)
			if !present {
				if req {
					*errs = append(*errs, formview.FieldError{Path: at.Key(p.Name).Pointer(), Code: "required", Message: "value is required"})
				}
				continue
			}
			checkValue(p.Schema, child, at.Key(p.Name), req, errs)
		}
	case "array":
		list, ok := v.([]any)
		if !ok {
			if v != nil {
				fail("type", "value is not an array")
			}
			return
		}
		for i, item := range list {
			itemSchema := s.Items
			if itemSchema != nil && itemSchema.AnyOf != nil {
				obj, _ := asObject(item)
				name, _ := obj[formview.FieldType].(string)
				variant, _, found := itemSchema.Variant(name)
				if !found {
					*errs = append(*errs, formview.FieldError{Path: at.Index(i).Pointer(), Code: "variant", Message: "unknown item type: " + name})
					continue
				}
				itemSchema = variant
			}
			checkValue(itemSchema, item, at.Index(i), false, errs)
		}
	case "string":
		str, ok := v.(string)
		if !ok {
			if v != nil {
				fail("type", "value is not a string")
			}
			if required {
				fail("required", "value is required")
			}
			return
		}
		if s.MaxLength != nil && !MaxLengthPredicate(*s.MaxLength)(str) {
			fail("maxLength", fmt.Sprintf("value is longer than %d characters", *s.MaxLength))
		}
		if s.MinLength != nil && !MinLengthPredicate(*s.MinLength)(str) {
			fail("minLength", fmt.Sprintf("value is shorter than %d characters", *s.MinLength))
		}
		if s.Pattern != nil {
			if re, err := regexp.Compile(*s.Pattern); err == nil && !re.MatchString(str) {
				fail("pattern", "value does not match "+*s.Pattern)
			}
		}
		if required && !RequiredString(str) {
			fail("required", "value is required")
		}
	case "number", "integer":
		if v == nil {
			if required {
				fail("required", "value is required")
			}
			return
		}
		n, ok := numberValue(v)
		if !ok {
			fail("type", "value is not a number")
			return
		}
		if formview.InferType(s) == "integer" && !IntegerPredicate(n) {
			fail("integer", "value is not an integer")
		}
		if s.MultipleOf != nil && !IsMultipleOf(n, *s.MultipleOf) {
			fail("multipleOf", fmt.Sprintf("value is not a multiple of %v", *s.MultipleOf))
		}
		if s.Minimum != nil && n < *s.Minimum {
			fail("minimum", fmt.Sprintf("value is less than %v", *s.Minimum))
		}
		if s.Maximum != nil && n > *s.Maximum {
			fail("maximum", fmt.Sprintf("value is greater than %v", *s.Maximum))
		}
	case "boolean":
		if _, ok := v.(bool); !ok && v != nil {
			fail("type", "value is not a boolean")
		}
	}
}
