package formview

import (
	"encoding/json"
	"strings"
)

// ControlKind is the closed set of controls a schema node can compile to.
type ControlKind int

const (
	KindUnknown ControlKind = iota
	KindBoolean
	KindNumber
	KindString
	KindText
	KindEnum
	KindObject
	KindArray
	KindAnyOfArray
	KindRef
	KindSingleSelectRef
	KindMultiSelectRef
	KindImage
	KindPassword
	KindSlug
	KindDatetime
	// KindCustom is any view name outside the built-in set; the element carries the raw name.
	KindCustom
)

// DefaultNamespace prefixes built-in control element names.
const DefaultNamespace = "cr-"

var kindNames = map[ControlKind]string{
	KindBoolean:         "boolean",
	KindNumber:          "number",
	KindString:          "string",
	KindText:            "text",
	KindEnum:            "enum",
	KindObject:          "object",
	KindArray:           "array",
	KindAnyOfArray:      "anyof-array",
	KindRef:             "ref",
	KindSingleSelectRef: "single-select-ref",
	KindMultiSelectRef:  "multi-select-ref",
	KindImage:           "image",
	KindPassword:        "password",
	KindSlug:            "slug",
	KindDatetime:        "datetime",
	KindCustom:          "custom",
}

var kindsByName = func() map[string]ControlKind {
	m := make(map[string]ControlKind, len(kindNames))
	for k, name := range kindNames {
		if k != KindCustom {
			m[name] = k
		}
	}
	return m
}()

func (k ControlKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsComposite reports whether the control expands into child controls.
func (k ControlKind) IsComposite() bool {
	return k == KindObject || k == KindArray || k == KindAnyOfArray
}

// Element returns the namespaced element name of a built-in kind.
func (k ControlKind) Element(namespace string) string {
	return namespace + k.String()
}

// MarshalText encodes the kind by name.
func (k ControlKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseControlKind looks up a built-in kind by its bare name.
func ParseControlKind(name string) (ControlKind, bool) {
	k, ok := kindsByName[name]
	return k, ok
}

// ResolveControlKind maps a view name to a kind. The namespace prefix is optional;
// names outside the built-in set resolve to KindCustom.
func ResolveControlKind(name, namespace string) ControlKind {
	bare := name
	if namespace != "" {
		bare = strings.TrimPrefix(name, namespace)
	}
	if k, ok := ParseControlKind(bare); ok {
		return k
	}
	return KindCustom
}

// Control option names.
const (
	OptionIsRequired  = "is-required"
	OptionIsInteger   = "is-integer"
	OptionMode        = "mode"
	OptionPreviewPath = "previewPath"
	OptionSource      = "source"

	ModeMinimal = "minimal"
)

// ControlDescriptor is the resolved, renderable instruction for one schema node.
// Composite kinds carry their compiled children.
type ControlDescriptor struct {
	Kind       ControlKind
	Element    string
	Name       string
	SchemaPath Path
	ModelPath  Path
	AbsPath    Path
	Options    map[string]any
	Schema     *Schema
	Children   []*ControlDescriptor
}

// Option returns an extra option.
func (d *ControlDescriptor) Option(name string) (any, bool) {
	v, ok := d.Options[name]
	return v, ok
}

// BoolOption returns an option as a bool; "true" strings count.
func (d *ControlDescriptor) BoolOption(name string) bool {
	switch v := d.Options[name].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}

// StringOption returns an option as a string.
func (d *ControlDescriptor) StringOption(name string) string {
	s, _ := d.Options[name].(string)
	return s
}

// Walk visits d and its descendants depth-first until fn returns false.
func (d *ControlDescriptor) Walk(fn func(*ControlDescriptor) bool) bool {
	if !fn(d) {
		return false
	}
	for _, c := range d.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Find returns the descriptor with the given absolute path.
func (d *ControlDescriptor) Find(abs Path) *ControlDescriptor {
	var found *ControlDescriptor
	d.Walk(func(c *ControlDescriptor) bool {
		if c.AbsPath.Equal(abs) {
			found = c
			return false
		}
		return true
	})
	return found
}

type descriptorJSON struct {
	Kind       ControlKind          `json:"kind"`
	Element    string               `json:"element"`
	Name       string               `json:"name"`
	SchemaPath string               `json:"schemaPath"`
	ModelPath  string               `json:"modelPath"`
	Path       string               `json:"path"`
	Options    map[string]any       `json:"options,omitempty"`
	Children   []*ControlDescriptor `json:"children,omitempty"`
}

// MarshalJSON renders paths in their textual forms.
func (d *ControlDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(descriptorJSON{
		Kind:       d.Kind,
		Element:    d.Element,
		Name:       d.Name,
		SchemaPath: d.SchemaPath.Dotted("schema"),
		ModelPath:  d.ModelPath.Dotted("model"),
		Path:       d.AbsPath.Pointer(),
		Options:    d.Options,
		Children:   d.Children,
	})
}
