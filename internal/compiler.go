package internal

import (
	"unicode"
	"unicode/utf8"

	"github.com/lychee-technology/formview"
)

// Location is the triple of parallel addresses a control is compiled at.
type Location struct {
	SchemaPath formview.Path
	ModelPath  formview.Path
	AbsPath    formview.Path
}

func (l Location) key(name string, schemaStep ...string) Location {
	sp := l.SchemaPath
	for _, s := range schemaStep {
		sp = sp.Key(s)
	}
	return Location{
		SchemaPath: sp.Key(name),
		ModelPath:  l.ModelPath.Key(name),
		AbsPath:    l.AbsPath.Key(name),
	}
}

// Compiler resolves schema nodes into control descriptors.
type Compiler struct {
	namespace string
}

// NewCompiler creates a compiler that prefixes built-in element names with namespace.
func NewCompiler(namespace string) *Compiler {
	if namespace == "" {
		namespace = formview.DefaultNamespace
	}
	return &Compiler{namespace: namespace}
}

// Namespace returns the control element prefix.
func (c *Compiler) Namespace() string {
	return c.namespace
}

// Resolve compiles schema against model at loc. Composite kinds are expanded
// recursively; object expansion writes defaults for missing keys into model.
func (c *Compiler) Resolve(schema *formview.Schema, model any, loc Location, options map[string]any) (*formview.ControlDescriptor, error) {
	desc, err := c.describe(schema, loc, options)
	if err != nil {
		return nil, err
	}
	if err := c.expand(desc, model); err != nil {
		return nil, err
	}
	return desc, nil
}

// describe applies type inference, keyword overrides and the view override to a single node.
func (c *Compiler) describe(schema *formview.Schema, loc Location, options map[string]any) (*formview.ControlDescriptor, error) {
	at := loc.SchemaPath.Pointer()
	if schema == nil {
		return nil, formview.NewUnsupportedSchemaError(at, "missing schema")
	}
	if len(schema.Types) > 0 {
		return nil, formview.NewUnsupportedSchemaError(at, "only single types are supported")
	}

	opts := make(map[string]any, len(options)+1)
	for k, v := range options {
		opts[k] = v
	}

	viewType := formview.InferType(schema)
	switch {
	case schema.HasEnum():
		viewType = "enum"
	case schema.HasRef():
		viewType = "ref"
	case viewType == "array" && schema.Items != nil && schema.Items.AnyOf != nil:
		viewType = "anyof-array"
	}

	if viewType == "integer" {
		viewType = "number"
		opts[formview.OptionIsInteger] = true
	}

	name := displayName(schema, loc.ModelPath)
	var kind formview.ControlKind
	element := ""

	switch view := schema.View; {
	case view == nil:
		kind, element = c.builtin(viewType, at)
	case view.IsString:
		kind = formview.ResolveControlKind(view.Kind, c.namespace)
		element = view.Kind
	default:
		if view.Kind != "" {
			kind = formview.ResolveControlKind(view.Kind, c.namespace)
			element = view.Kind
		} else {
			kind, element = c.builtin(viewType, at)
		}
		if view.Name != "" {
			name = view.Name
		}
		for k, v := range view.Options {
			opts[k] = v
		}
	}
	if kind == formview.KindUnknown {
		return nil, formview.NewUnsupportedSchemaError(at, "cannot determine control for schema")
	}

	return &formview.ControlDescriptor{
		Kind:       kind,
		Element:    element,
		Name:       name,
		SchemaPath: loc.SchemaPath,
		ModelPath:  loc.ModelPath,
		AbsPath:    loc.AbsPath,
		Options:    opts,
		Schema:     schema,
	}, nil
}

func (c *Compiler) builtin(viewType, at string) (formview.ControlKind, string) {
	if viewType == "" {
		return formview.KindUnknown, ""
	}
	kind, ok := formview.ParseControlKind(viewType)
	if !ok {
		// unknown plain types still get a namespaced element so a view engine can map them
		return formview.KindCustom, c.namespace + viewType
	}
	return kind, kind.Element(c.namespace)
}

func (c *Compiler) expand(desc *formview.ControlDescriptor, model any) error {
	loc := Location{SchemaPath: desc.SchemaPath, ModelPath: desc.ModelPath, AbsPath: desc.AbsPath}
	switch desc.Kind {
	case formview.KindObject:
		return c.expandObject(desc, model, loc)
	case formview.KindArray:
		return c.expandArray(desc, model, loc)
	case formview.KindAnyOfArray:
		return c.expandAnyOf(desc, model, loc)
	}
	return nil
}

func (c *Compiler) expandObject(desc *formview.ControlDescriptor, model any, loc Location) error {
	schema := desc.Schema
	obj, ok := asObject(model)
	if !ok {
		return formview.NewModelMismatchError(loc.AbsPath.Pointer(), "object")
	}
	desc.Children = make([]*formview.ControlDescriptor, 0, schema.Properties.Len())
	for _, p := range schema.Properties.Entries() {
		if formview.IsPrivateProperty(p.Name) {
			continue
		}
		if _, exists := obj[p.Name]; !exists {
			v, err := formview.CreateValue(p.Schema, "")
			if err != nil {
				return err
			}
			obj[p.Name] = v
		}
		child, err := c.Resolve(p.Schema, obj[p.Name], loc.key(p.Name, "properties"),
			map[string]any{formview.OptionIsRequired: schema.IsRequired(p.Name)})
		if err != nil {
			return err
		}
		desc.Children = append(desc.Children, child)
	}
	return nil
}

func (c *Compiler) expandArray(desc *formview.ControlDescriptor, model any, loc Location) error {
	items := desc.Schema.Items
	if !formview.IsObjectSchema(items) && !formview.IsRefSchema(items) {
		return formview.NewUnsupportedArrayItemError(loc.SchemaPath.Key("items").Pointer())
	}
	list, err := asList(model, loc)
	if err != nil {
		return err
	}
	desc.Children = make([]*formview.ControlDescriptor, 0, len(list))
	for i, item := range list {
		itemLoc := Location{
			SchemaPath: loc.SchemaPath.Key("items"),
			ModelPath:  loc.ModelPath.Index(i),
			AbsPath:    loc.AbsPath.Index(i),
		}
		child, err := c.Resolve(items, item, itemLoc, map[string]any{formview.OptionMode: formview.ModeMinimal})
		if err != nil {
			return err
		}
		desc.Children = append(desc.Children, child)
	}
	return nil
}

func (c *Compiler) expandAnyOf(desc *formview.ControlDescriptor, model any, loc Location) error {
	items := desc.Schema.Items
	seen := make(map[string]bool, len(items.AnyOf))
	for i, variant := range items.AnyOf {
		at := loc.SchemaPath.Key("items").Key("anyOf").Index(i).Pointer()
		if variant == nil || variant.Name == "" {
			return formview.NewMissingVariantNameError(at)
		}
		if seen[variant.Name] {
			return formview.NewDuplicateVariantError(at, variant.Name)
		}
		seen[variant.Name] = true
	}
	list, err := asList(model, loc)
	if err != nil {
		return err
	}
	desc.Children = make([]*formview.ControlDescriptor, 0, len(list))
	for i, item := range list {
		obj, _ := asObject(item)
		typeName, _ := obj[formview.FieldType].(string)
		variant, idx, ok := items.Variant(typeName)
		if !ok {
			return formview.NewUnknownVariantError(loc.AbsPath.Index(i).Pointer(), typeName)
		}
		itemLoc := Location{
			SchemaPath: loc.SchemaPath.Key("items").Key("anyOf").Index(idx),
			ModelPath:  loc.ModelPath.Index(i),
			AbsPath:    loc.AbsPath.Index(i),
		}
		child, err := c.Resolve(variant, item, itemLoc, map[string]any{formview.OptionMode: formview.ModeMinimal})
		if err != nil {
			return err
		}
		desc.Children = append(desc.Children, child)
	}
	return nil
}

// displayName is the schema title, else the capitalized last field name of the model path.
func displayName(schema *formview.Schema, modelPath formview.Path) string {
	if schema.Title != "" {
		return schema.Title
	}
	name := modelPath.LastKey()
	if name == "" {
		name = "model"
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}

func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case formview.Document:
		return m, true
	}
	return nil, false
}

func asList(v any, loc Location) ([]any, error) {
	switch l := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return l, nil
	}
	return nil, formview.NewModelMismatchError(loc.AbsPath.Pointer(), "array")
}
