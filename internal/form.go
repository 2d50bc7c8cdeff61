package internal

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/formview"
	"go.uber.org/zap"
)

// FileSink receives attachment signals from image controls.
type FileSink interface {
	SetFile(id string, file formview.Attachment)
	RemoveFile(id string)
}

// FormOptions configures a Form.
type FormOptions struct {
	Namespace string
	// Prefix is prepended to absolute paths, for forms nested below another document.
	Prefix   formview.Path
	Registry formview.Registry
	Files    FileSink
	Engine   formview.ViewEngine
	Now      func() time.Time
}

// Form is a mounted control tree bound to a model. It aggregates the error
// messages of its controls into one map and is valid iff that map is empty.
type Form struct {
	mu       sync.Mutex
	compiler *Compiler
	schema   *formview.Schema
	model    formview.Document
	desc     *formview.ControlDescriptor
	root     *controlNode
	prefix   formview.Path
	registry formview.Registry
	files    FileSink
	engine   formview.ViewEngine
	now      func() time.Time

	errors   map[string]struct{}
	ready    bool
	onReady  []func()
	pending  []func()
	rebuilds int
}

type controlNode struct {
	parent    Parent
	desc      *formview.ControlDescriptor
	validator *Validator
	counter   *ReadyCounter
	children  []*controlNode
	watch     formview.Path
	last      any
	seen      bool
	torn      bool

	fileID   string
	prevName any
	attached bool
	oldPass  any
	preview  any
}

// Deliver routes a child message: readiness is counted here, errors travel on to the parent.
func (n *controlNode) Deliver(msg Message) {
	if msg.Kind == MessageReady {
		if n.counter != nil && !n.torn {
			n.counter.ChildReady()
		}
		return
	}
	n.parent.Deliver(msg)
}

var _ formview.Form = (*Form)(nil)

// NewForm compiles schema against model and mounts the control tree.
func NewForm(schema *formview.Schema, model formview.Document, opts FormOptions) (*Form, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	f := &Form{
		compiler: NewCompiler(opts.Namespace),
		schema:   schema,
		prefix:   opts.Prefix,
		registry: opts.Registry,
		files:    opts.Files,
		engine:   opts.Engine,
		now:      opts.Now,
		errors:   make(map[string]struct{}),
	}
	if err := f.locked(func() error { return f.rebuild(model) }); err != nil {
		return nil, err
	}
	return f, nil
}

// locked runs fn under the form lock and fires ready callbacks queued meanwhile.
func (f *Form) locked(fn func() error) error {
	f.mu.Lock()
	err := fn()
	pending := f.pending
	f.pending = nil
	f.mu.Unlock()
	for _, cb := range pending {
		cb()
	}
	return err
}

// Deliver receives messages from the top-level control.
func (f *Form) Deliver(msg Message) {
	switch msg.Kind {
	case MessageReady:
		if f.ready {
			return
		}
		f.ready = true
		f.pending = append(f.pending, f.onReady...)
	case MessageSetError:
		f.errors[msg.Key] = struct{}{}
	case MessageRemoveError:
		delete(f.errors, msg.Key)
	}
}

// Schema returns the form schema.
func (f *Form) Schema() *formview.Schema { return f.schema }

// Model returns the bound model. Mutate it through Set to keep validation current.
func (f *Form) Model() formview.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.model
}

// Descriptor returns the compiled control tree.
func (f *Form) Descriptor() *formview.ControlDescriptor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.desc
}

// Valid reports whether no control has an active error.
func (f *Form) Valid() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.errors) == 0
}

// Ready reports whether the top-level control has signalled readiness.
func (f *Form) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

// OnReady registers fn for every readiness of the form; it runs at once if already ready.
func (f *Form) OnReady(fn func()) {
	f.mu.Lock()
	f.onReady = append(f.onReady, fn)
	ready := f.ready
	f.mu.Unlock()
	if ready {
		fn()
	}
}

// Errors lists the active error keys, sorted.
func (f *Form) Errors() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.errors))
	for k := range f.errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ControlErrors lists the active errors of the control at modelPath.
func (f *Form) ControlErrors(modelPath formview.Path) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.nodeAt(modelPath)
	if n == nil || n.validator == nil {
		return nil
	}
	return n.validator.Errors()
}

// ErrorMessage returns the server message of a custom error.
func (f *Form) ErrorMessage(modelPath formview.Path, code string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.nodeAt(modelPath)
	if n == nil || n.validator == nil {
		return ""
	}
	return n.validator.Message(code)
}

// InjectCustomError marks a server-reported error on the control whose absolute
// path renders as pointer. It reports whether a control matched.
func (f *Form) InjectCustomError(pointer, code, message string) bool {
	var matched bool
	_ = f.locked(func() error {
		f.eachLeaf(func(n *controlNode) {
			if !matched && n.desc.AbsPath.Pointer() == pointer {
				n.validator.SetCustomError(code, message)
				matched = true
			}
		})
		return nil
	})
	if !matched {
		zap.S().Debugw("custom error without matching control", "path", pointer, "code", code)
	}
	return matched
}

// Get reads the model value at modelPath.
func (f *Form) Get(modelPath formview.Path) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return modelPath.Get(f.model)
}

// Set writes value at modelPath and revalidates. Replacing a subtree that holds
// composite controls recompiles it; setting the root rebuilds the form.
func (f *Form) Set(modelPath formview.Path, value any) error {
	if len(modelPath) == 0 {
		doc, ok := formview.AsDocument(value)
		if !ok {
			return formview.NewModelMismatchError(f.prefix.Pointer(), "object")
		}
		return f.Rebuild(doc)
	}
	return f.locked(func() error {
		previous, had := modelPath.Get(f.model)
		if err := f.setValue(modelPath, value); err != nil {
			return err
		}
		if target := f.structuralOwner(modelPath); target != nil {
			if err := f.rebuildSubtree(target); err != nil {
				if had {
					_ = f.setValue(modelPath, previous)
				} else {
					modelPath.Delete(f.model)
				}
				return err
			}
		}
		f.digest()
		return nil
	})
}

// Rebuild replaces the model, discarding all errors and the compiled tree.
func (f *Form) Rebuild(model formview.Document) error {
	return f.locked(func() error { return f.rebuild(model) })
}

func (f *Form) rebuild(model formview.Document) error {
	if f.root != nil {
		f.teardown(f.root)
		f.root = nil
	}
	f.errors = make(map[string]struct{})
	f.ready = false
	f.rebuilds++

	if !formview.IsObjectSchema(f.schema) {
		return formview.NewUnsupportedSchemaError("", "top level schema has to be an object")
	}
	if model == nil {
		model = formview.Document{}
	}
	f.model = model

	desc, err := f.compiler.Resolve(f.schema, f.model, Location{AbsPath: f.prefix},
		map[string]any{formview.OptionMode: formview.ModeMinimal})
	if err != nil {
		return err
	}
	f.desc = desc
	root, err := f.mount(desc, f)
	if err != nil {
		return err
	}
	f.root = root
	zap.S().Debugw("form compiled", "path", f.prefix.Pointer(), "controls", countControls(desc), "rebuild", f.rebuilds)
	return f.render()
}

func (f *Form) render() error {
	if f.engine == nil {
		return nil
	}
	if err := f.engine.Render(f.desc, f.model); err != nil {
		return fmt.Errorf("render form: %w", err)
	}
	return nil
}

// mount instantiates the control for desc below parent. Composite controls count
// their children before mounting them; leaves register constraints, validate their
// initial value and signal readiness.
func (f *Form) mount(desc *formview.ControlDescriptor, parent Parent) (*controlNode, error) {
	n := &controlNode{parent: parent, desc: desc}
	if desc.Kind.IsComposite() {
		n.counter = NewReadyCounter(len(desc.Children), func() {
			parent.Deliver(Message{Kind: MessageReady})
		})
		if err := f.mountChildren(n); err != nil {
			return nil, err
		}
		return n, nil
	}

	b := behaviorFor(desc.Kind)
	n.watch = b.watchPath(desc.ModelPath)
	n.validator = NewValidator(desc.AbsPath, desc.Schema, parent)
	if b.mount != nil {
		if err := b.mount(f, n); err != nil {
			return nil, err
		}
	}
	if b.constraints != nil {
		if err := b.constraints(n); err != nil {
			return nil, err
		}
	}
	f.validate(n)
	parent.Deliver(Message{Kind: MessageReady})
	return n, nil
}

func (f *Form) mountChildren(n *controlNode) error {
	n.children = make([]*controlNode, 0, len(n.desc.Children))
	for _, c := range n.desc.Children {
		child, err := f.mount(c, n)
		if err != nil {
			return err
		}
		n.children = append(n.children, child)
	}
	return nil
}

// teardown discards a subtree together with its validation state.
func (f *Form) teardown(n *controlNode) {
	for _, c := range n.children {
		f.teardown(c)
	}
	if n.validator != nil {
		n.validator.Reset()
	}
	if n.attached && f.files != nil {
		f.files.RemoveFile(n.fileID)
	}
	n.torn = true
}

// validate re-runs the constraints of a leaf when its watched value changed.
func (f *Form) validate(n *controlNode) {
	value, _ := n.watch.Get(f.model)
	if n.seen && reflect.DeepEqual(n.last, value) {
		return
	}
	n.validator.Run(value)
	n.last, _ = formview.CloneValue(value)
	n.seen = true
}

func (f *Form) digest() {
	f.eachLeaf(f.validate)
}

func (f *Form) eachLeaf(fn func(n *controlNode)) {
	var walk func(n *controlNode)
	walk = func(n *controlNode) {
		if n.validator != nil {
			fn(n)
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	if f.root != nil {
		walk(f.root)
	}
}

func (f *Form) nodeAt(modelPath formview.Path) *controlNode {
	var found *controlNode
	var walk func(n *controlNode)
	walk = func(n *controlNode) {
		if found != nil {
			return
		}
		if n.desc.ModelPath.Equal(modelPath) {
			found = n
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	if f.root != nil {
		walk(f.root)
	}
	return found
}

func (f *Form) parentOf(target *controlNode) *controlNode {
	var found *controlNode
	var walk func(n *controlNode)
	walk = func(n *controlNode) {
		for _, c := range n.children {
			if c == target {
				found = n
				return
			}
			walk(c)
		}
	}
	if f.root != nil {
		walk(f.root)
	}
	return found
}

// structuralOwner returns the node to recompile after modelPath was replaced: the
// nearest node at or above modelPath, when a composite control lives at or below it.
func (f *Form) structuralOwner(modelPath formview.Path) *controlNode {
	if owner := f.variantOwner(modelPath); owner != nil {
		return owner
	}
	hasComposite := false
	var owner *controlNode
	var walk func(n *controlNode)
	walk = func(n *controlNode) {
		p := n.desc.ModelPath
		if n.desc.Kind.IsComposite() && p.HasPrefix(modelPath) {
			hasComposite = true
		}
		if modelPath.HasPrefix(p) && (owner == nil || len(p) > len(owner.desc.ModelPath)) {
			owner = n
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	if f.root == nil {
		return nil
	}
	walk(f.root)
	if !hasComposite {
		return nil
	}
	return owner
}

// variantOwner returns the anyOf array control when modelPath is the type_ field
// of one of its items: switching the tag switches the item's variant.
func (f *Form) variantOwner(modelPath formview.Path) *controlNode {
	last, ok := modelPath.Last()
	if !ok || last.IsIndex || last.Key != formview.FieldType || f.root == nil {
		return nil
	}
	item, ok := modelPath.Parent().Last()
	if !ok || !item.IsIndex {
		return nil
	}
	listPath := modelPath.Parent().Parent()
	var owner *controlNode
	var walk func(n *controlNode)
	walk = func(n *controlNode) {
		if owner != nil {
			return
		}
		if n.desc.Kind == formview.KindAnyOfArray && n.desc.ModelPath.Equal(listPath) {
			owner = n
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(f.root)
	return owner
}

// rebuildSubtree recompiles the children of n against the current model. Readiness
// of n does not re-trigger.
func (f *Form) rebuildSubtree(n *controlNode) error {
	value, _ := n.desc.ModelPath.Get(f.model)
	loc := Location{SchemaPath: n.desc.SchemaPath, ModelPath: n.desc.ModelPath, AbsPath: n.desc.AbsPath}
	desc, err := f.compiler.Resolve(n.desc.Schema, value, loc, n.desc.Options)
	if err != nil {
		return err
	}
	for _, c := range n.children {
		f.teardown(c)
	}
	if p := f.parentOf(n); p != nil {
		for i, c := range p.desc.Children {
			if c == n.desc {
				p.desc.Children[i] = desc
			}
		}
	} else {
		f.desc = desc
	}
	n.desc = desc
	if desc.Kind.IsComposite() {
		if err := f.mountChildren(n); err != nil {
			return err
		}
	}
	return f.render()
}

// setValue writes into the model without revalidating.
func (f *Form) setValue(modelPath formview.Path, value any) error {
	root, err := modelPath.Set(f.model, value)
	if err != nil {
		return err
	}
	doc, ok := formview.AsDocument(root)
	if !ok {
		return formview.NewModelMismatchError(f.prefix.Pointer(), "object")
	}
	f.model = doc
	return nil
}

func (f *Form) controlAt(modelPath formview.Path, kinds ...formview.ControlKind) (*controlNode, error) {
	n := f.nodeAt(modelPath)
	if n == nil {
		return nil, formview.NewFormError(formview.ErrorTypeConfiguration, formview.ErrCodeUnknownControl,
			"no control at "+modelPath.Pointer())
	}
	for _, k := range kinds {
		if n.desc.Kind == k {
			return n, nil
		}
	}
	return nil, formview.NewFormError(formview.ErrorTypeConfiguration, formview.ErrCodeUnknownControl,
		fmt.Sprintf("control at %s is %s", modelPath.Pointer(), n.desc.Kind))
}

// AddItem appends the default value of the item schema, or of the named variant for
// anyOf arrays, and recompiles the array's children.
func (f *Form) AddItem(arrayPath formview.Path, variant string) error {
	return f.locked(func() error {
		n, err := f.controlAt(arrayPath, formview.KindArray, formview.KindAnyOfArray)
		if err != nil {
			return err
		}
		items := n.desc.Schema.Items
		itemSchema, typeName := items, items.Name
		if n.desc.Kind == formview.KindAnyOfArray {
			v, _, ok := items.Variant(variant)
			if !ok {
				return formview.NewUnknownVariantError(n.desc.AbsPath.Pointer(), variant)
			}
			itemSchema, typeName = v, v.Name
		}
		item, err := formview.CreateValue(itemSchema, typeName)
		if err != nil {
			return err
		}
		list, _ := f.list(arrayPath)
		return f.replaceList(n, append(list, item))
	})
}

// RemoveItem deletes the item at index.
func (f *Form) RemoveItem(arrayPath formview.Path, index int) error {
	return f.locked(func() error {
		n, err := f.controlAt(arrayPath, formview.KindArray, formview.KindAnyOfArray)
		if err != nil {
			return err
		}
		list, _ := f.list(arrayPath)
		if index < 0 || index >= len(list) {
			return fmt.Errorf("remove item %d from %s: index out of range", index, arrayPath.Pointer())
		}
		out := make([]any, 0, len(list)-1)
		out = append(out, list[:index]...)
		out = append(out, list[index+1:]...)
		return f.replaceList(n, out)
	})
}

// MoveItemUp swaps the item with its predecessor; a no-op for the first item.
func (f *Form) MoveItemUp(arrayPath formview.Path, index int) error {
	return f.swap(arrayPath, index, index-1)
}

// MoveItemDown swaps the item with its successor; a no-op for the last item.
func (f *Form) MoveItemDown(arrayPath formview.Path, index int) error {
	return f.swap(arrayPath, index, index+1)
}

func (f *Form) swap(arrayPath formview.Path, i, j int) error {
	return f.locked(func() error {
		n, err := f.controlAt(arrayPath, formview.KindArray, formview.KindAnyOfArray)
		if err != nil {
			return err
		}
		list, _ := f.list(arrayPath)
		if i < 0 || j < 0 || i >= len(list) || j >= len(list) {
			return nil
		}
		list[i], list[j] = list[j], list[i]
		return f.replaceList(n, list)
	})
}

func (f *Form) list(arrayPath formview.Path) ([]any, bool) {
	v, _ := arrayPath.Get(f.model)
	list, ok := v.([]any)
	return list, ok
}

func (f *Form) replaceList(n *controlNode, list []any) error {
	if err := f.setValue(n.desc.ModelPath, list); err != nil {
		return err
	}
	if err := f.rebuildSubtree(n); err != nil {
		return err
	}
	f.digest()
	return nil
}

// SetPasswords applies the two password entries. The model takes the new password
// only when both are equal and non-empty; otherwise the previous value is restored
// and unequal entries raise the match error.
func (f *Form) SetPasswords(modelPath formview.Path, first, second string) error {
	return f.locked(func() error {
		n, err := f.controlAt(modelPath, formview.KindPassword)
		if err != nil {
			return err
		}
		value := n.oldPass
		if first == second {
			if first != "" {
				value = first
			}
			n.validator.RemoveError("match")
		} else {
			n.validator.SetError("match")
		}
		if err := f.setValue(modelPath, value); err != nil {
			return err
		}
		f.digest()
		return nil
	})
}

// GenerateSlug builds the slug from the sibling properties named in the source option.
func (f *Form) GenerateSlug(modelPath formview.Path) error {
	return f.locked(func() error {
		n, err := f.controlAt(modelPath, formview.KindSlug)
		if err != nil {
			return err
		}
		parent, _ := modelPath.Parent().Get(f.model)
		obj, _ := asObject(parent)
		var parts []string
		for _, src := range strings.Split(n.desc.StringOption(formview.OptionSource), ",") {
			src = strings.TrimSpace(src)
			if src == "" {
				continue
			}
			if v, ok := obj[src]; ok && v != nil {
				parts = append(parts, fmt.Sprint(v))
			}
		}
		if err := f.setValue(modelPath, Slugify(strings.Join(parts, "-"))); err != nil {
			return err
		}
		f.digest()
		return nil
	})
}

// SetDatetime stores t on a datetime control.
func (f *Form) SetDatetime(modelPath formview.Path, t time.Time) error {
	return f.locked(func() error {
		if _, err := f.controlAt(modelPath, formview.KindDatetime); err != nil {
			return err
		}
		if err := f.setValue(modelPath, FormatTimestamp(t)); err != nil {
			return err
		}
		f.digest()
		return nil
	})
}

// AttachFile selects a file for an image control: the image name is set and the
// file is handed to the file sink under the control's file id.
func (f *Form) AttachFile(modelPath formview.Path, file formview.Attachment) error {
	return f.locked(func() error {
		n, err := f.controlAt(modelPath, formview.KindImage)
		if err != nil {
			return err
		}
		namePath := modelPath.Key("name")
		if !n.attached {
			n.prevName, _ = namePath.Get(f.model)
		}
		if err := f.setValue(namePath, file.Name); err != nil {
			return err
		}
		file.ID = n.fileID
		n.attached = true
		if f.files != nil {
			f.files.SetFile(n.fileID, file)
		}
		f.digest()
		return nil
	})
}

// DetachFile withdraws a selected file and restores the previous image name.
func (f *Form) DetachFile(modelPath formview.Path) error {
	return f.locked(func() error {
		n, err := f.controlAt(modelPath, formview.KindImage)
		if err != nil {
			return err
		}
		if !n.attached {
			return nil
		}
		n.attached = false
		if f.files != nil {
			f.files.RemoveFile(n.fileID)
		}
		namePath := modelPath.Key("name")
		if n.prevName == nil {
			namePath.Delete(f.model)
		} else if err := f.setValue(namePath, n.prevName); err != nil {
			return err
		}
		f.digest()
		return nil
	})
}

// SelectRef points a reference control at id, or clears it for an empty id, and
// refreshes the preview.
func (f *Form) SelectRef(ctx context.Context, modelPath formview.Path, id string) error {
	var n *controlNode
	err := f.locked(func() error {
		var err error
		n, err = f.controlAt(modelPath, formview.KindRef, formview.KindSingleSelectRef)
		if err != nil {
			return err
		}
		idPath := modelPath.Key(formview.FieldRefID)
		if id == "" {
			idPath.Delete(f.model)
		} else if err := f.setValue(idPath, id); err != nil {
			return err
		}
		f.digest()
		return nil
	})
	if err != nil {
		return err
	}
	return f.loadPreview(ctx, n, id)
}

// SelectRefs stores the selection of a multi-select reference control as [{id_}...].
func (f *Form) SelectRefs(modelPath formview.Path, ids []string) error {
	return f.locked(func() error {
		if _, err := f.controlAt(modelPath, formview.KindMultiSelectRef); err != nil {
			return err
		}
		refs := make([]any, 0, len(ids))
		for _, id := range ids {
			refs = append(refs, map[string]any{formview.FieldRefID: id})
		}
		if err := f.setValue(modelPath, refs); err != nil {
			return err
		}
		f.digest()
		return nil
	})
}

// RefOptions lists the selectable documents of a select reference control from the
// referenced type's "all" view, marking the current selection.
func (f *Form) RefOptions(ctx context.Context, modelPath formview.Path) ([]formview.RefOption, error) {
	var (
		typeName    string
		previewPath string
		selected    map[string]bool
	)
	err := f.locked(func() error {
		n, err := f.controlAt(modelPath, formview.KindSingleSelectRef, formview.KindMultiSelectRef, formview.KindRef)
		if err != nil {
			return err
		}
		previewPath = n.desc.StringOption(formview.OptionPreviewPath)
		selected = make(map[string]bool)
		value, _ := modelPath.Get(f.model)
		if n.desc.Kind == formview.KindMultiSelectRef {
			typeName = n.desc.Schema.Items.Ref
			list, _ := value.([]any)
			for _, item := range list {
				obj, _ := asObject(item)
				if id, ok := obj[formview.FieldRefID].(string); ok {
					selected[id] = true
				}
			}
			return nil
		}
		typeName = n.desc.Schema.Ref
		obj, _ := asObject(value)
		if id, ok := obj[formview.FieldRefID].(string); ok && id != "" {
			selected[id] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return RefOptions(ctx, f.registry, typeName, previewPath, selected)
}

// RefreshPreviews reloads the preview of every reference control with an identity.
func (f *Form) RefreshPreviews(ctx context.Context) error {
	type target struct {
		n  *controlNode
		id string
	}
	var targets []target
	_ = f.locked(func() error {
		f.eachLeaf(func(n *controlNode) {
			if n.desc.Kind != formview.KindRef && n.desc.Kind != formview.KindSingleSelectRef {
				return
			}
			if id, ok := stringAt(f.model, n.watch); ok {
				targets = append(targets, target{n: n, id: id})
			}
		})
		return nil
	})
	for _, t := range targets {
		if err := f.loadPreview(ctx, t.n, t.id); err != nil {
			return err
		}
	}
	return nil
}

// Preview returns the last loaded preview value of a reference control.
func (f *Form) Preview(modelPath formview.Path) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n := f.nodeAt(modelPath); n != nil {
		return n.preview
	}
	return nil
}

func (f *Form) loadPreview(ctx context.Context, n *controlNode, id string) error {
	if id == "" {
		f.mu.Lock()
		n.preview = nil
		f.mu.Unlock()
		return nil
	}
	preview, err := RefPreview(ctx, f.registry, n.desc.Schema.Ref, id, n.desc.StringOption(formview.OptionPreviewPath))
	if err != nil {
		return err
	}
	f.mu.Lock()
	if !n.torn {
		n.preview = preview
	}
	f.mu.Unlock()
	return nil
}

func countControls(d *formview.ControlDescriptor) int {
	count := 0
	d.Walk(func(*formview.ControlDescriptor) bool {
		count++
		return true
	})
	return count
}

func stringAt(root any, p formview.Path) (string, bool) {
	v, ok := p.Get(root)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

func newFileID() string {
	return "file-" + uuid.NewString()
}
