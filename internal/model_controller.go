package internal

import (
	"context"
	"sort"
	"sync"

	"github.com/lychee-technology/formview"
	"go.uber.org/zap"
)

// ModelControllerOptions configures a ModelController.
type ModelControllerOptions struct {
	Registry formview.Registry
	Type     string
	// ID binds an existing document; empty starts from a default document.
	ID string
	// Defaults are applied by JSON pointer to every synthesized default document.
	Defaults map[string]any

	Namespace          string
	Engine             formview.ViewEngine
	ValidateBeforeSave bool
	FenceLoads         bool
}

// ModelController drives one document through loading, editing, saving and error.
//
// Lock order is mu, then the form lock, then filesMu. The form calls back into the
// file sink while holding its own lock, so filesMu is never held across form calls.
type ModelController struct {
	opts     ModelControllerOptions
	resource formview.Resource

	mu       sync.Mutex
	schema   *formview.Schema
	form     *Form
	state    formview.ModelState
	err      error
	id       string
	debug    bool
	watching bool
	gen      uint64

	filesMu sync.Mutex
	files   map[string]formview.Attachment

	listenersMu  sync.Mutex
	listeners    map[int]formview.ModelListener
	nextListener int
}

var (
	_ formview.ModelController = (*ModelController)(nil)
	_ FileSink                 = (*ModelController)(nil)
)

// NewModelController resolves the resource for opts.Type. Call Init to fetch the
// schema and the document.
func NewModelController(opts ModelControllerOptions) (*ModelController, error) {
	if opts.Registry == nil {
		return nil, formview.NewFormError(formview.ErrorTypeConfiguration, formview.ErrCodeUnknownResource,
			"model controller requires a registry")
	}
	res, err := opts.Registry.Get(opts.Type)
	if err != nil {
		return nil, err
	}
	return &ModelController{
		opts:      opts,
		resource:  res,
		state:     formview.StateLoading,
		id:        opts.ID,
		files:     make(map[string]formview.Attachment),
		listeners: make(map[int]formview.ModelListener),
	}, nil
}

// Init fetches the schema, then loads the bound document or synthesizes a default
// one, then enables identity watching and announces readiness.
func (c *ModelController) Init(ctx context.Context) error {
	schema, err := c.resource.Schema(ctx)
	if err != nil {
		c.fail(err)
		return err
	}

	c.mu.Lock()
	c.schema = schema
	id := c.id
	c.mu.Unlock()

	if id == "" {
		var events []formview.ModelEvent
		c.mu.Lock()
		err = c.setModel(nil)
		if err == nil {
			events = append(events, c.transition(formview.StateEditing))
		}
		c.mu.Unlock()
		c.emit(events...)
		if err != nil {
			c.fail(err)
			return err
		}
	} else if err := c.Load(ctx, id); err != nil {
		return err
	}

	c.mu.Lock()
	c.watching = true
	c.mu.Unlock()
	c.emit(c.lockedEvent(formview.EventReady))
	return nil
}

// Load fetches the document with id. With load fencing, a response that arrives
// after a newer load started is discarded.
func (c *ModelController) Load(ctx context.Context, id string) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	started := c.transition(formview.StateLoading)
	c.mu.Unlock()
	c.emit(started)

	doc, err := c.resource.Load(ctx, id, nil)

	c.mu.Lock()
	if c.opts.FenceLoads && gen != c.gen {
		c.mu.Unlock()
		zap.S().Warnw("discarding superseded load", "type", c.opts.Type, "id", id)
		return nil
	}
	if err != nil {
		c.err = err
		ev := c.transition(formview.StateError)
		c.mu.Unlock()
		c.emit(ev)
		return err
	}
	if err := c.setModel(doc); err != nil {
		c.err = err
		ev := c.transition(formview.StateError)
		c.mu.Unlock()
		c.emit(ev)
		return err
	}
	c.id = id
	ev := c.transition(formview.StateEditing)
	c.mu.Unlock()
	c.emit(ev)
	return nil
}

// Save sends the current document with the pending files. It fails with
// FORM_INVALID, without any request and state change, while the form has errors.
// Field failures reported by the backend are put back onto the form.
func (c *ModelController) Save(ctx context.Context) (formview.Document, error) {
	c.mu.Lock()
	if c.form == nil || !c.form.Valid() {
		c.mu.Unlock()
		return nil, formview.NewFormInvalidError()
	}
	doc := c.form.Model()
	if c.opts.ValidateBeforeSave {
		if err := c.checkDocument(doc); err != nil {
			c.mu.Unlock()
			return nil, err
		}
	}
	started := c.transition(formview.StateSaving)
	c.mu.Unlock()
	c.emit(started)

	saved, err := c.resource.Save(ctx, doc, c.Files())

	c.mu.Lock()
	if err != nil {
		var ev formview.ModelEvent
		if formview.IsValidationError(err) {
			ev = c.transition(formview.StateEditing)
			if fe, ok := formview.AsFormError(err); ok {
				for _, fieldErr := range fe.Errors {
					c.form.InjectCustomError(fieldErr.Path, fieldErr.Code, fieldErr.Message)
				}
			}
		} else {
			c.err = err
			ev = c.transition(formview.StateError)
		}
		c.mu.Unlock()
		c.emit(ev)
		return nil, err
	}
	if err := c.setModel(saved); err != nil {
		c.err = err
		ev := c.transition(formview.StateError)
		c.mu.Unlock()
		c.emit(ev)
		return nil, err
	}
	c.id = saved.ID()
	events := []formview.ModelEvent{c.transition(formview.StateEditing), c.event(formview.EventSaved)}
	c.mu.Unlock()
	c.emit(events...)
	return saved, nil
}

func (c *ModelController) checkDocument(doc formview.Document) error {
	if errs := CheckDocument(c.schema, doc); len(errs) > 0 {
		for _, fieldErr := range errs {
			c.form.InjectCustomError(fieldErr.Path, fieldErr.Code, fieldErr.Message)
		}
		return formview.NewValidationFailedError("", errs)
	}
	if err := ValidateDocument(c.schema, doc); err != nil {
		return formview.NewValidationFailedError("", nil).WithCause(err).WithDetail("reason", err.Error())
	}
	return nil
}

// Destroy deletes the document and starts over from a default document.
func (c *ModelController) Destroy(ctx context.Context) error {
	doc := c.Model()
	if err := c.resource.Destroy(ctx, doc); err != nil {
		return err
	}
	c.mu.Lock()
	c.id = ""
	err := c.setModel(nil)
	ev := c.event(formview.EventDestroyed)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.emit(ev)
	return nil
}

// SetID rebinds the controller. After Init, a new id loads that document and
// clearing the id resets to a default document.
func (c *ModelController) SetID(ctx context.Context, id string) error {
	c.mu.Lock()
	old := c.id
	c.id = id
	watching := c.watching
	c.mu.Unlock()

	if !watching || id == old {
		return nil
	}
	if id != "" {
		return c.Load(ctx, id)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setModel(nil)
}

// RequestSave announces a save request, then saves.
func (c *ModelController) RequestSave(ctx context.Context) (formview.Document, error) {
	c.emit(c.lockedEvent(formview.EventSaveRequested))
	return c.Save(ctx)
}

// RequestDestroy announces a destroy request, then destroys.
func (c *ModelController) RequestDestroy(ctx context.Context) error {
	c.emit(c.lockedEvent(formview.EventDestroyRequested))
	return c.Destroy(ctx)
}

// Cancel announces that editing was abandoned.
func (c *ModelController) Cancel() {
	c.emit(c.lockedEvent(formview.EventCancel))
}

// setModel replaces the document, synthesizing a default one for nil, and resets
// the pending files. Callers hold mu.
func (c *ModelController) setModel(doc formview.Document) error {
	if doc == nil {
		var err error
		if doc, err = formview.CreateDocument(c.schema, ""); err != nil {
			return err
		}
		for pointer, value := range c.opts.Defaults {
			v, err := formview.CloneValue(value)
			if err != nil {
				return err
			}
			root, err := formview.ParsePointer(pointer).Set(doc, v)
			if err != nil {
				return err
			}
			if d, ok := formview.AsDocument(root); ok {
				doc = d
			}
		}
	}

	if c.form == nil {
		form, err := NewForm(c.schema, doc, FormOptions{
			Namespace: c.opts.Namespace,
			Registry:  c.opts.Registry,
			Files:     c,
			Engine:    c.opts.Engine,
		})
		if err != nil {
			return err
		}
		c.form = form
	} else if err := c.form.Rebuild(doc); err != nil {
		return err
	}

	c.filesMu.Lock()
	c.files = make(map[string]formview.Attachment)
	c.filesMu.Unlock()
	return nil
}

// SetFile records a pending attachment.
func (c *ModelController) SetFile(id string, file formview.Attachment) {
	c.filesMu.Lock()
	defer c.filesMu.Unlock()
	c.files[id] = file
}

// RemoveFile drops a pending attachment.
func (c *ModelController) RemoveFile(id string) {
	c.filesMu.Lock()
	defer c.filesMu.Unlock()
	delete(c.files, id)
}

// Files lists the pending attachments ordered by file id.
func (c *ModelController) Files() []formview.Attachment {
	c.filesMu.Lock()
	defer c.filesMu.Unlock()
	ids := make([]string, 0, len(c.files))
	for id := range c.files {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]formview.Attachment, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.files[id])
	}
	return out
}

func (c *ModelController) State() formview.ModelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the failure that moved the controller into the error state.
func (c *ModelController) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *ModelController) Schema() *formview.Schema {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schema
}

func (c *ModelController) Model() formview.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.form == nil {
		return nil
	}
	return c.form.Model()
}

func (c *ModelController) Form() formview.Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.form == nil {
		return nil
	}
	return c.form
}

// ID returns the bound document id.
func (c *ModelController) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// IsNew reports whether the document has never been saved.
func (c *ModelController) IsNew() bool {
	doc := c.Model()
	return doc == nil || doc.IsNew()
}

func (c *ModelController) Valid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form != nil && c.form.Valid()
}

func (c *ModelController) Debug() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.debug
}

func (c *ModelController) ToggleDebug() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.debug = !c.debug
	return c.debug
}

// Subscribe registers fn for lifecycle events. Events are delivered outside the
// controller lock, in the order they occurred.
func (c *ModelController) Subscribe(fn formview.ModelListener) func() {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *ModelController) fail(err error) {
	c.mu.Lock()
	c.err = err
	ev := c.transition(formview.StateError)
	c.mu.Unlock()
	c.emit(ev)
}

// transition moves to state and returns the event announcing it. Callers hold mu.
func (c *ModelController) transition(state formview.ModelState) formview.ModelEvent {
	if c.state != state {
		zap.S().Debugw("model state", "type", c.opts.Type, "id", c.id, "from", c.state, "to", state)
	}
	c.state = state
	return c.event(formview.EventStateChanged)
}

// event builds an announcement from the current state. Callers hold mu.
func (c *ModelController) event(t formview.EventType) formview.ModelEvent {
	ev := formview.ModelEvent{Type: t, State: c.state, Err: c.err}
	if c.form != nil && t != formview.EventStateChanged {
		ev.Document = c.form.Model()
	}
	return ev
}

func (c *ModelController) lockedEvent(t formview.EventType) formview.ModelEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.event(t)
}

func (c *ModelController) emit(events ...formview.ModelEvent) {
	if len(events) == 0 {
		return
	}
	c.listenersMu.Lock()
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]formview.ModelListener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.listeners[id])
	}
	c.listenersMu.Unlock()

	for _, ev := range events {
		for _, fn := range fns {
			fn(ev)
		}
	}
}
