package formview

import (
	"context"
	"time"
)

// Resource performs load, save, destroy, view and search operations for one entity type.
type Resource interface {
	Type() string
	Descriptor() ResourceDescriptor

	Schema(ctx context.Context) (*Schema, error)
	// Load fetches a document by id. With an empty id the collection endpoint is queried with params.
	Load(ctx context.Context, id string, params Params) (Document, error)
	// Save creates or updates a document; the caller's copy is never mutated.
	Save(ctx context.Context, doc Document, files []Attachment) (Document, error)
	// Destroy requires both _id and _rev.
	Destroy(ctx context.Context, doc Document) error

	View(ctx context.Context, name string, params Params) (*ViewResult, error)
	Search(ctx context.Context, name string, params Params) (*ViewResult, error)
}

// Registry resolves resources by entity type. It is immutable once built.
type Registry interface {
	Get(typeName string) (Resource, error)
	Types() []string
	GetIDs(ctx context.Context, count int) ([]string, error)
}

// ViewEngine renders a compiled control tree bound to its model. It is called after
// every full compile pass.
type ViewEngine interface {
	Render(root *ControlDescriptor, model Document) error
}

// Form is a mounted control tree bound to a model, with aggregated validity.
// Paths passed to mutating methods are model paths relative to the form root.
type Form interface {
	Schema() *Schema
	Model() Document
	Descriptor() *ControlDescriptor

	Valid() bool
	Ready() bool
	OnReady(fn func())
	Errors() []string
	ControlErrors(modelPath Path) []string
	ErrorMessage(modelPath Path, code string) string
	InjectCustomError(pointer, code, message string) bool

	Get(modelPath Path) (any, bool)
	Set(modelPath Path, value any) error
	Rebuild(model Document) error

	AddItem(arrayPath Path, variant string) error
	RemoveItem(arrayPath Path, index int) error
	MoveItemUp(arrayPath Path, index int) error
	MoveItemDown(arrayPath Path, index int) error

	SetPasswords(modelPath Path, first, second string) error
	GenerateSlug(modelPath Path) error
	SetDatetime(modelPath Path, t time.Time) error
	AttachFile(modelPath Path, file Attachment) error
	DetachFile(modelPath Path) error

	SelectRef(ctx context.Context, modelPath Path, id string) error
	SelectRefs(modelPath Path, ids []string) error
	RefOptions(ctx context.Context, modelPath Path) ([]RefOption, error)
	RefreshPreviews(ctx context.Context) error
	Preview(modelPath Path) any
}

// ModelController orchestrates schema fetch, load, edit, save and destroy for one document.
type ModelController interface {
	State() ModelState
	Err() error
	Schema() *Schema
	Model() Document
	Form() Form
	IsNew() bool
	Valid() bool

	Load(ctx context.Context, id string) error
	Save(ctx context.Context) (Document, error)
	Destroy(ctx context.Context) error
	SetID(ctx context.Context, id string) error

	RequestSave(ctx context.Context) (Document, error)
	RequestDestroy(ctx context.Context) error
	Cancel()

	Files() []Attachment
	Debug() bool
	ToggleDebug() bool
	Subscribe(fn ModelListener) (unsubscribe func())
}

// ModelList is a paginated table over a type's "all" view.
type ModelList interface {
	Headers() []string
	Titles() []string
	Rows() []ListRow
	PageNo() int
	TotalPages() int
	HasNext() bool
	HasPrev() bool
	Loading() bool

	Reload(ctx context.Context) error
	Next(ctx context.Context) error
	Prev(ctx context.Context) error
	Select(id string)
	OnSelect(fn func(id string))
}
