package formview

import (
	"strings"
)

// ResourceDescriptor is the per-type entry of the entity index.
type ResourceDescriptor struct {
	Path        string            `json:"path"`
	SchemaPath  string            `json:"schemaPath"`
	ViewPaths   map[string]string `json:"viewPaths,omitempty"`
	SearchPaths map[string]string `json:"searchPaths,omitempty"`
}

// WithBase returns a copy with every endpoint prefixed by the API base URL.
func (d ResourceDescriptor) WithBase(base string) ResourceDescriptor {
	base = strings.TrimSuffix(base, "/")
	out := ResourceDescriptor{
		Path:        base + d.Path,
		SchemaPath:  base + d.SchemaPath,
		ViewPaths:   make(map[string]string, len(d.ViewPaths)),
		SearchPaths: make(map[string]string, len(d.SearchPaths)),
	}
	for name, p := range d.ViewPaths {
		out.ViewPaths[name] = base + p
	}
	for name, p := range d.SearchPaths {
		out.SearchPaths[name] = base + p
	}
	return out
}

// Params are query parameters for load, view and search requests.
type Params map[string]any

// ViewRow is one row of a view or search result.
type ViewRow struct {
	ID    string   `json:"id"`
	Key   any      `json:"key,omitempty"`
	Value any      `json:"value,omitempty"`
	Doc   Document `json:"doc,omitempty"`
}

// ViewResult is the response of a named view or search endpoint.
type ViewResult struct {
	TotalRows int       `json:"total_rows"`
	Offset    int       `json:"offset,omitempty"`
	Rows      []ViewRow `json:"rows"`
}

// Attachment is a file sent alongside a document save.
type Attachment struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
	Data        []byte `json:"-"`
}

// ModelState is the lifecycle state of a model controller.
type ModelState string

const (
	StateLoading ModelState = "loading"
	StateEditing ModelState = "editing"
	StateSaving  ModelState = "saving"
	StateError   ModelState = "error"
)

// EventType names lifecycle announcements.
type EventType string

const (
	EventReady            EventType = "model:ready"
	EventSaved            EventType = "model:saved"
	EventDestroyed        EventType = "model:destroyed"
	EventSaveRequested    EventType = "model:save"
	EventDestroyRequested EventType = "model:destroy"
	EventCancel           EventType = "model:cancel"
	EventStateChanged     EventType = "model:state"
)

// ModelEvent is delivered to lifecycle listeners.
type ModelEvent struct {
	Type     EventType
	State    ModelState
	Document Document
	Err      error
}

// ModelListener receives lifecycle events.
type ModelListener func(ModelEvent)

// RefOption is a selectable referenced document.
type RefOption struct {
	ID       string `json:"id"`
	Name     any    `json:"name"`
	Selected bool   `json:"selected"`
}

// ListRow is one table row of a model list; Cells follow the list headers.
type ListRow struct {
	ID    string `json:"id"`
	Cells []any  `json:"cells"`
}
