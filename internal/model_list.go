package internal

import (
	"context"
	"math"
	"strings"
	"sync"

	"github.com/lychee-technology/formview"
	"go.uber.org/zap"
)

// DefaultPageSize is the list page size when none is configured.
const DefaultPageSize = 20

// ModelListOptions configures a ModelList.
type ModelListOptions struct {
	Registry formview.Registry
	Type     string
	Limit    int
	// Headers are JSON pointers into each document; empty uses the schema's
	// non-private top-level properties.
	Headers []string
}

// ModelList pages through the "all" view of a type. It fetches one row more than
// the page size and uses that row's id as the start key of the next page.
type ModelList struct {
	resource formview.Resource
	limit    int

	mu         sync.Mutex
	headers    []string
	titles     []string
	rows       []formview.ListRow
	prevIDs    []string
	curID      string
	nextID     string
	pageNo     int
	totalPages int
	loading    bool
	onSelect   []func(id string)
}

var _ formview.ModelList = (*ModelList)(nil)

// NewModelList resolves the type's resource.
func NewModelList(opts ModelListOptions) (*ModelList, error) {
	if opts.Registry == nil {
		return nil, formview.NewFormError(formview.ErrorTypeConfiguration, formview.ErrCodeUnknownResource,
			"model list requires a registry")
	}
	res, err := opts.Registry.Get(opts.Type)
	if err != nil {
		return nil, err
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return &ModelList{
		resource:   res,
		limit:      limit,
		headers:    append([]string(nil), opts.Headers...),
		pageNo:     1,
		totalPages: 1,
	}, nil
}

// Init fetches the schema to derive headers and titles, then loads the first page.
func (l *ModelList) Init(ctx context.Context) error {
	schema, err := l.resource.Schema(ctx)
	if err != nil {
		return err
	}
	l.mu.Lock()
	if len(l.headers) == 0 {
		for _, name := range schema.Properties.Names() {
			if !formview.IsPrivateProperty(name) {
				l.headers = append(l.headers, name)
			}
		}
	}
	l.titles = make([]string, len(l.headers))
	for i, h := range l.headers {
		l.titles[i] = strings.Split(strings.TrimPrefix(h, "/"), ".")[0]
	}
	l.mu.Unlock()
	return l.load(ctx, "")
}

func (l *ModelList) load(ctx context.Context, startKey string) error {
	l.mu.Lock()
	l.loading = true
	l.mu.Unlock()

	params := formview.Params{
		"include_docs": true,
		"include_refs": true,
		"limit":        l.limit + 1,
	}
	if startKey != "" {
		params["startkey"] = startKey
	}
	result, err := l.resource.View(ctx, "all", params)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loading = false
	if err != nil {
		zap.S().Warnw("model list load failed", "type", l.resource.Type(), "error", err)
		return err
	}
	if result.TotalRows == 0 {
		l.rows = nil
		l.curID, l.nextID = "", ""
		l.prevIDs = nil
		l.pageNo, l.totalPages = 1, 1
		return nil
	}

	rows := make([]formview.ListRow, 0, len(result.Rows))
	for _, row := range result.Rows {
		cells := make([]any, len(l.headers))
		for i, h := range l.headers {
			cells[i] = formview.JSONPointer(map[string]any(row.Doc), headerPointer(h))
		}
		rows = append(rows, formview.ListRow{ID: row.ID, Cells: cells})
	}
	if len(rows) > 0 {
		l.curID = rows[0].ID
		l.nextID = ""
		l.pageNo = len(l.prevIDs) + 1
		l.totalPages = int(math.Ceil(float64(result.TotalRows) / float64(l.limit)))
		if len(rows) > l.limit {
			l.nextID = rows[l.limit].ID
			rows = rows[:l.limit]
		}
	}
	l.rows = rows
	return nil
}

func headerPointer(h string) string {
	if strings.HasPrefix(h, "/") {
		return h
	}
	return "/" + h
}

// Reload fetches the first page again. The page history is kept.
func (l *ModelList) Reload(ctx context.Context) error {
	return l.load(ctx, "")
}

// Next moves to the following page; a no-op on the last page.
func (l *ModelList) Next(ctx context.Context) error {
	l.mu.Lock()
	next := l.nextID
	if next == "" {
		l.mu.Unlock()
		return nil
	}
	l.prevIDs = append(l.prevIDs, l.curID)
	l.mu.Unlock()
	return l.load(ctx, next)
}

// Prev moves to the previous page; a no-op on the first page.
func (l *ModelList) Prev(ctx context.Context) error {
	l.mu.Lock()
	if len(l.prevIDs) == 0 {
		l.mu.Unlock()
		return nil
	}
	start := l.prevIDs[len(l.prevIDs)-1]
	l.prevIDs = l.prevIDs[:len(l.prevIDs)-1]
	l.mu.Unlock()
	return l.load(ctx, start)
}

// Select announces the selection of a row.
func (l *ModelList) Select(id string) {
	l.mu.Lock()
	fns := append([]func(string){}, l.onSelect...)
	l.mu.Unlock()
	for _, fn := range fns {
		fn(id)
	}
}

// OnSelect registers fn for row selections.
func (l *ModelList) OnSelect(fn func(id string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onSelect = append(l.onSelect, fn)
}

func (l *ModelList) Headers() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.headers...)
}

func (l *ModelList) Titles() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.titles...)
}

func (l *ModelList) Rows() []formview.ListRow {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]formview.ListRow(nil), l.rows...)
}

func (l *ModelList) PageNo() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pageNo
}

func (l *ModelList) TotalPages() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalPages
}

func (l *ModelList) HasNext() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextID != ""
}

func (l *ModelList) HasPrev() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prevIDs) > 0
}

func (l *ModelList) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}
