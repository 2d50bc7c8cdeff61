package internal

import (
	"context"

	"github.com/lychee-technology/formview"
)

// RefPreview loads the referenced document and reads previewPath from it. An empty
// previewPath yields the whole document.
func RefPreview(ctx context.Context, registry formview.Registry, typeName, id, previewPath string) (any, error) {
	if registry == nil || typeName == "" || id == "" {
		return nil, nil
	}
	res, err := registry.Get(typeName)
	if err != nil {
		return nil, err
	}
	doc, err := res.Load(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	return formview.JSONPointer(map[string]any(doc), previewPath), nil
}

// RefOptions lists the documents of typeName from its "all" view as selectable
// options named by previewPath.
func RefOptions(ctx context.Context, registry formview.Registry, typeName, previewPath string, selected map[string]bool) ([]formview.RefOption, error) {
	if registry == nil {
		return nil, nil
	}
	res, err := registry.Get(typeName)
	if err != nil {
		return nil, err
	}
	result, err := res.View(ctx, "all", formview.Params{"include_docs": true})
	if err != nil {
		return nil, err
	}
	options := make([]formview.RefOption, 0, len(result.Rows))
	for _, row := range result.Rows {
		var name any = row.ID
		if row.Doc != nil {
			name = formview.JSONPointer(map[string]any(row.Doc), previewPath)
		}
		options = append(options, formview.RefOption{ID: row.ID, Name: name, Selected: selected[row.ID]})
	}
	return options, nil
}
