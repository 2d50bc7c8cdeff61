//go:build e2e

package e2e_harness

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lychee-technology/formview"
	"github.com/lychee-technology/formview/factory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bucket = "formview-e2e"

func TestE2EArticleLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping E2E harness in -short mode")
	}
	ctx := context.Background()
	h := &TestHarness{}

	_, err := h.StartPostgres(ctx)
	require.NoError(t, err, "start postgres")
	defer h.StopPostgres(ctx)

	_, err = h.StartS3(ctx)
	require.NoError(t, err, "start minio")
	defer h.StopS3(ctx)
	t.Logf("harness: %s", h)

	schemaDir := t.TempDir()
	require.NoError(t, WriteSchemaDir(schemaDir))

	cfg := h.Config(schemaDir, bucket)
	require.NoError(t, SeedDocuments(ctx, h.PGDB, cfg.Database.Table, "author", []formview.Document{
		{formview.FieldID: "ada", "name": "Ada Lovelace"},
		{formview.FieldID: "grace", "name": "Grace Hopper"},
	}))

	pool, err := factory.NewDatabasePool(ctx, cfg.Database)
	require.NoError(t, err)
	defer pool.Close()

	backend, err := factory.NewBackend(ctx, cfg, pool)
	require.NoError(t, err)
	srv := httptest.NewServer(backend.Handler())
	defer srv.Close()

	cfg.Client.BaseURL = srv.URL
	registry, err := factory.NewRegistry(ctx, cfg.Client, srv.Client())
	require.NoError(t, err)
	assert.Equal(t, []string{"article", "author"}, registry.Types())

	ctrl, err := factory.NewModelController(ctx, registry, cfg.Form, factory.ControllerParams{Type: "article"})
	require.NoError(t, err)
	form := ctrl.Form()

	root := formview.Path{}
	require.NoError(t, form.Set(root.Key("title"), "Über Größe"))
	require.NoError(t, form.GenerateSlug(root.Key("slug")))
	slug, _ := form.Get(root.Key("slug"))
	assert.Equal(t, "ueber-groesse", slug)

	options, err := form.RefOptions(ctx, root.Key("author"))
	require.NoError(t, err)
	assert.Len(t, options, 2)

	require.NoError(t, form.SelectRef(ctx, root.Key("author"), "ada"))
	assert.Equal(t, "Ada Lovelace", form.Preview(root.Key("author")))

	image := []byte("\x89PNG fake image")
	require.NoError(t, form.AttachFile(root.Key("cover"), formview.Attachment{
		Name:        "cover.png",
		ContentType: "image/png",
		Data:        image,
	}))
	require.Len(t, ctrl.Files(), 1)
	require.True(t, ctrl.Valid(), "errors: %v", form.Errors())

	saved, err := ctrl.Save(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID())
	assert.Empty(t, ctrl.Files(), "saving replaces the model and resets the file set")

	cover, _ := saved["cover"].(map[string]any)
	require.NotNil(t, cover)
	url, _ := cover["url"].(string)
	prefix := h.S3Endpoint + "/" + bucket + "/"
	require.True(t, strings.HasPrefix(url, prefix), "unexpected attachment url %q", url)

	stored, err := FetchObject(ctx, h.S3Endpoint, bucket, strings.TrimPrefix(url, prefix))
	require.NoError(t, err)
	assert.Equal(t, image, stored)

	// a stale revision is rejected by the postgres store
	stale := formview.Document{
		formview.FieldID:  saved.ID(),
		formview.FieldRev: "1-stale",
		"title":           "Stale",
		"author":          map[string]any{formview.FieldRefID: "ada"},
	}
	res, err := registry.Get("article")
	require.NoError(t, err)
	_, err = res.Save(ctx, stale, nil)
	assert.True(t, formview.HasErrorCode(err, formview.ErrCodeConflict))

	list, err := factory.NewModelList(ctx, registry, cfg.Form, "article", []string{"title", "author/id_"})
	require.NoError(t, err)
	rows := list.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, []any{"Über Größe", "ada"}, rows[0].Cells)
}
