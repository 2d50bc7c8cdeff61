package internal

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lychee-technology/formview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryBuild(t *testing.T) {
	backend := &fakeBackend{respond: func(w http.ResponseWriter, r *http.Request, _ []byte) {
		if r.URL.Path == "/_uuids" {
			writeJSON(w, http.StatusOK, map[string]any{"uuids": []string{"u1"}})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}}
	_, registry := newPostResource(t, backend, formview.DefaultConfig().Client)

	assert.Equal(t, []string{"post"}, registry.Types())

	res, err := registry.Get("post")
	require.NoError(t, err)
	assert.Equal(t, "post", res.Type())
	assert.Contains(t, res.Descriptor().ViewPaths["all"], "/post/_view/all")

	_, err = registry.Get("comment")
	assert.True(t, formview.HasErrorCode(err, formview.ErrCodeUnknownResource))

	ids, err := registry.GetIDs(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, ids)
	reqs := backend.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "1", reqs[0].Query["count"][0])
}

func TestRegistryFromIndex(t *testing.T) {
	b := NewRegistryBuilder(formview.ClientConfig{BaseURL: "http://api.local/"}, nil)
	r := b.FromIndex(map[string]formview.ResourceDescriptor{
		"b": {Path: "/b"},
		"a": {Path: "/a"},
	})
	assert.Equal(t, []string{"a", "b"}, r.Types())
	res, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "http://api.local/a", res.Descriptor().Path)
}

func TestRegistryBuildFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":"starting"}`)
	}))
	defer srv.Close()

	_, err := NewRegistryBuilder(formview.ClientConfig{BaseURL: srv.URL}, srv.Client()).Build(context.Background())
	fe, ok := formview.AsFormError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, fe.Status)
	assert.Equal(t, "starting", fe.Message)
}
