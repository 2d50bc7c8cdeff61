package store

import (
	"context"
	"strings"
	"testing"

	"github.com/lychee-technology/formview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextRev(t *testing.T) {
	tests := []struct {
		rev    string
		prefix string
	}{
		{rev: "", prefix: "1-"},
		{rev: "1-abc", prefix: "2-"},
		{rev: "41-x", prefix: "42-"},
		{rev: "garbage", prefix: "1-"},
	}
	for _, tt := range tests {
		got := NextRev(tt.rev)
		assert.True(t, strings.HasPrefix(got, tt.prefix), "NextRev(%q) = %q", tt.rev, got)
	}
	assert.NotEqual(t, NewID(), NewID())
	assert.NotContains(t, NewID(), "-")
}

func TestMemoryStorePutAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	created, err := s.Put(ctx, "post", formview.Document{"title": "Hello"})
	require.NoError(t, err)
	id := created.ID()
	require.NotEmpty(t, id)
	assert.True(t, strings.HasPrefix(created.Rev(), "1-"))
	assert.Equal(t, "post", created.Type())

	got, err := s.Get(ctx, "post", id)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	got["title"] = "Changed"
	again, _ := s.Get(ctx, "post", id)
	assert.Equal(t, "Hello", again["title"], "returned documents are copies")

	updated, err := s.Put(ctx, "post", got)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(updated.Rev(), "2-"))

	_, err = s.Put(ctx, "post", got)
	assert.ErrorIs(t, err, ErrConflict, "the old revision is stale")

	_, err = s.Put(ctx, "post", formview.Document{"_id": id})
	assert.ErrorIs(t, err, ErrConflict, "creating over an existing id conflicts")

	_, err = s.Put(ctx, "post", formview.Document{"_id": "ghost", "_rev": "3-x"})
	assert.ErrorIs(t, err, ErrNotFound)

	named, err := s.Put(ctx, "post", formview.Document{"_id": "chosen"})
	require.NoError(t, err)
	assert.Equal(t, "chosen", named.ID())

	_, err = s.Get(ctx, "comment", id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	doc, err := s.Put(ctx, "post", formview.Document{"_id": "p1"})
	require.NoError(t, err)

	assert.ErrorIs(t, s.Delete(ctx, "post", "p1", "9-old"), ErrConflict)
	assert.ErrorIs(t, s.Delete(ctx, "post", "p2", doc.Rev()), ErrNotFound)
	require.NoError(t, s.Delete(ctx, "post", "p1", doc.Rev()))
	_, err = s.Get(ctx, "post", "p1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, id := range []string{"c", "a", "d", "b"} {
		_, err := s.Put(ctx, "post", formview.Document{"_id": id, "title": "Post " + strings.ToUpper(id)})
		require.NoError(t, err)
	}
	_, err := s.Put(ctx, "user", formview.Document{"_id": "u"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		query ListQuery
		ids   []string
		total int
	}{
		{name: "all", query: ListQuery{}, ids: []string{"a", "b", "c", "d"}, total: 4},
		{name: "page", query: ListQuery{Limit: 2}, ids: []string{"a", "b"}, total: 4},
		{name: "start key", query: ListQuery{StartKey: "b", Limit: 2}, ids: []string{"b", "c"}, total: 4},
		{name: "text", query: ListQuery{Text: "post c"}, ids: []string{"c"}, total: 1},
		{name: "past the end", query: ListQuery{StartKey: "z"}, ids: []string{}, total: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, total, err := s.List(ctx, "post", tt.query)
			require.NoError(t, err)
			ids := make([]string, len(docs))
			for i, d := range docs {
				ids[i] = d.ID()
			}
			assert.Equal(t, tt.ids, ids)
			assert.Equal(t, tt.total, total)
		})
	}
}

func TestMemoryBlobStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryBlobStore("http://localhost:8080/api/_files/")

	data := []byte("hello")
	url, err := s.Put(ctx, "abc/file.txt", "text/plain", data)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api/_files/abc/file.txt", url)
	data[0] = 'j'

	got, contentType, err := s.Get(ctx, "abc/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
	assert.Equal(t, "text/plain", contentType)

	_, _, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrBlobNotFound)
}
