package formview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathRendering(t *testing.T) {
	tests := []struct {
		name    string
		path    Path
		pointer string
		dotted  string
	}{
		{name: "root", path: Path{}, pointer: "", dotted: "model"},
		{name: "key", path: Path{}.Key("title"), pointer: "/title", dotted: "model.title"},
		{name: "nested index", path: Path{}.Key("tags").Index(3).Key("name"), pointer: "/tags/3/name", dotted: "model.tags[3].name"},
		{name: "escaped", path: Path{}.Key("a/b").Key("c~d"), pointer: "/a~1b/c~0d", dotted: "model.a/b.c~d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.pointer, tt.path.Pointer())
			assert.Equal(t, tt.dotted, tt.path.Dotted("model"))
		})
	}
}

func TestPathDoesNotAlias(t *testing.T) {
	base := Path{}.Key("items")
	a := base.Index(0)
	b := base.Index(1)
	assert.Equal(t, "/items/0", a.Pointer())
	assert.Equal(t, "/items/1", b.Pointer())

	parent := a.Parent()
	extended := parent.Key("x")
	assert.Equal(t, "/items/0", a.Pointer(), "extending a parent must not overwrite the child")
	assert.Equal(t, "/items/x", extended.Pointer())
}

func TestPathHelpers(t *testing.T) {
	p := Path{}.Key("list").Index(2)
	assert.Equal(t, "list", p.LastKey())
	assert.True(t, p.HasPrefix(Path{}.Key("list")))
	assert.False(t, p.HasPrefix(Path{}.Key("other")))
	assert.True(t, p.Equal(ParsePointer("/list/2")), "numeric keys equal index steps")
	assert.Nil(t, Path{}.Parent())

	last, ok := p.Last()
	require.True(t, ok)
	assert.True(t, last.IsIndex)
	assert.Equal(t, 2, last.Index)

	joined := Path{}.Key("a").Join(Path{}.Key("b").Index(0))
	assert.Equal(t, "/a/b/0", joined.Pointer())
}

func TestParsePointer(t *testing.T) {
	tests := []struct {
		in   string
		want string
		len  int
	}{
		{in: "", want: "", len: 0},
		{in: "/", want: "", len: 0},
		{in: "/a/b", want: "/a/b", len: 2},
		{in: "a/b/", want: "/a/b", len: 2},
		{in: "/x~1y/~0z", want: "/x~1y/~0z", len: 2},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p := ParsePointer(tt.in)
			assert.Len(t, p, tt.len)
			assert.Equal(t, tt.want, p.Pointer())
		})
	}
	assert.Equal(t, "x/y", ParsePointer("/x~1y")[0].Key)
}

func TestPathGetSetDelete(t *testing.T) {
	doc := Document{
		"title": "Hello",
		"tags":  []any{map[string]any{"name": "go"}, map[string]any{"name": "json"}},
	}

	v, ok := ParsePointer("/tags/1/name").Get(doc)
	require.True(t, ok)
	assert.Equal(t, "json", v)

	_, ok = ParsePointer("/tags/5/name").Get(doc)
	assert.False(t, ok)

	_, err := Path{}.Key("meta").Key("author").Key("name").Set(doc, "Ada")
	require.NoError(t, err)
	assert.Equal(t, "Ada", JSONPointer(doc, "/meta/author/name"))

	_, err = Path{}.Key("tags").Index(0).Key("name").Set(doc, "golang")
	require.NoError(t, err)
	assert.Equal(t, "golang", JSONPointer(doc, "/tags/0/name"))

	_, err = Path{}.Key("tags").Index(9).Set(doc, "x")
	assert.True(t, HasErrorCode(err, ErrCodeModelMismatch))

	_, err = Path{}.Key("title").Key("sub").Set(doc, "x")
	assert.True(t, HasErrorCode(err, ErrCodeModelMismatch))

	root, err := Path{}.Set(doc, "replaced")
	require.NoError(t, err)
	assert.Equal(t, "replaced", root)

	assert.True(t, Path{}.Key("title").Delete(doc))
	assert.False(t, Path{}.Key("title").Delete(doc))
	assert.False(t, Path{}.Delete(doc))
	_, ok = doc["title"]
	assert.False(t, ok)
}

func TestJSONPointer(t *testing.T) {
	obj := map[string]any{"a": map[string]any{"b": []any{1.0, 2.0}}}
	assert.Equal(t, obj, JSONPointer(obj, ""))
	assert.Equal(t, 2.0, JSONPointer(obj, "/a/b/1"))
	assert.Nil(t, JSONPointer(obj, "/a/missing/deep"))
	assert.Nil(t, JSONPointer(nil, "/a"))
}
