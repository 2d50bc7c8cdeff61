package formview

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResourceDescriptorWithBase(t *testing.T) {
	d := ResourceDescriptor{
		Path:        "/post",
		SchemaPath:  "/_schema/post",
		ViewPaths:   map[string]string{"byDate": "/post/_view/byDate"},
		SearchPaths: map[string]string{"title": "/post/_search/title"},
	}

	got := d.WithBase("http://api.local/v1/")
	assert.Equal(t, ResourceDescriptor{
		Path:        "http://api.local/v1/post",
		SchemaPath:  "http://api.local/v1/_schema/post",
		ViewPaths:   map[string]string{"byDate": "http://api.local/v1/post/_view/byDate"},
		SearchPaths: map[string]string{"title": "http://api.local/v1/post/_search/title"},
	}, got)

	assert.Equal(t, "/post/_view/byDate", d.ViewPaths["byDate"], "the receiver is not modified")
}

func TestResourceDescriptorWithBaseEmpty(t *testing.T) {
	got := ResourceDescriptor{Path: "/user"}.WithBase("")
	assert.Equal(t, "/user", got.Path)
	assert.NotNil(t, got.ViewPaths)
	assert.Empty(t, got.SearchPaths)
}
