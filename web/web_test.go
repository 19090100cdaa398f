package web

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTemplatesParse(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	for _, name := range []string{"index.html", "blog.html", "post.html", "contact.html", "admin-dashboard.html", "not-found.html"} {
		require.NotNil(t, tmpl.Lookup(name), name)
	}
}

func TestStaticAssets(t *testing.T) {
	data, err := fs.ReadFile(Static(), "site.css")
	require.NoError(t, err)
	require.NotEmpty(t, data)
}
