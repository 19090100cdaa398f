package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joonaspessi/site/internal/document"
)

func TestDocument(t *testing.T) {
	r := New(Options{})
	doc := document.Document{
		ID:    "post",
		Title: "Post",
		Body:  "## Experience\n\nHello **world**\n\n```go\nfmt.Println(\"hi\")\n```\n",
	}

	out, err := r.Document(doc)
	require.NoError(t, err)

	html := string(out)
	require.Contains(t, html, `<h2 id="experience">Experience</h2>`)
	require.Contains(t, html, "<strong>world</strong>")
	require.Contains(t, html, `<code class="language-go">`)
}

func TestRawHTMLIsOmittedUnlessUnsafe(t *testing.T) {
	source := []byte("<script>alert(1)</script>\n\ntext\n")

	safe, err := New(Options{}).Markdown(source)
	require.NoError(t, err)
	require.NotContains(t, string(safe), "<script>")

	unsafe, err := New(Options{Unsafe: true}).Markdown(source)
	require.NoError(t, err)
	require.Contains(t, string(unsafe), "<script>")
}

func TestLinkifyAndTables(t *testing.T) {
	out, err := New(Options{}).Markdown([]byte("See https://example.com\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"))
	require.NoError(t, err)

	html := string(out)
	require.Contains(t, html, `<a href="https://example.com">`)
	require.True(t, strings.Contains(html, "<table>"), html)
}
