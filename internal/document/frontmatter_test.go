package document

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joonaspessi/site/content"
)

func readFixture(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestParse(t *testing.T) {
	doc, err := Parse("basic", readFixture(t, "testdata/basic.md"))
	require.NoError(t, err)

	require.Equal(t, "basic", doc.ID)
	require.Equal(t, "Sample: a document", doc.Title)
	require.Equal(t, "2025-12-26", doc.DateString())
	require.Equal(t, "A fixture used by the parser tests.", doc.Description)
	require.Equal(t, "Joonas Pessi", doc.Author)
	require.Equal(t, []string{"go", "testing"}, doc.Tags)
	require.Equal(t, true, doc.Extra["draft"])
	require.Equal(t, 3, doc.Extra["weight"])
	require.Contains(t, doc.Body, "# Sample")
	require.NotContains(t, doc.Body, "title:")
}

func TestParseWithoutFrontMatter(t *testing.T) {
	doc, err := Parse("plain", []byte("# Just a body\n"))
	require.NoError(t, err)
	require.Empty(t, doc.Title)
	require.Contains(t, doc.Body, "Just a body")
	require.Error(t, doc.Validate())
}

func TestParseRejectsDuplicateKeys(t *testing.T) {
	src := "---\ntitle: First\nauthor: Someone\ntitle: Second\n---\nbody\n"

	_, err := Parse("dup", []byte(src))
	require.Error(t, err)

	var dup *DuplicateKeyError
	require.True(t, errors.As(err, &dup), "expected DuplicateKeyError, got %v", err)
	require.Equal(t, "title", dup.Key)
	require.Greater(t, dup.Line, dup.FirstLine)
}

func TestParseRejectsNonMapping(t *testing.T) {
	_, err := Parse("list", []byte("---\n- one\n- two\n---\nbody\n"))
	require.ErrorIs(t, err, ErrMalformedFrontMatter)
}

func TestParseFieldErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		key  string
	}{
		{"title not text", "---\ntitle: [a, b]\n---\nbody\n", "title"},
		{"bad date", "---\ntitle: T\ndate: next tuesday\n---\nbody\n", "date"},
		{"tags not list", "---\ntitle: T\ntags: {a: 1}\n---\nbody\n", "tags"},
		{"author number", "---\ntitle: T\nauthor: 42\n---\nbody\n", "author"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("x", []byte(tt.src))
			var fieldErr *FieldError
			require.True(t, errors.As(err, &fieldErr), "expected FieldError, got %v", err)
			require.Equal(t, tt.key, fieldErr.Key)
		})
	}
}

func TestParseRFC3339Date(t *testing.T) {
	doc, err := Parse("x", []byte("---\ntitle: T\ndate: \"2025-12-26T10:30:00+02:00\"\n---\nbody\n"))
	require.NoError(t, err)
	require.Equal(t, "2025-12-26", doc.DateString())
}

func TestParseDateLayouts(t *testing.T) {
	for _, raw := range []string{
		"2025-12-26",
		"2025-12-26T10:00:00Z",
		"2025-12-26T10:00:00",
		"2025-12-26 10:00:00",
		"\"2025-12-26T10:00:00\"",
	} {
		doc, err := Parse("x", []byte("---\ntitle: T\ndate: "+raw+"\n---\nbody\n"))
		require.NoError(t, err, raw)
		require.Equal(t, "2025-12-26", doc.DateString(), raw)
	}

	doc, err := Parse("x", []byte("---\ntitle: T\ndate: 2025-12-26T10:00:00\n---\nbody\n"))
	require.NoError(t, err)
	require.Equal(t, 10, doc.Date.Hour())
}

func TestMarshalKeepsExtraDates(t *testing.T) {
	source := "---\ntitle: T\nupdated: 2025-01-01\nreviewed: 2025-01-01T10:00:00Z\n---\nbody\n"
	doc, err := Parse("x", []byte(source))
	require.NoError(t, err)

	out, err := Marshal(doc)
	require.NoError(t, err)
	require.Contains(t, string(out), "\nupdated: 2025-01-01\n")
	require.Contains(t, string(out), "\nreviewed: 2025-01-01T10:00:00Z\n")

	again, err := Parse("x", out)
	require.NoError(t, err)
	require.Equal(t, doc.Metadata(), again.Metadata())
}

func TestMarshalOrder(t *testing.T) {
	doc, err := Parse("basic", readFixture(t, "testdata/basic.md"))
	require.NoError(t, err)

	out, err := Marshal(doc)
	require.NoError(t, err)

	text := string(out)
	require.True(t, strings.HasPrefix(text, "---\ntitle: "))
	order := []string{"title:", "date: 2025-12-26", "description:", "author:", "tags:", "draft:", "weight:"}
	last := -1
	for _, key := range order {
		idx := strings.Index(text, key)
		require.Greater(t, idx, last, "key %q out of order in\n%s", key, text)
		last = idx
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	doc, err := Parse("basic", readFixture(t, "testdata/basic.md"))
	require.NoError(t, err)

	out, err := Marshal(doc)
	require.NoError(t, err)
	again, err := Parse("basic", out)
	require.NoError(t, err)

	require.Equal(t, doc.Metadata(), again.Metadata())
	require.Equal(t, strings.TrimSpace(doc.Body), strings.TrimSpace(again.Body))
}

func TestMarshalQuotesAmbiguousValues(t *testing.T) {
	doc := Document{ID: "x", Title: "true", Description: "2024-01-01", Author: "a: b", Body: "body\n"}

	out, err := Marshal(doc)
	require.NoError(t, err)
	again, err := Parse("x", out)
	require.NoError(t, err)
	require.Equal(t, "true", again.Title)
	require.Equal(t, "2024-01-01", again.Description)
	require.Equal(t, "a: b", again.Author)
}

func TestContentRoundTrip(t *testing.T) {
	names, err := fs.Glob(content.FS, "*.md")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			source, err := fs.ReadFile(content.FS, name)
			require.NoError(t, err)

			doc, err := Parse(strings.TrimSuffix(name, ".md"), source)
			require.NoError(t, err)
			require.NoError(t, doc.Validate())

			out, err := Marshal(doc)
			require.NoError(t, err)
			again, err := Parse(doc.ID, out)
			require.NoError(t, err)
			require.Equal(t, doc.Metadata(), again.Metadata())
		})
	}
}
