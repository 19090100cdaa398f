package store

import (
	"errors"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/joonaspessi/site/content"
	"github.com/joonaspessi/site/internal/document"
)

func file(s string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(s)}
}

func TestLoadOrdersDocuments(t *testing.T) {
	fsys := fstest.MapFS{
		"about.md":      file("---\ntitle: About\n---\nHello\n"),
		"older.md":      file("---\ntitle: Older\ndate: 2024-01-01\n---\nBody\n"),
		"newer.md":      file("---\ntitle: Newer\ndate: 2025-06-01\n---\nBody\n"),
		"same-day-a.md": file("---\ntitle: A\ndate: 2024-01-01\n---\nBody\n"),
		"notes.txt":     file("ignored"),
		"drafts/x.md":   file("---\ntitle: Nested\n---\nignored\n"),
	}

	s, err := Load(fsys)
	require.NoError(t, err)
	require.Equal(t, 4, s.Len())

	var ids []string
	for _, doc := range s.List() {
		ids = append(ids, doc.ID)
	}
	require.Equal(t, []string{"about", "newer", "older", "same-day-a"}, ids)

	var posts []string
	for _, doc := range s.Posts() {
		posts = append(posts, doc.ID)
	}
	require.Equal(t, []string{"newer", "older", "same-day-a"}, posts)
}

func TestLoadJoinsErrors(t *testing.T) {
	fsys := fstest.MapFS{
		"ok.md":       file("---\ntitle: Fine\n---\nBody\n"),
		"no-title.md": file("---\nauthor: Someone\n---\nBody\n"),
		"dup.md":      file("---\ntitle: A\ntitle: B\n---\nBody\n"),
		"empty.md":    file("---\ntitle: Empty\n---\n\n"),
	}

	_, err := Load(fsys)
	require.Error(t, err)

	var dup *document.DuplicateKeyError
	require.True(t, errors.As(err, &dup))
	require.Contains(t, err.Error(), "dup.md")
	require.Contains(t, err.Error(), "no-title")
	require.Contains(t, err.Error(), "empty")
}

func TestGet(t *testing.T) {
	s, err := New(document.Document{ID: "a", Title: "A", Tags: []string{"x"}, Body: "body"})
	require.NoError(t, err)

	doc, err := s.Get("a")
	require.NoError(t, err)
	require.Equal(t, "A", doc.Title)

	doc.Tags[0] = "mutated"
	again, err := s.Get("a")
	require.NoError(t, err)
	require.Equal(t, "x", again.Tags[0])

	_, err = s.Get("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentReaders(t *testing.T) {
	s, err := Load(content.FS)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, doc := range s.List() {
				got, err := s.Get(doc.ID)
				if err != nil {
					t.Error(err)
					return
				}
				got.Tags = append(got.Tags, "local")
			}
			_ = s.Posts()
		}()
	}
	wg.Wait()

	require.Equal(t, 3, s.Len())
	for _, doc := range s.List() {
		require.NotContains(t, doc.Tags, "local")
	}
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New(
		document.Document{ID: "a", Title: "A", Body: "one"},
		document.Document{ID: "a", Title: "B", Body: "two"},
	)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate")
}

func TestEmbeddedContent(t *testing.T) {
	s, err := Load(content.FS)
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())

	resume, err := s.Get(content.Resume)
	require.NoError(t, err)
	require.Equal(t, "Resume", resume.Title)
	require.True(t, resume.HasHeading("Experience"))
	require.False(t, resume.HasDate())

	post, err := s.Get(content.PathfindingPost)
	require.NoError(t, err)
	require.Equal(t, "2025-12-26", post.DateString())
	require.Equal(t, "Joonas Pessi", post.Author)

	errorsPost, err := s.Get(content.ErrorHandlingPost)
	require.NoError(t, err)
	subs := errorsPost.Subsections("Five Patterns for Error Variants")
	require.Len(t, subs, 5)
	require.Equal(t, "1. One enum per module", subs[0].Title)
	require.Equal(t, "5. anyhow at the application edge", subs[4].Title)

	require.Equal(t, content.Resume, s.List()[0].ID)
	require.Len(t, s.Posts(), 2)
	require.Equal(t, content.ErrorHandlingPost, s.Posts()[0].ID)
}
