// Package store holds the site's documents in memory for read-only lookup.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/joonaspessi/site/internal/document"
)

var (
	ErrNotFound = errors.New("document not found")
)

// Store is a set of documents keyed by identity. Nothing is written after
// New returns, so readers need no locking and a Store is safe for concurrent
// use.
type Store struct {
	docs  map[string]document.Document
	order []string
}

// New builds a store from already parsed documents. Documents are
// validated and identities must be unique.
func New(docs ...document.Document) (*Store, error) {
	s := &Store{docs: make(map[string]document.Document, len(docs))}
	var errs []error
	for _, doc := range docs {
		if err := s.add(doc); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	s.sort()
	return s, nil
}

// Load parses every top-level *.md file in fsys. All failures are reported
// together so a broken content set can be fixed in one pass.
func Load(fsys fs.FS) (*Store, error) {
	names, err := fs.Glob(fsys, "*.md")
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	docs := make([]document.Document, 0, len(names))
	var errs []error
	for _, name := range names {
		source, err := fs.ReadFile(fsys, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		doc, err := document.Parse(strings.TrimSuffix(path.Base(name), ".md"), source)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		docs = append(docs, doc)
	}

	s, err := New(docs...)
	if err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) add(doc document.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document %q: missing identity", doc.Title)
	}
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("%s: %w", doc.ID, err)
	}
	if _, exists := s.docs[doc.ID]; exists {
		return fmt.Errorf("%s: duplicate document identity", doc.ID)
	}
	s.docs[doc.ID] = doc.Clone()
	s.order = append(s.order, doc.ID)
	return nil
}

// sort orders undated documents first, then dated ones newest first.
func (s *Store) sort() {
	sort.SliceStable(s.order, func(i, j int) bool {
		a, b := s.docs[s.order[i]], s.docs[s.order[j]]
		if a.HasDate() != b.HasDate() {
			return !a.HasDate()
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.ID < b.ID
	})
}

// Get returns a copy of the document with the given identity.
func (s *Store) Get(id string) (document.Document, error) {
	doc, ok := s.docs[id]
	if !ok {
		return document.Document{}, fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	return doc.Clone(), nil
}

// List returns copies of all documents in display order.
func (s *Store) List() []document.Document {
	out := make([]document.Document, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.docs[id].Clone())
	}
	return out
}

// Posts returns the dated documents, newest first.
func (s *Store) Posts() []document.Document {
	var posts []document.Document
	for _, doc := range s.List() {
		if doc.HasDate() {
			posts = append(posts, doc)
		}
	}
	return posts
}

// Len reports how many documents the store holds.
func (s *Store) Len() int {
	return len(s.order)
}
