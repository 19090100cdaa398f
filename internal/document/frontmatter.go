package document

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

const (
	keyTitle       = "title"
	keyDate        = "date"
	keyDescription = "description"
	keyAuthor      = "author"
	keyTags        = "tags"
)

var knownKeys = []string{keyTitle, keyDate, keyDescription, keyAuthor, keyTags}

// ErrMalformedFrontMatter is returned when the front-matter block is not a
// YAML mapping.
var ErrMalformedFrontMatter = errors.New("front-matter is not a key/value mapping")

// DuplicateKeyError reports a key defined twice in one front-matter block.
type DuplicateKeyError struct {
	Key       string
	FirstLine int
	Line      int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate front-matter key %q on line %d (first defined on line %d)", e.Key, e.Line, e.FirstLine)
}

// FieldError reports a known front-matter key holding a value of the wrong shape.
type FieldError struct {
	Key    string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("front-matter field %q: %s", e.Key, e.Reason)
}

var yamlFormat = frontmatter.NewFormat("---", "---", unmarshalMapping)

// unmarshalMapping decodes a front-matter block, rejecting anything that is
// not a single mapping with unique keys.
func unmarshalMapping(data []byte, v any) error {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return err
	}
	if root.Kind == 0 {
		return nil
	}
	node := &root
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return ErrMalformedFrontMatter
	}

	seen := make(map[string]int, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if first, ok := seen[key.Value]; ok {
			return &DuplicateKeyError{Key: key.Value, FirstLine: first, Line: key.Line}
		}
		seen[key.Value] = key.Line
	}
	return node.Decode(v)
}

// Parse splits source into front-matter and body and maps the known keys
// onto a Document. It does not validate; call Validate for the invariants.
func Parse(id string, source []byte) (Document, error) {
	var raw map[string]any
	body, err := frontmatter.Parse(bytes.NewReader(source), &raw, yamlFormat)
	if err != nil {
		return Document{}, fmt.Errorf("parse front-matter: %w", err)
	}

	doc := Document{ID: id, Body: string(body)}
	for key, value := range raw {
		switch key {
		case keyTitle:
			doc.Title, err = stringField(key, value)
		case keyDescription:
			doc.Description, err = stringField(key, value)
		case keyAuthor:
			doc.Author, err = stringField(key, value)
		case keyDate:
			doc.Date, err = dateField(value)
		case keyTags:
			doc.Tags, err = tagsField(value)
		default:
			if doc.Extra == nil {
				doc.Extra = map[string]any{}
			}
			doc.Extra[key] = value
		}
		if err != nil {
			return Document{}, err
		}
	}
	return doc, nil
}

func stringField(key string, value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", &FieldError{Key: key, Reason: fmt.Sprintf("expected text, got %T", value)}
	}
}

// dateLayouts are tried in order for dates yaml.v3 leaves as strings. A
// timestamp without a zone is read as UTC.
var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func dateField(value any) (time.Time, error) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v.UTC(), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, &FieldError{Key: keyDate, Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", s)}
	default:
		return time.Time{}, &FieldError{Key: keyDate, Reason: fmt.Sprintf("expected a date, got %T", value)}
	}
}

func tagsField(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []any:
		tags := make([]string, 0, len(v))
		for _, item := range v {
			tag, ok := item.(string)
			if !ok {
				return nil, &FieldError{Key: keyTags, Reason: fmt.Sprintf("expected text items, got %T", item)}
			}
			tags = append(tags, tag)
		}
		return tags, nil
	default:
		return nil, &FieldError{Key: keyTags, Reason: fmt.Sprintf("expected a list, got %T", value)}
	}
}

// Marshal renders the document back into front-matter plus body. Keys are
// written in a fixed order so output is stable across runs.
func Marshal(doc Document) ([]byte, error) {
	mapping := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, value *yaml.Node) {
		mapping.Content = append(mapping.Content, strNode(key), value)
	}

	if doc.Title != "" {
		add(keyTitle, strNode(doc.Title))
	}
	if doc.HasDate() {
		add(keyDate, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!timestamp", Value: doc.DateString()})
	}
	if doc.Description != "" {
		add(keyDescription, strNode(doc.Description))
	}
	if doc.Author != "" {
		add(keyAuthor, strNode(doc.Author))
	}
	if len(doc.Tags) > 0 {
		seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, tag := range doc.Tags {
			seq.Content = append(seq.Content, strNode(tag))
		}
		add(keyTags, seq)
	}

	extra := make([]string, 0, len(doc.Extra))
	for key := range doc.Extra {
		if !isKnownKey(key) {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		if t, ok := doc.Extra[key].(time.Time); ok && isCalendarDate(t) {
			add(key, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!timestamp", Value: t.Format(DateLayout)})
			continue
		}
		value := &yaml.Node{}
		if err := value.Encode(doc.Extra[key]); err != nil {
			return nil, fmt.Errorf("encode front-matter %q: %w", key, err)
		}
		add(key, value)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	if len(mapping.Content) > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(mapping); err != nil {
			return nil, fmt.Errorf("encode front-matter: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode front-matter: %w", err)
		}
	}
	buf.WriteString("---\n")
	buf.WriteString(strings.TrimLeft(doc.Body, "\n"))
	return buf.Bytes(), nil
}

// isCalendarDate reports whether t is midnight UTC, the value yaml.v3
// decodes a bare YYYY-MM-DD into.
func isCalendarDate(t time.Time) bool {
	h, m, sec := t.Clock()
	return t.Location() == time.UTC && h == 0 && m == 0 && sec == 0 && t.Nanosecond() == 0
}

func strNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

func isKnownKey(key string) bool {
	for _, k := range knownKeys {
		if k == key {
			return true
		}
	}
	return false
}
