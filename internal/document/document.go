// Package document models the authored content of the site: a resume and
// blog posts written as Markdown with a YAML front-matter block.
package document

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DateLayout is the calendar-date form used for the date front-matter key.
const DateLayout = "2006-01-02"

// Document is one self-contained unit of authored content.
type Document struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Date        time.Time      `json:"date,omitzero"`
	Description string         `json:"description,omitempty"`
	Author      string         `json:"author,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
	Body        string         `json:"body"`
}

// HasDate reports whether the document carries a date.
func (d Document) HasDate() bool {
	return !d.Date.IsZero()
}

// DateString returns the date as YYYY-MM-DD, or "" when absent.
func (d Document) DateString() string {
	if !d.HasDate() {
		return ""
	}
	return d.Date.Format(DateLayout)
}

// Metadata returns the front-matter mapping of the fields that are present.
func (d Document) Metadata() map[string]any {
	meta := make(map[string]any, len(d.Extra)+5)
	for key, value := range d.Extra {
		meta[key] = value
	}
	if d.Title != "" {
		meta[keyTitle] = d.Title
	}
	if d.HasDate() {
		meta[keyDate] = d.DateString()
	}
	if d.Description != "" {
		meta[keyDescription] = d.Description
	}
	if d.Author != "" {
		meta[keyAuthor] = d.Author
	}
	if len(d.Tags) > 0 {
		meta[keyTags] = append([]string(nil), d.Tags...)
	}
	return meta
}

// Clone returns a deep copy so callers cannot mutate shared state.
func (d Document) Clone() Document {
	out := d
	out.Tags = append([]string(nil), d.Tags...)
	if len(d.Tags) == 0 {
		out.Tags = nil
	}
	if d.Extra != nil {
		out.Extra = make(map[string]any, len(d.Extra))
		for key, value := range d.Extra {
			out.Extra[key] = value
		}
	}
	return out
}

// Validate checks the document invariants: a non-blank title and body.
func (d Document) Validate() error {
	return validation.Errors{
		keyTitle: validation.Validate(strings.TrimSpace(d.Title), validation.Required.Error("title is required")),
		"body":   validation.Validate(strings.TrimSpace(d.Body), validation.Required.Error("body must not be empty")),
	}.Filter()
}
