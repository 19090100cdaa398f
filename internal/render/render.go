// Package render turns document bodies into HTML.
package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/joonaspessi/site/internal/document"
)

// Options tune the goldmark engine.
type Options struct {
	// Unsafe lets raw HTML in the Markdown through to the output.
	Unsafe    bool
	HardWraps bool
}

// Renderer converts Markdown to HTML. A Renderer is stateless after
// construction and can be shared between goroutines.
type Renderer struct {
	md goldmark.Markdown
}

// New builds a renderer with GitHub-flavoured Markdown and heading IDs.
func New(opts Options) *Renderer {
	var rendererOptions []renderer.Option
	if opts.Unsafe {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	}
	if opts.HardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}

	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(rendererOptions...),
		),
	}
}

// Markdown renders raw Markdown source.
func (r *Renderer) Markdown(source []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(source, &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	return buf.Bytes(), nil
}

// Document renders the body of doc.
func (r *Renderer) Document(doc document.Document) ([]byte, error) {
	out, err := r.Markdown([]byte(doc.Body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", doc.ID, err)
	}
	return out, nil
}
