package document

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// Section is one heading of a document together with the headings nested
// below it.
type Section struct {
	Level    int        `json:"level"`
	Title    string     `json:"title"`
	Anchor   string     `json:"anchor,omitempty"`
	Line     int        `json:"line"`
	Children []*Section `json:"children,omitempty"`
}

// markdown is only used for AST inspection, never for rendering.
var markdown = goldmark.New(
	goldmark.WithParser(parser.NewParser(
		parser.WithBlockParsers(blockParsers()...),
		parser.WithInlineParsers(parser.DefaultInlineParsers()...),
		parser.WithParagraphTransformers(parser.DefaultParagraphTransformers()...),
	)),
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

func parseBody(body []byte, opts ...parser.ParseOption) ast.Node {
	return markdown.Parser().Parse(text.NewReader(body), opts...)
}

// Outline returns the heading tree of the document body. Headings deeper
// than their predecessor nest under it; skipped levels are tolerated.
func Outline(doc Document) []*Section {
	source := []byte(doc.Body)
	root := parseBody(source)
	lines := newLineIndex(source)

	var (
		top   []*Section
		stack []*Section
	)
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		heading, ok := n.(*ast.Heading)
		if !ok || !entering {
			return ast.WalkContinue, nil
		}
		section := &Section{
			Level: heading.Level,
			Title: inlineText(heading, source),
			Line:  lines.blockLine(heading),
		}
		if id, ok := heading.AttributeString("id"); ok {
			if b, ok := id.([]byte); ok {
				section.Anchor = string(b)
			}
		}

		for len(stack) > 0 && stack[len(stack)-1].Level >= section.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			top = append(top, section)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, section)
		}
		stack = append(stack, section)
		return ast.WalkSkipChildren, nil
	})
	return top
}

// Find returns the first section, in document order, whose title matches.
func Find(sections []*Section, title string) *Section {
	for _, s := range sections {
		if strings.EqualFold(s.Title, title) {
			return s
		}
		if found := Find(s.Children, title); found != nil {
			return found
		}
	}
	return nil
}

// HasHeading reports whether the body contains a heading with the given text.
func (d Document) HasHeading(title string) bool {
	return Find(Outline(d), title) != nil
}

// Subsections returns the direct children of the named heading, or nil when
// the heading does not exist.
func (d Document) Subsections(title string) []*Section {
	section := Find(Outline(d), title)
	if section == nil {
		return nil
	}
	return section.Children
}

// inlineText concatenates the literal text below n.
func inlineText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	var collect func(ast.Node)
	collect = func(node ast.Node) {
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				buf.Write(t.Segment.Value(source))
				if t.SoftLineBreak() {
					buf.WriteByte(' ')
				}
			case *ast.String:
				buf.Write(t.Value)
			default:
				collect(c)
			}
		}
	}
	collect(n)
	return strings.TrimSpace(buf.String())
}

// lineIndex maps byte offsets in a body to 1-based line numbers.
type lineIndex []int

func newLineIndex(source []byte) lineIndex {
	idx := lineIndex{0}
	for i, b := range source {
		if b == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

func (l lineIndex) line(offset int) int {
	lo, hi := 0, len(l)
	for lo < hi {
		mid := (lo + hi) / 2
		if l[mid] <= offset {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

func (l lineIndex) blockLine(n ast.Node) int {
	if lines := n.Lines(); lines != nil && lines.Len() > 0 {
		return l.line(lines.At(0).Start)
	}
	return 0
}
