package document

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"golang.org/x/net/html"
)

// Severity grades a lint issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Lint rule names.
const (
	RuleTitleMissing  = "title-missing"
	RuleBodyEmpty     = "body-empty"
	RuleFenceUnclosed = "fence-unclosed"
	RuleFenceLanguage = "fence-language"
	RuleLinkInvalid   = "link-invalid"
)

// Issue is a single well-formedness problem. Line is relative to the body
// and is zero when the issue concerns the whole document.
type Issue struct {
	Severity Severity `json:"severity"`
	Rule     string   `json:"rule"`
	Line     int      `json:"line,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%d: %s %s: %s", i.Line, i.Severity, i.Rule, i.Message)
}

// Issues is the result of linting one document.
type Issues []Issue

// Err joins the error-severity issues, or returns nil when there are none.
func (is Issues) Err() error {
	var errs []error
	for _, issue := range is {
		if issue.Severity == SeverityError {
			errs = append(errs, errors.New(issue.String()))
		}
	}
	return errors.Join(errs...)
}

// Lint checks a parsed document for the properties every published
// document must satisfy.
func Lint(doc Document) Issues {
	var issues Issues

	if err := doc.Validate(); err != nil {
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			if e := verrs[keyTitle]; e != nil {
				issues = append(issues, Issue{Severity: SeverityError, Rule: RuleTitleMissing, Message: e.Error()})
			}
			if e := verrs["body"]; e != nil {
				issues = append(issues, Issue{Severity: SeverityError, Rule: RuleBodyEmpty, Message: e.Error()})
			}
		}
	}

	body := []byte(doc.Body)
	pc := parser.NewContext()
	root := parseBody(body, parser.WithContext(pc))
	lines := newLineIndex(body)
	issues = append(issues, checkFences(body, root, pc, lines)...)
	issues = append(issues, checkLinks(body, root, pc, lines)...)
	return issues
}

// fenceMark records where a fenced code block opened and whether its
// closing delimiter was seen. goldmark ends an unterminated fence silently
// when its container ends, so the AST alone cannot tell the two apart.
type fenceMark struct {
	start  int
	delim  string
	closed bool
}

var fenceMarksKey = parser.NewContextKey()

func fenceMarks(pc parser.Context) map[ast.Node]*fenceMark {
	if marks, ok := pc.Get(fenceMarksKey).(map[ast.Node]*fenceMark); ok {
		return marks
	}
	marks := map[ast.Node]*fenceMark{}
	pc.Set(fenceMarksKey, marks)
	return marks
}

// fenceTracker wraps goldmark's fenced code block parser and marks each
// block it opens and closes in the parser context.
type fenceTracker struct {
	parser.BlockParser
}

func (f fenceTracker) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, segment := reader.PeekLine()
	node, state := f.BlockParser.Open(parent, reader, pc)
	if node != nil {
		fenceMarks(pc)[node] = &fenceMark{start: segment.Start, delim: fenceDelimiter(line)}
	}
	return node, state
}

func (f fenceTracker) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	state := f.BlockParser.Continue(node, reader, pc)
	if state&parser.Close != 0 {
		if mark := fenceMarks(pc)[node]; mark != nil {
			mark.closed = true
		}
	}
	return state
}

// blockParsers is goldmark's default block parser set with the fenced code
// parser replaced by a fenceTracker.
func blockParsers() []util.PrioritizedValue {
	parsers := parser.DefaultBlockParsers()
	for i, v := range parsers {
		if bp, ok := v.Value.(parser.BlockParser); ok && bytes.IndexByte(bp.Trigger(), '`') >= 0 {
			parsers[i].Value = fenceTracker{BlockParser: bp}
		}
	}
	return parsers
}

func fenceDelimiter(line []byte) string {
	trimmed := bytes.TrimLeft(line, " \t")
	if len(trimmed) == 0 {
		return ""
	}
	n := 0
	for n < len(trimmed) && trimmed[n] == trimmed[0] {
		n++
	}
	return string(trimmed[:n])
}

func checkFences(body []byte, root ast.Node, pc parser.Context, lines lineIndex) Issues {
	var issues Issues
	marks := fenceMarks(pc)
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok || !entering {
			return ast.WalkContinue, nil
		}
		mark := marks[block]
		if mark == nil {
			return ast.WalkSkipChildren, nil
		}
		line := lines.line(mark.start)
		if len(block.Language(body)) == 0 {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Rule:     RuleFenceLanguage,
				Line:     line,
				Message:  "code block has no language hint",
			})
		}
		if !mark.closed {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Rule:     RuleFenceUnclosed,
				Line:     line,
				Message:  fmt.Sprintf("code block opened with %s is never closed", mark.delim),
			})
		}
		return ast.WalkSkipChildren, nil
	})
	return issues
}

func checkLinks(body []byte, root ast.Node, pc parser.Context, lines lineIndex) Issues {
	var issues Issues
	reported := map[string]bool{}
	check := func(dest string, line int) {
		if err := ValidateURL(dest); err != nil {
			reported[dest] = true
			issues = append(issues, Issue{
				Severity: SeverityError,
				Rule:     RuleLinkInvalid,
				Line:     line,
				Message:  err.Error(),
			})
		}
	}

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Link:
			check(string(v.Destination), enclosingLine(n, lines))
		case *ast.Image:
			check(string(v.Destination), enclosingLine(n, lines))
		case *ast.AutoLink:
			dest := string(v.URL(body))
			if v.AutoLinkType == ast.AutoLinkEmail && !strings.HasPrefix(dest, "mailto:") {
				dest = "mailto:" + dest
			}
			check(dest, enclosingLine(n, lines))
		case *ast.RawHTML:
			var fragment []byte
			for i := 0; i < v.Segments.Len(); i++ {
				seg := v.Segments.At(i)
				fragment = append(fragment, seg.Value(body)...)
			}
			for _, dest := range htmlLinks(fragment) {
				check(dest, enclosingLine(n, lines))
			}
		case *ast.HTMLBlock:
			var fragment []byte
			for i := 0; i < v.Lines().Len(); i++ {
				seg := v.Lines().At(i)
				fragment = append(fragment, seg.Value(body)...)
			}
			if v.HasClosure() {
				fragment = append(fragment, v.ClosureLine.Value(body)...)
			}
			for _, dest := range htmlLinks(fragment) {
				check(dest, lines.blockLine(v))
			}
		}
		return ast.WalkContinue, nil
	})

	// Definitions nothing refers to never become Link nodes.
	refs := pc.References()
	sort.Slice(refs, func(i, j int) bool { return string(refs[i].Label()) < string(refs[j].Label()) })
	for _, ref := range refs {
		dest := string(ref.Destination())
		if reported[dest] {
			continue
		}
		check(dest, referenceLine(body, ref.Label()))
	}
	return issues
}

// htmlLinks returns the href and src attribute values of the tags in a raw
// HTML fragment.
func htmlLinks(fragment []byte) []string {
	var dests []string
	z := html.NewTokenizer(bytes.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return dests
		case html.StartTagToken, html.SelfClosingTagToken:
			for _, attr := range z.Token().Attr {
				if attr.Key == "href" || attr.Key == "src" {
					dests = append(dests, attr.Val)
				}
			}
		}
	}
}

// referenceLine finds the line defining label. goldmark keeps no position
// for link reference definitions.
func referenceLine(body, label []byte) int {
	needle := bytes.ToLower([]byte("[" + string(label) + "]:"))
	for i, line := range bytes.Split(body, []byte("\n")) {
		if bytes.Contains(bytes.ToLower(line), needle) {
			return i + 1
		}
	}
	return 0
}

func enclosingLine(n ast.Node, lines lineIndex) int {
	for p := n; p != nil; p = p.Parent() {
		if p.Type() == ast.TypeBlock {
			return lines.blockLine(p)
		}
	}
	return 0
}

// ValidateURL reports whether raw is a syntactically valid link target.
// Relative references and fragments are accepted; absolute web links need a
// host and mailto links need an address.
func ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("link has an empty destination")
	}
	if strings.IndexFunc(raw, unicode.IsSpace) >= 0 {
		return fmt.Errorf("link %q contains whitespace", raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("link %q: %w", raw, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "":
	case "http", "https":
		if u.Host == "" {
			return fmt.Errorf("link %q has no host", raw)
		}
	case "mailto":
		if u.Opaque == "" || !strings.Contains(u.Opaque, "@") {
			return fmt.Errorf("link %q has no e-mail address", raw)
		}
	}
	return nil
}
