package record

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	maxOutlineHeadings  = 50
	outlineExcerptChars = 280
)

// Heading is one markdown heading found in page content.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Outline is a structural digest of markdown page content.
type Outline struct {
	Headings []Heading `json:"headings,omitempty"`
	Excerpt  string    `json:"excerpt,omitempty"`
}

// BuildOutline parses markdown and returns its headings and the first paragraph.
// Headings inside code blocks are ignored since the parser treats them as code.
func BuildOutline(markdown string) Outline {
	var out Outline
	if strings.TrimSpace(markdown) == "" {
		return out
	}

	src := []byte(markdown)
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			if len(out.Headings) < maxOutlineHeadings {
				if t := inlineText(node, src); t != "" {
					out.Headings = append(out.Headings, Heading{Level: node.Level, Text: t})
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			if out.Excerpt == "" {
				out.Excerpt = Truncate(inlineText(node, src), outlineExcerptChars)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return out
}

// inlineText concatenates the literal text under n.
func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := c.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.AutoLink:
			b.Write(node.Label(src))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}
