// Package pagetext turns browser page HTML into plain text or markdown.
package pagetext

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

var blankLines = regexp.MustCompile(`\n{3,}`)

// LooksLikeHTML reports whether s is plausibly an HTML document or fragment.
func LooksLikeHTML(s string) bool {
	t := strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(t, "<") {
		return false
	}
	return strings.HasPrefix(t, "<!doctype") || strings.HasPrefix(t, "<html") || strings.Contains(t, "</")
}

// Title returns the document <title>, or "".
func Title(rawHTML string) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	return extractTitle(doc)
}

// Text returns the visible text of an HTML document with block elements on their own lines.
func Text(rawHTML string) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	r := &renderer{plain: true}
	r.walk(doc)
	return r.finish(), nil
}

// Markdown renders an HTML document as markdown. Only structural elements
// (headings, paragraphs, lists, links, emphasis, code, quotes, images) are kept.
func Markdown(rawHTML string) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	r := &renderer{}
	r.walk(doc)
	return r.finish(), nil
}

// extractTitle finds the first <title> element text.
func extractTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		var b strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}
		}
		return strings.Join(strings.Fields(b.String()), " ")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := extractTitle(c); t != "" {
			return t
		}
	}
	return ""
}

type renderer struct {
	b       strings.Builder
	plain   bool
	inPre   bool
	listDep int
}

func (r *renderer) finish() string {
	out := r.b.String()
	lines := strings.Split(out, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	out = strings.Join(lines, "\n")
	out = blankLines.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

func (r *renderer) block() {
	s := r.b.String()
	if s == "" || strings.HasSuffix(s, "\n\n") {
		return
	}
	if strings.HasSuffix(s, "\n") {
		r.b.WriteString("\n")
		return
	}
	r.b.WriteString("\n\n")
}

func (r *renderer) line() {
	s := r.b.String()
	if s != "" && !strings.HasSuffix(s, "\n") {
		r.b.WriteString("\n")
	}
}

func (r *renderer) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.walk(c)
	}
}

func (r *renderer) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		if r.inPre {
			r.b.WriteString(n.Data)
			return
		}
		r.text(n.Data)
		return
	case html.ElementNode:
	default:
		r.children(n)
		return
	}

	tag := strings.ToLower(n.Data)
	switch tag {
	case "script", "style", "noscript", "template", "svg", "head", "iframe", "object", "embed":
		return
	case "h1", "h2", "h3", "h4", "h5", "h6":
		r.block()
		if !r.plain {
			r.b.WriteString(strings.Repeat("#", int(tag[1]-'0')) + " ")
		}
		r.children(n)
		r.block()
	case "p", "div", "section", "article", "header", "footer", "main", "nav", "aside", "table", "form", "figure":
		r.block()
		r.children(n)
		r.block()
	case "tr":
		r.line()
		r.children(n)
		r.line()
	case "td", "th":
		r.children(n)
		r.b.WriteString(" ")
	case "br":
		r.b.WriteString("\n")
	case "hr":
		r.block()
		if !r.plain {
			r.b.WriteString("---")
		}
		r.block()
	case "ul", "ol":
		r.line()
		r.listDep++
		r.children(n)
		r.listDep--
		r.line()
	case "li":
		r.line()
		if !r.plain {
			r.b.WriteString(strings.Repeat("  ", max(r.listDep-1, 0)) + "- ")
		}
		r.children(n)
		r.line()
	case "pre":
		r.block()
		if !r.plain {
			r.b.WriteString("```\n")
		}
		r.inPre = true
		r.children(n)
		r.inPre = false
		if !r.plain {
			r.line()
			r.b.WriteString("```")
		}
		r.block()
	case "code":
		if r.plain || r.inPre {
			r.children(n)
			return
		}
		r.b.WriteString("`")
		r.children(n)
		r.b.WriteString("`")
	case "strong", "b":
		r.wrap(n, "**")
	case "em", "i":
		r.wrap(n, "_")
	case "blockquote":
		r.block()
		if r.plain {
			r.children(n)
		} else {
			inner := &renderer{listDep: r.listDep}
			inner.children(n)
			for _, l := range strings.Split(inner.finish(), "\n") {
				r.b.WriteString("> " + l + "\n")
			}
		}
		r.block()
	case "a":
		href := attr(n, "href")
		if r.plain || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			r.children(n)
			return
		}
		inner := &renderer{plain: false}
		inner.children(n)
		text := strings.TrimSpace(inner.finish())
		if text == "" {
			text = href
		}
		r.b.WriteString("[" + text + "](" + href + ")")
	case "img":
		if r.plain {
			return
		}
		if src := attr(n, "src"); src != "" && !strings.HasPrefix(src, "data:") {
			r.b.WriteString("![" + attr(n, "alt") + "](" + src + ")")
		}
	default:
		r.children(n)
	}
}

// text writes collapsed whitespace, keeping a single separating space at
// either edge when the source had one.
func (r *renderer) text(data string) {
	words := strings.Join(strings.Fields(data), " ")
	if words == "" || unicode.IsSpace(rune(data[0])) {
		r.space()
	}
	if words == "" {
		return
	}
	r.b.WriteString(words)
	if unicode.IsSpace(rune(data[len(data)-1])) {
		r.space()
	}
}

func (r *renderer) space() {
	s := r.b.String()
	if s == "" {
		return
	}
	if last := s[len(s)-1]; last == ' ' || last == '\n' {
		return
	}
	r.b.WriteString(" ")
}

func (r *renderer) wrap(n *html.Node, marker string) {
	if r.plain {
		r.children(n)
		return
	}
	inner := &renderer{}
	inner.children(n)
	text := inner.finish()
	if text == "" {
		return
	}
	r.b.WriteString(marker + text + marker)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}
