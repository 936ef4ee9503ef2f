// Package report renders a capture as a standalone HTML page.
package report

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/hpungsan/glimpse/internal/config"
	"github.com/hpungsan/glimpse/internal/pagetext"
	"github.com/hpungsan/glimpse/internal/record"
)

//go:embed templates/*.html
var templateFS embed.FS

var page = template.Must(template.New("report.html").Funcs(template.FuncMap{
	"formatTime": formatTime,
	"deref":      deref,
	"hasValue":   hasValue,
	"indent":     func(level int) int { return max(level-1, 0) },
}).ParseFS(templateFS, "templates/report.html"))

// Data is the template data for one capture.
type Data struct {
	Title      string
	Capture    *record.CapturedData
	Path       string
	URL        string
	Screenshot template.URL
	Outline    *record.Outline
	Content    template.HTML
	Generated  string
}

// Render writes the HTML page for rec, loaded from path.
// format is the content format activeViewContent was captured in.
func Render(w io.Writer, rec *record.CapturedData, path, format string, now time.Time) error {
	data := Data{
		Title:     title(rec),
		Capture:   rec,
		Path:      path,
		URL:       record.Deref(rec.URL),
		Generated: now.UTC().Format("2006-01-02 15:04 UTC"),
	}
	if rec.ScreenshotPath != nil {
		data.Screenshot = template.URL(record.FileURI(rec.ScreenshotFile()))
	}
	if c := record.Deref(rec.ActiveViewContent); c != "" {
		data.Content = renderContent(c, format)
		if format == config.FormatMarkdown {
			o := record.BuildOutline(c)
			data.Outline = &o
		}
	}
	return page.Execute(w, data)
}

func title(rec *record.CapturedData) string {
	for _, s := range []*string{rec.Title, rec.Window, rec.App} {
		if v := strings.TrimSpace(record.Deref(s)); v != "" {
			return v
		}
	}
	return "Capture " + rec.ID
}

// renderContent renders markdown through goldmark. HTML is reduced to
// markdown first rather than embedded; plain text is escaped.
func renderContent(content, format string) template.HTML {
	switch {
	case format == config.FormatText:
		return template.HTML("<pre>" + template.HTMLEscapeString(content) + "</pre>")
	case format == config.FormatHTML || pagetext.LooksLikeHTML(content):
		md, err := pagetext.Markdown(content)
		if err != nil {
			return template.HTML("<pre>" + template.HTMLEscapeString(content) + "</pre>")
		}
		return renderMarkdown(md)
	default:
		return renderMarkdown(content)
	}
}

// renderMarkdown converts markdown text to HTML using goldmark.
// Raw HTML in the source is omitted (goldmark's default).
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(md) + "</pre>")
	}
	return template.HTML(buf.String())
}

// formatTime formats a record timestamp as "2006-01-02 15:04:05" UTC.
func formatTime(ts string) string {
	t, err := record.ParseTimestamp(ts)
	if err != nil {
		return ts
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

// deref dereferences a pointer, returning the zero value if nil.
func deref(v any) any {
	if v == nil {
		return ""
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Zero(rv.Type().Elem()).Interface()
		}
		return rv.Elem().Interface()
	}
	return v
}

// hasValue checks if a pointer value is non-nil.
func hasValue(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		return !rv.IsNil()
	}
	return true
}
