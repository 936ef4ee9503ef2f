package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/hpungsan/glimpse/internal/config"
	"github.com/hpungsan/glimpse/internal/record"
)

func sampleRecord() *record.CapturedData {
	shot := record.FileURI("/tmp/captures/screenshot-2024-01-01T00-00-00.000Z.png")
	return &record.CapturedData{
		SchemaVersion:     record.SchemaVersion,
		ID:                "01HQXYZ",
		Type:              record.TypeScreenshot,
		Timestamp:         "2024-01-01T00:00:00.000Z",
		SelectedText:      record.StringPtr("a <b>bold</b> claim"),
		ScreenshotPath:    &shot,
		ActiveViewContent: record.StringPtr("# Heading\n\nBody with <script>alert(1)</script> text."),
		Context: record.Context{
			App:   record.StringPtr("Arc"),
			URL:   record.StringPtr("https://example.com/a?b=1"),
			Title: record.StringPtr("Example Page"),
		},
		Comment: record.StringPtr("worth a look"),
		Tags:    []string{"research"},
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, sampleRecord(), "/tmp/captures/x.json", config.FormatMarkdown, time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"<title>Example Page</title>",
		"2024-01-01 00:00:00",
		"worth a look",
		`<span class="tag">research</span>`,
		`src="file:///tmp/captures/screenshot-2024-01-01T00-00-00.000Z.png"`,
		`href="https://example.com/a?b=1"`,
		"a &lt;b&gt;bold&lt;/b&gt; claim",
		"<h1>Heading</h1>",
		"Generated 2024-02-01 10:00 UTC",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "<script>alert(1)</script>") {
		t.Error("raw HTML from page content must not be rendered")
	}
}

func TestRender_Minimal(t *testing.T) {
	rec := &record.CapturedData{ID: "abc", Type: record.TypeClipboard, Timestamp: "2024-01-01T00:00:00.000Z"}
	var buf bytes.Buffer
	if err := Render(&buf, rec, "/x.json", config.FormatMarkdown, time.Now()); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "<title>Capture abc</title>") {
		t.Error("expected fallback title")
	}
	if strings.Contains(out, `class="shot"`) || strings.Contains(out, "Page content") {
		t.Error("empty sections should be omitted")
	}
}

func TestRenderContent_HTMLIsReduced(t *testing.T) {
	got := string(renderContent(`<html><body><h2>Hi</h2><iframe src="x"></iframe></body></html>`, config.FormatHTML))
	if !strings.Contains(got, "<h2>Hi</h2>") {
		t.Errorf("expected heading, got %q", got)
	}
	if strings.Contains(got, "iframe") {
		t.Errorf("iframe should be dropped, got %q", got)
	}

	got = string(renderContent("1 < 2", config.FormatText))
	if got != "<pre>1 &lt; 2</pre>" {
		t.Errorf("text content = %q", got)
	}
}
