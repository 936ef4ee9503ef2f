package ops

import (
	"context"
	"strings"
	"testing"

	"github.com/hpungsan/glimpse/internal/errors"
	"github.com/hpungsan/glimpse/internal/provider"
	"github.com/hpungsan/glimpse/internal/record"
)

func TestExprValidator(t *testing.T) {
	shot := record.FileURI("/tmp/a.png")
	withText := &Payload{SelectedText: record.StringPtr("hello world")}
	withShot := &Payload{ScreenshotPath: &shot}
	empty := &Payload{}

	tests := []struct {
		name    string
		rule    string
		payload *Payload
		wantErr string
	}{
		{"true passes", "hasText", withText, ""},
		{"false is generic", "hasText", empty, "validation failed"},
		{"string is the message", `hasText ? true : "Nothing copied"`, empty, "Nothing copied"},
		{"blank string is generic", `hasText ? true : "  "`, empty, "validation failed"},
		{"screenshot flag", "hasScreenshot", withShot, ""},
		{"content check", `selectedText contains "world"`, withText, ""},
		{"non-bool result", "len(selectedText)", withText, "validation failed"},
		{"either field", "hasText || hasScreenshot", withShot, ""},
		{"string comparison as condition", `selectedText != "" ? true : "No text in clipboard"`, empty, "No text in clipboard"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ExprValidator(tt.rule)
			if err != nil {
				t.Fatalf("ExprValidator(%q) failed: %v", tt.rule, err)
			}
			err = v(tt.payload)
			switch {
			case tt.wantErr == "" && err != nil:
				t.Errorf("unexpected error: %v", err)
			case tt.wantErr != "" && (err == nil || err.Error() != tt.wantErr):
				t.Errorf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestExprValidator_CompileErrors(t *testing.T) {
	for _, rule := range []string{"hasText &&", "unknownField", "("} {
		if _, err := ExprValidator(rule); err == nil {
			t.Errorf("ExprValidator(%q) should fail to compile", rule)
		}
	}
}

func TestExprValidator_StringConditionExplained(t *testing.T) {
	_, err := ExprValidator(`selectedText ? true : "No text in clipboard"`)
	if err == nil {
		t.Fatal("a string condition should not compile")
	}
	if !strings.Contains(err.Error(), "hasText") {
		t.Errorf("error should point at hasText, got %q", err.Error())
	}

	d := testDeps(t, &provider.Set{Clipboard: fakeClipboard{text: "x"}})
	d.Config.Validation = map[string]string{"clipboard": `selectedText ? true : "No text in clipboard"`}
	_, err = Capture(context.Background(), d, CaptureInput{Type: record.TypeClipboard})
	if !errors.Is(err, errors.ErrInvalidRequest) || !strings.Contains(err.Error(), "hasText") {
		t.Errorf("expected INVALID_REQUEST mentioning hasText, got %v", err)
	}
}
