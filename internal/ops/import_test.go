package ops

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/glimpse/internal/errors"
	"github.com/hpungsan/glimpse/internal/record"
	"github.com/hpungsan/glimpse/internal/store"
)

func TestImport_RoundTrip(t *testing.T) {
	src := testDeps(t, nil)
	seed(t, src, record.TypeClipboard, "one", "a")
	seed(t, src, record.TypeSelection, "two")

	exported, err := Export(context.Background(), src, ExportInput{})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	dst := testDeps(t, nil)
	dst.Config.AllowedPaths = []string{ExportsDir(src.Home)}
	out, err := Import(dst, ImportInput{Path: exported.Path})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Imported != 2 || out.Skipped != 0 || len(out.Errors) != 0 {
		t.Fatalf("output = %+v", out)
	}

	want, _ := store.Load(src.Config.CaptureDir)
	got, _ := store.Load(dst.Config.CaptureDir)
	if len(got) != len(want) {
		t.Fatalf("imported %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Record.ID != want[i].Record.ID || filepath.Base(got[i].Path) != filepath.Base(want[i].Path) {
			t.Errorf("record %d: got %s %s, want %s %s", i, got[i].Record.ID, got[i].Path, want[i].Record.ID, want[i].Path)
		}
	}

	// Importing again collides on every id.
	out, err = Import(dst, ImportInput{Path: exported.Path, Mode: ImportModeSkip})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Imported != 0 || out.Skipped != 2 {
		t.Errorf("second import = %+v", out)
	}
	for _, e := range out.Errors {
		if e.Code != "ID_COLLISION" {
			t.Errorf("code = %s, want ID_COLLISION", e.Code)
		}
	}
}

func importFile(t *testing.T, d *Deps, lines ...string) string {
	t.Helper()
	return writeFile(t, ExportsDir(d.Home), "in.jsonl", strings.Join(lines, "\n")+"\n")
}

const (
	goodLine   = `{"id":"01GOOD","type":"clipboard","timestamp":"2024-01-01T00:00:00.000Z","selectedText":"ok"}`
	badJSON    = `{"id":`
	noType     = `{"id":"01NOTYPE","timestamp":"2024-01-01T00:00:01.000Z"}`
	sneakyType = `{"id":"01SNEAK","type":"../../evil","timestamp":"2024-01-01T00:00:02.000Z"}`
)

func TestImport_ModeErrorImportsNothing(t *testing.T) {
	d := testDeps(t, nil)
	path := importFile(t, d, `{"_glimpse_export":true,"schema_version":2}`, goodLine, badJSON, noType, sneakyType)

	out, err := Import(d, ImportInput{Path: path})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Imported != 0 || len(out.Errors) != 3 {
		t.Fatalf("output = %+v", out)
	}
	codes := []string{out.Errors[0].Code, out.Errors[1].Code, out.Errors[2].Code}
	if codes[0] != "PARSE_ERROR" || codes[1] != "INVALID_RECORD" || codes[2] != "INVALID_RECORD" {
		t.Errorf("codes = %v", codes)
	}
	if out.Errors[0].Line != 3 {
		t.Errorf("line = %d, want 3", out.Errors[0].Line)
	}
	if entries, _ := store.Load(d.Config.CaptureDir); len(entries) != 0 {
		t.Errorf("imported %d records in error mode", len(entries))
	}
}

func TestImport_ModeSkip(t *testing.T) {
	d := testDeps(t, nil)
	path := importFile(t, d, goodLine, badJSON)

	out, err := Import(d, ImportInput{Path: path, Mode: ImportModeSkip})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Imported != 1 || out.Skipped != 1 {
		t.Fatalf("output = %+v", out)
	}
	fetched, err := Fetch(d, FetchInput{Ref: "01GOOD"})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if fetched.SchemaVersion != record.SchemaVersion {
		t.Errorf("SchemaVersion = %d", fetched.SchemaVersion)
	}
}

func TestImport_PathCollision(t *testing.T) {
	d := testDeps(t, nil)
	other := strings.Replace(goodLine, "01GOOD", "01OTHER", 1)
	path := importFile(t, d, goodLine, other)

	out, err := Import(d, ImportInput{Path: path, Mode: ImportModeSkip})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Imported != 1 || len(out.Errors) != 1 || out.Errors[0].Code != "PATH_COLLISION" {
		t.Errorf("output = %+v", out)
	}
}

func TestImport_InvalidInput(t *testing.T) {
	d := testDeps(t, nil)
	if _, err := Import(d, ImportInput{Path: ""}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST, got %v", err)
	}
	if _, err := Import(d, ImportInput{Path: importFile(t, d, goodLine), Mode: "replace"}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST for mode, got %v", err)
	}
	missing := filepath.Join(ExportsDir(d.Home), "missing.jsonl")
	if _, err := Import(d, ImportInput{Path: missing}); !errors.Is(err, errors.ErrFileNotFound) {
		t.Errorf("expected FILE_NOT_FOUND, got %v", err)
	}
}
