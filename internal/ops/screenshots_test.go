package ops

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hpungsan/glimpse/internal/errors"
	"github.com/hpungsan/glimpse/internal/record"
	"github.com/hpungsan/glimpse/internal/store"
)

func TestScreenshots_CreatesSidecars(t *testing.T) {
	d := testDeps(t, nil)
	older := writeExternal(t, d, "Screenshot A.png", []byte("a"))
	newer := writeExternal(t, d, "Recording B.MP4", []byte("b"))
	writeExternal(t, d, "notes.txt", []byte("ignored"))
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	out, err := Screenshots(d, ScreenshotsInput{})
	if err != nil {
		t.Fatalf("Screenshots failed: %v", err)
	}
	if len(out.Items) != 2 || out.Created != 2 {
		t.Fatalf("items = %d created = %d, want 2 and 2", len(out.Items), out.Created)
	}
	if out.Items[0].Image != newer || out.Items[1].Image != older {
		t.Errorf("order = [%s %s], want newest first", out.Items[0].Image, out.Items[1].Image)
	}
	for _, it := range out.Items {
		if it.Type != record.TypeScreenshot || !it.HasScreenshot || it.App != nil {
			t.Errorf("sidecar summary = %+v", it.Summary)
		}
		if _, err := os.Stat(it.Path); err != nil {
			t.Errorf("sidecar not written: %v", err)
		}
	}

	// A second scan finds the sidecars and leaves them alone.
	sidecar := store.SidecarPath(d.Config.ScreenshotsDir, filepath.Base(older))
	before, _ := os.ReadFile(sidecar)
	out, err = Screenshots(d, ScreenshotsInput{Limit: 1})
	if err != nil {
		t.Fatalf("Screenshots failed: %v", err)
	}
	if out.Created != 0 || len(out.Items) != 1 || !out.Pagination.HasMore {
		t.Errorf("second scan = created %d items %d pagination %+v", out.Created, len(out.Items), out.Pagination)
	}
	after, _ := os.ReadFile(sidecar)
	if !bytes.Equal(before, after) {
		t.Error("existing sidecar was rewritten")
	}
}

func TestScreenshots_LegacySidecarFilledInMemory(t *testing.T) {
	d := testDeps(t, nil)
	img := writeExternal(t, d, "old.png", []byte("x"))
	legacy := `{"timestamp":"2023-01-02T03:04:05.000Z","activeAppName":"Preview","pageTitle":"Old"}`
	sidecar := writeFile(t, filepath.Join(d.Config.ScreenshotsDir, store.MetadataDir), "old.png.json", legacy)

	out, err := Screenshots(d, ScreenshotsInput{})
	if err != nil {
		t.Fatalf("Screenshots failed: %v", err)
	}
	if len(out.Items) != 1 {
		t.Fatalf("len(Items) = %d", len(out.Items))
	}
	it := out.Items[0]
	if it.ID == "" || it.Type != record.TypeScreenshot || record.Deref(it.App) != "Preview" {
		t.Errorf("summary = %+v", it.Summary)
	}
	if it.Image != img {
		t.Errorf("Image = %q", it.Image)
	}
	data, _ := os.ReadFile(sidecar)
	if string(data) != legacy {
		t.Error("legacy sidecar must not be rewritten")
	}
}

func TestAnnotate_PromotesAndLeavesSidecar(t *testing.T) {
	d := testDeps(t, nil)
	pixels := []byte("pixels")
	img := writeExternal(t, d, "Shot.png", pixels)
	if _, err := Screenshots(d, ScreenshotsInput{}); err != nil {
		t.Fatalf("Screenshots failed: %v", err)
	}
	sidecarPath := store.SidecarPath(d.Config.ScreenshotsDir, "Shot.png")
	sidecarBefore, err := os.ReadFile(sidecarPath)
	if err != nil {
		t.Fatalf("sidecar not created: %v", err)
	}

	out, err := Annotate(d, AnnotateInput{Image: "Shot.png", Comment: "bug repro", Tags: []string{"bug"}})
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}
	if !out.Promoted || out.Source != img {
		t.Errorf("Promoted = %v Source = %q", out.Promoted, out.Source)
	}

	sidecarAfter, err := os.ReadFile(sidecarPath)
	if err != nil {
		t.Fatalf("sidecar read failed: %v", err)
	}
	if !bytes.Equal(sidecarBefore, sidecarAfter) {
		t.Errorf("sidecar changed:\nbefore %s\nafter  %s", sidecarBefore, sidecarAfter)
	}
	imgAfter, err := os.ReadFile(img)
	if err != nil || !bytes.Equal(imgAfter, pixels) {
		t.Errorf("external image changed: %v", err)
	}

	list, err := List(d, ListInput{Tag: "bug"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].ID != out.ID {
		t.Errorf("promoted capture not listed: %+v", list.Items)
	}
}

func TestAnnotate_PercentInFileName(t *testing.T) {
	d := testDeps(t, nil)
	img := writeExternal(t, d, "CleanShot 100%25 zoom.png", []byte("pixels"))

	out, err := Annotate(d, AnnotateInput{Image: "CleanShot 100%25 zoom.png", Comment: "zoomed"})
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}
	if out.Source != img {
		t.Errorf("Source = %q, want %q", out.Source, img)
	}
	got, err := store.Read(out.Path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if _, err := os.Stat(got.ScreenshotFile()); err != nil {
		t.Errorf("promoted screenshot missing: %v", err)
	}
}

func TestComment_SidecarPathRoutesToAnnotate(t *testing.T) {
	d := testDeps(t, nil)
	writeExternal(t, d, "Shot.png", []byte("pixels"))
	if _, err := Screenshots(d, ScreenshotsInput{}); err != nil {
		t.Fatalf("Screenshots failed: %v", err)
	}

	out, err := Comment(d, CommentInput{
		Ref:     store.SidecarPath(d.Config.ScreenshotsDir, "Shot.png"),
		Comment: "via sidecar",
	})
	if err != nil {
		t.Fatalf("Comment failed: %v", err)
	}
	if !out.Promoted {
		t.Error("expected promotion")
	}
	if filepath.Dir(out.Path) != d.Config.CaptureDir {
		t.Errorf("Path = %q, want capture dir", out.Path)
	}
}

func TestAnnotate_Errors(t *testing.T) {
	d := testDeps(t, nil)
	if _, err := Annotate(d, AnnotateInput{Image: "missing.png", Comment: "x"}); !errors.Is(err, errors.ErrFileNotFound) {
		t.Errorf("expected FILE_NOT_FOUND, got %v", err)
	}
	if _, err := Annotate(d, AnnotateInput{Image: "../escape.png", Comment: "x"}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST, got %v", err)
	}
}
