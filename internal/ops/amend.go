package ops

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/glimpse/internal/errors"
	"github.com/hpungsan/glimpse/internal/record"
	"github.com/hpungsan/glimpse/internal/store"
)

// AmendInput contains parameters for the Amend operation.
type AmendInput struct {
	Record *record.CapturedData // required
	// Path is the file Record was loaded from: a capture file or an image sidecar.
	Path    string
	Comment string
	Tags    []string
}

// AmendOutput contains the result of the Amend operation.
type AmendOutput struct {
	record.Summary
	// Promoted is true when a new capture was created from an external image.
	Promoted bool `json:"promoted"`
	// Source is the external image a promoted capture was copied from.
	Source string `json:"source,omitempty"`
}

// Amend sets the comment (and adds tags) on a record.
//
// Records whose screenshot lies under the screenshots directory are promoted:
// the image is copied into the capture directory and a new capture is saved,
// leaving the image and its sidecar untouched. Any other record is rewritten in place.
func Amend(d *Deps, input AmendInput) (*AmendOutput, error) {
	if input.Record == nil {
		return nil, errors.NewInvalidRequest("record is required")
	}
	comment := strings.TrimSpace(input.Comment)
	tags := record.NormalizeTags(input.Tags)
	if comment == "" && len(tags) == 0 {
		return nil, errors.NewInvalidRequest("comment or tags required")
	}

	if src := input.Record.ScreenshotFile(); underDir(src, d.Config.ScreenshotsDir) {
		return promote(d, input.Record, src, comment, tags)
	}

	if strings.TrimSpace(input.Path) == "" {
		return nil, errors.NewInvalidRequest("path is required for in-place amendment")
	}

	rec := input.Record.Clone()
	if comment != "" {
		rec.Comment = &comment
	}
	rec.Tags = record.MergeTags(rec.Tags, tags)
	rec.SchemaVersion = record.SchemaVersion

	if err := store.Write(input.Path, rec); err != nil {
		return nil, err
	}
	slog.Info("capture amended", "id", rec.ID, "path", input.Path)
	return &AmendOutput{Summary: rec.ToSummary(input.Path)}, nil
}

// promote copies src into the capture directory and saves a new capture for it.
func promote(d *Deps, source *record.CapturedData, src, comment string, tags []string) (*AmendOutput, error) {
	ts := d.now()
	id, err := record.NewID(ts)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	typ, err := record.ParseType(string(source.Type))
	if err != nil {
		slog.Debug("promoting with default type", "type", source.Type, "error", err)
		typ = record.TypeScreenshot
	}

	dst := store.ImagePath(d.Config.CaptureDir, string(typ), ts, filepath.Ext(src))
	if err := store.CopyFile(src, dst); err != nil {
		return nil, err
	}

	rec := source.Clone()
	rec.SchemaVersion = record.SchemaVersion
	rec.ID = id
	rec.Type = typ
	rec.Timestamp = record.FormatTimestamp(ts)
	uri := record.FileURI(dst)
	rec.ScreenshotPath = &uri
	rec.Comment = record.StringPtr(comment)
	rec.Tags = record.MergeTags(rec.Tags, tags)

	path, err := store.Save(d.Config.CaptureDir, rec)
	if err != nil {
		if rmErr := os.Remove(dst); rmErr != nil {
			slog.Warn("failed to remove copied image", "path", dst, "error", rmErr)
		}
		return nil, err
	}

	slog.Info("external screenshot promoted", "id", rec.ID, "source", src, "path", path)
	return &AmendOutput{Summary: rec.ToSummary(path), Promoted: true, Source: src}, nil
}

// CommentInput contains parameters for the Comment operation.
type CommentInput struct {
	// Ref is a capture id, a capture file path, or an image sidecar path.
	Ref     string
	Comment string
	Tags    []string
}

// Comment locates a record by Ref and amends it.
func Comment(d *Deps, input CommentInput) (*AmendOutput, error) {
	ref := strings.TrimSpace(input.Ref)
	metaDir := filepath.Join(d.Config.ScreenshotsDir, store.MetadataDir)

	if abs, err := filepath.Abs(ref); err == nil && underDir(abs, metaDir) {
		name := strings.TrimSuffix(filepath.Base(abs), store.RecordExt)
		return Annotate(d, AnnotateInput{Image: name, Comment: input.Comment, Tags: input.Tags})
	}

	entry, err := locate(d.Config, ref)
	if err != nil {
		return nil, err
	}
	return Amend(d, AmendInput{
		Record:  entry.Record,
		Path:    entry.Path,
		Comment: input.Comment,
		Tags:    input.Tags,
	})
}
