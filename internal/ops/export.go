package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/hpungsan/glimpse/internal/errors"
	"github.com/hpungsan/glimpse/internal/record"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path string // optional, default: <home>/exports/<type|all>-<timestamp>.jsonl
	Type string // optional filter
	Tag  string // optional filter
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader is the first line of a JSONL export.
type ExportHeader struct {
	GlimpseExport bool   `json:"_glimpse_export"`
	SchemaVersion int    `json:"schema_version"`
	ExportedAt    int64  `json:"exported_at"`
	Source        string `json:"source"`
}

// Export writes captures, newest first, to a JSONL file: a header line then one record per line.
func Export(ctx context.Context, d *Deps, input ExportInput) (*ExportOutput, error) {
	now := d.now()
	exportedAt := now.Unix()

	exportPath := input.Path
	if exportPath == "" {
		exportPath = defaultExportPath(d.Home, input.Type, now)
	}
	if err := ValidatePath(exportPath, ".jsonl", PathCheckWrite, d.Config, d.Home); err != nil {
		return nil, err
	}

	entries, err := filteredEntries(d, input.Type, input.Tag, "")
	if err != nil {
		return nil, err
	}

	count := 0
	err = writeFileAtomic(exportPath, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		header := ExportHeader{
			GlimpseExport: true,
			SchemaVersion: record.SchemaVersion,
			ExportedAt:    exportedAt,
			Source:        d.Config.CaptureDir,
		}
		if err := enc.Encode(header); err != nil {
			return err
		}
		for _, e := range entries {
			select {
			case <-ctx.Done():
				return errors.NewCancelled("export")
			default:
			}
			rec := e.Record.Clone()
			rec.SchemaVersion = record.SchemaVersion
			if err := enc.Encode(rec); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ExportOutput{
		Path:       exportPath,
		Count:      count,
		ExportedAt: exportedAt,
	}, nil
}

// defaultExportPath returns <home>/exports/<type|all>-<timestamp>.jsonl.
func defaultExportPath(home, typ string, now time.Time) string {
	name := "all"
	if typ != "" {
		name = SanitizeForFilename(record.Normalize(typ))
	}
	filename := fmt.Sprintf("%s-%s.jsonl", name, now.Format("2006-01-02T150405"))
	return filepath.Join(ExportsDir(home), filename)
}
