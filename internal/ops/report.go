package ops

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/hpungsan/glimpse/internal/report"
)

// ReportInput contains parameters for the Report operation.
type ReportInput struct {
	Ref  string // id or capture file path
	Path string // optional, default: <home>/exports/report-<id>.html
}

// ReportOutput contains the result of the Report operation.
type ReportOutput struct {
	Path string `json:"path"`
	ID   string `json:"id"`
}

// Report renders one capture as a standalone HTML page.
func Report(d *Deps, input ReportInput) (*ReportOutput, error) {
	entry, err := locate(d.Config, input.Ref)
	if err != nil {
		return nil, err
	}

	outPath := input.Path
	if outPath == "" {
		name := fmt.Sprintf("report-%s.html", SanitizeForFilename(entry.Record.ID))
		outPath = filepath.Join(ExportsDir(d.Home), name)
	}
	if err := ValidatePath(outPath, ".html", PathCheckWrite, d.Config, d.Home); err != nil {
		return nil, err
	}

	err = writeFileAtomic(outPath, func(w io.Writer) error {
		return report.Render(w, entry.Record, entry.Path, d.Config.ContentFormat, d.now())
	})
	if err != nil {
		return nil, err
	}
	return &ReportOutput{Path: outPath, ID: entry.Record.ID}, nil
}
