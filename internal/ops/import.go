package ops

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hpungsan/glimpse/internal/errors"
	"github.com/hpungsan/glimpse/internal/record"
	"github.com/hpungsan/glimpse/internal/store"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError ImportMode = "error" // import nothing if any line is bad or collides
	ImportModeSkip  ImportMode = "skip"  // import what can be imported, report the rest
)

// maxImportLine bounds one JSONL line (page content can be large).
const maxImportLine = 64 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes one line that was not imported.
type ImportError struct {
	Line    int    `json:"line"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type importLine struct {
	line int
	rec  *record.CapturedData
}

// Import restores captures from a JSONL export into the capture directory.
// A capture collides when its id already exists or its file name is taken.
func Import(d *Deps, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeSkip {
		return nil, errors.NewInvalidRequest("mode must be one of: error, skip")
	}
	if err := ValidatePath(input.Path, ".jsonl", PathCheckRead, d.Config, d.Home); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewPersistence("failed to open import file", err)
	}
	defer file.Close()

	lines, problems := parseImportFile(file)

	existing, err := store.Load(d.Config.CaptureDir)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(existing))
	for _, e := range existing {
		ids[e.Record.ID] = true
	}

	var ready []importLine
	planned := make(map[string]bool)
	for _, l := range lines {
		ts, _ := l.rec.Time()
		dest := store.PathFor(d.Config.CaptureDir, l.rec.Type, ts)
		switch {
		case ids[l.rec.ID]:
			problems = append(problems, ImportError{
				Line: l.line, ID: l.rec.ID, Code: "ID_COLLISION",
				Message: fmt.Sprintf("capture with id %q already exists", l.rec.ID),
			})
		case planned[dest] || fileExists(dest):
			problems = append(problems, ImportError{
				Line: l.line, ID: l.rec.ID, Code: "PATH_COLLISION",
				Message: "a capture with the same type and timestamp already exists",
			})
		default:
			ids[l.rec.ID] = true
			planned[dest] = true
			ready = append(ready, l)
		}
	}

	out := &ImportOutput{Errors: []ImportError{}}
	if len(problems) > 0 {
		out.Errors = problems
		if input.Mode == ImportModeError {
			return out, nil
		}
		out.Skipped = len(problems)
	}

	for _, l := range ready {
		if _, err := store.Save(d.Config.CaptureDir, l.rec); err != nil {
			return nil, err
		}
		out.Imported++
	}
	return out, nil
}

func parseImportFile(r io.Reader) ([]importLine, []ImportError) {
	var lines []importLine
	var problems []ImportError

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}

		var header ExportHeader
		if json.Unmarshal(data, &header) == nil && header.GlimpseExport {
			continue
		}

		rec, err := record.Decode(data)
		if err != nil {
			problems = append(problems, ImportError{
				Line: lineNum, Code: "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}
		err = rec.Validate()
		if err == nil {
			_, err = record.ParseType(string(rec.Type))
		}
		if err != nil {
			problems = append(problems, ImportError{
				Line: lineNum, ID: rec.ID, Code: "INVALID_RECORD",
				Message: err.Error(),
			})
			continue
		}
		rec.SchemaVersion = record.SchemaVersion
		lines = append(lines, importLine{line: lineNum, rec: rec})
	}

	if err := scanner.Err(); err != nil {
		problems = append(problems, ImportError{
			Line: lineNum + 1, Code: "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}
	return lines, problems
}

func fileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
