package ops

import (
	"github.com/hpungsan/glimpse/internal/config"
	"github.com/hpungsan/glimpse/internal/record"
	"github.com/hpungsan/glimpse/internal/store"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	Ref            string // id or capture file path
	IncludeContent *bool  // default: true (nil means default)
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	record.CapturedData                 // embedded (copy, not pointer)
	Path                string          `json:"path"`
	Outline             *record.Outline `json:"outline,omitempty"`
}

// Fetch retrieves a single capture by id or path.
func Fetch(d *Deps, input FetchInput) (*FetchOutput, error) {
	entry, err := locate(d.Config, input.Ref)
	if err != nil {
		return nil, err
	}

	includeContent := true
	if input.IncludeContent != nil {
		includeContent = *input.IncludeContent
	}
	return buildFetchOutput(d.Config, entry, includeContent), nil
}

func buildFetchOutput(cfg *config.Config, entry *store.Entry, includeContent bool) *FetchOutput {
	output := &FetchOutput{
		CapturedData: *entry.Record.Clone(),
		Path:         entry.Path,
	}

	if c := entry.Record.ActiveViewContent; c != nil && cfg.ContentFormat == config.FormatMarkdown {
		o := record.BuildOutline(*c)
		if len(o.Headings) > 0 || o.Excerpt != "" {
			output.Outline = &o
		}
	}
	if !includeContent {
		output.ActiveViewContent = nil
	}
	return output
}
