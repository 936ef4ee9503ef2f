package ops

import (
	"strings"

	"github.com/hpungsan/glimpse/internal/errors"
	"github.com/hpungsan/glimpse/internal/record"
	"github.com/hpungsan/glimpse/internal/store"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Type   string // optional: screenshot|clipboard|selection
	Tag    string // optional, case-insensitive
	Query  string // optional substring over text, comment, app, window, url and title
	Limit  int    // default: 20, max: 100
	Offset int    // default: 0
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []record.Summary `json:"items"`
	Pagination Pagination       `json:"pagination"`
	Sort       string           `json:"sort"`
}

// List retrieves capture summaries, newest first, with pagination.
func List(d *Deps, input ListInput) (*ListOutput, error) {
	limit, offset := limits(input.Limit, input.Offset)

	entries, err := filteredEntries(d, input.Type, input.Tag, input.Query)
	if err != nil {
		return nil, err
	}

	total := len(entries)
	end := min(offset+limit, total)
	page := entries[min(offset, total):end]

	return &ListOutput{
		Items: summaries(page),
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: end < total,
			Total:   total,
		},
		Sort: "timestamp_desc",
	}, nil
}

// filteredEntries loads the capture directory and applies the filters.
func filteredEntries(d *Deps, typ, tag, query string) ([]store.Entry, error) {
	var wantType record.CaptureType
	if strings.TrimSpace(typ) != "" {
		t, err := record.ParseType(typ)
		if err != nil {
			return nil, errors.NewInvalidRequest(err.Error())
		}
		wantType = t
	}

	entries, err := store.Load(d.Config.CaptureDir)
	if err != nil {
		return nil, err
	}

	q := record.Normalize(query)
	out := entries[:0]
	for _, e := range entries {
		if wantType != "" && e.Record.Type != wantType {
			continue
		}
		if tag != "" && !record.HasTag(e.Record.Tags, tag) {
			continue
		}
		if q != "" && !matchesQuery(e.Record, q) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func matchesQuery(r *record.CapturedData, q string) bool {
	for _, s := range []*string{r.SelectedText, r.Comment, r.App, r.Window, r.URL, r.Title} {
		if s != nil && strings.Contains(record.Normalize(*s), q) {
			return true
		}
	}
	return false
}
