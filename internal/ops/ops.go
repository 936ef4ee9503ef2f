package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hpungsan/glimpse/internal/config"
	"github.com/hpungsan/glimpse/internal/errors"
	"github.com/hpungsan/glimpse/internal/provider"
	"github.com/hpungsan/glimpse/internal/record"
	"github.com/hpungsan/glimpse/internal/resolve"
	"github.com/hpungsan/glimpse/internal/store"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Deps carries everything an operation needs. Build one per invocation.
type Deps struct {
	Config    *config.Config
	Providers *provider.Set
	Resolver  *resolve.Resolver
	// Home is the glimpse base directory (exports live under it).
	Home string
	Now  func() time.Time
}

// NewDeps wires a Resolver over providers.
func NewDeps(cfg *config.Config, providers *provider.Set, home string) *Deps {
	if providers == nil {
		providers = &provider.Set{}
	}
	return &Deps{
		Config:    cfg,
		Providers: providers,
		Resolver:  resolve.New(cfg, providers),
		Home:      home,
		Now:       time.Now,
	}
}

func (d *Deps) now() time.Time {
	if d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now().UTC()
}

func (d *Deps) notify(title, message string) {
	if d.Providers != nil && d.Providers.Notifier != nil {
		d.Providers.Notifier.Notify(title, message)
	}
}

// limits applies list defaults and bounds.
func limits(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return limit, max(offset, 0)
}

// locate finds a capture by id or by file path.
// A path is accepted when it names an existing .json file.
func locate(cfg *config.Config, ref string) (*store.Entry, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.NewInvalidRequest("id or path is required")
	}

	if isRecordPath(ref) {
		expanded, err := config.ExpandHome(ref)
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
		}
		path, err := filepath.Abs(expanded)
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
		}
		rec, err := store.Read(path)
		if err != nil {
			return nil, err
		}
		ts, _ := rec.Time()
		return &store.Entry{Path: path, Record: rec, Timestamp: ts}, nil
	}

	entries, err := store.Load(cfg.CaptureDir)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].Record.ID == ref {
			return &entries[i], nil
		}
	}
	return nil, errors.NewNotFound(ref)
}

func isRecordPath(ref string) bool {
	if filepath.Ext(ref) != store.RecordExt {
		return false
	}
	if strings.ContainsRune(ref, filepath.Separator) || strings.HasPrefix(ref, "~") {
		return true
	}
	_, err := os.Stat(ref)
	return err == nil
}

// underDir reports whether path lies inside dir (path-aware, not a string prefix).
func underDir(path, dir string) bool {
	if path == "" || dir == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// summaries converts entries to summaries, never returning nil.
func summaries(entries []store.Entry) []record.Summary {
	out := make([]record.Summary, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Record.ToSummary(e.Path))
	}
	return out
}
