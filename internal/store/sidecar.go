package store

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/hpungsan/glimpse/internal/errors"
	"github.com/hpungsan/glimpse/internal/record"
)

// MetadataDir is the sidecar directory inside the screenshots directory.
const MetadataDir = ".metadata"

// External is an image produced outside glimpse, paired with its sidecar record.
type External struct {
	ImagePath   string
	SidecarPath string
	Record      *record.CapturedData
	Timestamp   time.Time
	// Created is true when the sidecar was synthesized during this scan.
	Created bool
}

// SynthFunc builds the initial sidecar record for an untracked image.
type SynthFunc func(imagePath string, info os.FileInfo) (*record.CapturedData, error)

// SidecarPath returns {screenshotsDir}/.metadata/{imageName}.json.
func SidecarPath(screenshotsDir, imageName string) string {
	return filepath.Join(screenshotsDir, MetadataDir, imageName+RecordExt)
}

// ImageMatcher matches file names against glob patterns, case-insensitively.
type ImageMatcher struct {
	globs []glob.Glob
}

// NewImageMatcher compiles patterns (gobwas/glob syntax).
func NewImageMatcher(patterns []string) (*ImageMatcher, error) {
	m := &ImageMatcher{}
	for _, p := range patterns {
		g, err := glob.Compile(strings.ToLower(p))
		if err != nil {
			return nil, fmt.Errorf("invalid image pattern %q: %w", p, err)
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// Match reports whether name is a visible file matching any pattern.
func (m *ImageMatcher) Match(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	lower := strings.ToLower(name)
	for _, g := range m.globs {
		if g.Match(lower) {
			return true
		}
	}
	return false
}

// ScanExternal lists images in dir matching patterns, newest first.
// Each image's sidecar is read if present; otherwise synth builds one and it is
// written (lazily, on first inspection). Existing sidecars are never rewritten;
// fields missing from older sidecars are filled in memory only.
// Corrupt sidecars are logged and their image skipped.
func ScanExternal(dir string, patterns []string, synth SynthFunc) ([]External, error) {
	matcher, err := NewImageMatcher(patterns)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	if err := EnsureDir(dir); err != nil {
		return nil, err
	}
	if err := EnsureDir(filepath.Join(dir, MetadataDir)); err != nil {
		return nil, err
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewPersistence(fmt.Sprintf("failed to list %s", dir), err)
	}

	var out []External
	for _, f := range files {
		if f.IsDir() || !matcher.Match(f.Name()) {
			continue
		}
		imagePath := filepath.Join(dir, f.Name())
		info, err := f.Info()
		if err != nil {
			slog.Debug("skipping image, stat failed", "path", imagePath, "error", err)
			continue
		}

		ext, err := loadSidecar(dir, imagePath, info, synth)
		if err != nil {
			slog.Warn("skipping image", "path", imagePath, "error", err)
			continue
		}
		out = append(out, *ext)
	}

	sortExternal(out)
	return out, nil
}

// LoadExternal returns a single image's sidecar, creating it if missing.
func LoadExternal(dir, imageName string, synth SynthFunc) (*External, error) {
	if strings.ContainsAny(imageName, `/\`) || imageName == "." || imageName == ".." {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid image name %q", imageName))
	}
	imagePath := filepath.Join(dir, imageName)
	info, err := os.Stat(imagePath)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.NewFileNotFound(imagePath)
		}
		return nil, errors.NewPersistence(fmt.Sprintf("failed to stat %s", imagePath), err)
	}
	if info.IsDir() {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("%s is a directory", imagePath))
	}
	if err := EnsureDir(filepath.Join(dir, MetadataDir)); err != nil {
		return nil, err
	}
	return loadSidecar(dir, imagePath, info, synth)
}

func loadSidecar(dir, imagePath string, info os.FileInfo, synth SynthFunc) (*External, error) {
	sidecarPath := SidecarPath(dir, filepath.Base(imagePath))
	ext := &External{ImagePath: imagePath, SidecarPath: sidecarPath}

	data, err := os.ReadFile(sidecarPath)
	switch {
	case err == nil:
		rec, err := record.Decode(data)
		if err != nil {
			return nil, errors.NewCorruptRecord(sidecarPath, err)
		}
		fillSidecarDefaults(rec, imagePath, info)
		ext.Record = rec
	case stderrors.Is(err, os.ErrNotExist):
		rec, err := synth(imagePath, info)
		if err != nil {
			return nil, err
		}
		fillSidecarDefaults(rec, imagePath, info)
		if err := Write(sidecarPath, rec); err != nil {
			return nil, err
		}
		ext.Record = rec
		ext.Created = true
	default:
		return nil, errors.NewPersistence(fmt.Sprintf("failed to read %s", sidecarPath), err)
	}

	if err := ext.Record.Validate(); err != nil {
		return nil, errors.NewCorruptRecord(sidecarPath, err)
	}
	ext.Timestamp, _ = ext.Record.Time()
	return ext, nil
}

// fillSidecarDefaults completes sidecars written by older tools, which carry
// neither id nor type. The id is derived from the image so it is stable
// across scans without rewriting the sidecar.
func fillSidecarDefaults(rec *record.CapturedData, imagePath string, info os.FileInfo) {
	if rec.Type == "" {
		rec.Type = record.TypeScreenshot
	}
	if _, err := record.ParseTimestamp(rec.Timestamp); err != nil {
		rec.Timestamp = record.FormatTimestamp(info.ModTime())
	}
	if strings.TrimSpace(rec.ID) == "" {
		rec.ID = record.DerivedID(info.ModTime(), imagePath)
	}
	if rec.ScreenshotPath == nil {
		uri := record.FileURI(imagePath)
		rec.ScreenshotPath = &uri
	}
}

func sortExternal(items []External) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Timestamp.Equal(items[j].Timestamp) {
			return items[i].Timestamp.After(items[j].Timestamp)
		}
		return items[i].ImagePath > items[j].ImagePath
	})
}
