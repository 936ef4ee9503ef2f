package store

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hpungsan/glimpse/internal/errors"
	"github.com/hpungsan/glimpse/internal/record"
)

// RecordExt is the extension of capture record files.
const RecordExt = ".json"

// Entry is one loaded record together with the file it came from.
type Entry struct {
	Path      string
	Record    *record.CapturedData
	Timestamp time.Time
}

// EnsureDir creates dir (and parents) if missing. Idempotent.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewPersistence(fmt.Sprintf("failed to create directory %s", dir), err)
	}
	return nil
}

// PathFor returns the record file path for a capture of type t taken at ts:
// {dir}/{type}-{sanitizedTimestamp}.json
func PathFor(dir string, t record.CaptureType, ts time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s%s", t, record.SanitizeTimestamp(ts), RecordExt))
}

// ImagePath returns {dir}/{prefix}-{sanitizedTimestamp}{ext}.
func ImagePath(dir, prefix string, ts time.Time, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%s%s", prefix, record.SanitizeTimestamp(ts), ext))
}

// Save writes rec into dir under its timestamp-derived name and returns the path.
// There is no collision detection; timestamps carry millisecond precision.
func Save(dir string, rec *record.CapturedData) (string, error) {
	ts, err := rec.Time()
	if err != nil {
		return "", errors.NewInvalidRequest(fmt.Sprintf("record timestamp: %v", err))
	}
	if err := EnsureDir(dir); err != nil {
		return "", err
	}
	path := PathFor(dir, rec.Type, ts)
	if err := Write(path, rec); err != nil {
		return "", err
	}
	return path, nil
}

// Write serializes rec as indented JSON and replaces path atomically.
// The document is composed in memory and written once, so a failed write
// never leaves a partial record behind.
func Write(path string, rec *record.CapturedData) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.NewInternal(err)
	}
	data = append(data, '\n')

	return writeAtomic(path, data)
}

// Read loads and validates a single record file.
func Read(path string) (*record.CapturedData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.NewFileNotFound(path)
		}
		return nil, errors.NewPersistence(fmt.Sprintf("failed to read %s", path), err)
	}

	rec, err := record.Decode(data)
	if err != nil {
		return nil, errors.NewCorruptRecord(path, err)
	}
	if err := rec.Validate(); err != nil {
		return nil, errors.NewCorruptRecord(path, err)
	}
	return rec, nil
}

// Load reads every record in dir, newest first.
// Unreadable, unparsable, or incomplete files are logged and skipped.
func Load(dir string) ([]Entry, error) {
	if err := EnsureDir(dir); err != nil {
		return nil, err
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewPersistence(fmt.Sprintf("failed to list %s", dir), err)
	}

	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != RecordExt {
			continue
		}
		path := filepath.Join(dir, name)

		rec, err := Read(path)
		if err != nil {
			slog.Warn("skipping record", "path", path, "error", err)
			continue
		}
		ts, _ := rec.Time()
		entries = append(entries, Entry{Path: path, Record: rec, Timestamp: ts})
	}

	SortNewestFirst(entries)
	return entries, nil
}

// SortNewestFirst orders entries by timestamp descending, then path descending.
func SortNewestFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Timestamp.After(entries[j].Timestamp)
		}
		return entries[i].Path > entries[j].Path
	})
}

// CopyFile copies src to dst through a temp file. It refuses to overwrite dst,
// and dst exists only once the copy is complete.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return errors.NewFileNotFound(src)
		}
		return errors.NewPersistence(fmt.Sprintf("failed to open %s", src), err)
	}
	defer in.Close()

	if _, err := os.Lstat(dst); err == nil {
		return errors.NewPersistence(fmt.Sprintf("refusing to overwrite %s", dst), nil)
	}

	if err := EnsureDir(filepath.Dir(dst)); err != nil {
		return err
	}

	tempPath, err := tempName(dst)
	if err != nil {
		return err
	}
	out, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		return errors.NewPersistence("failed to create copy", err)
	}

	success := false
	defer func() {
		if out != nil {
			out.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return errors.NewPersistence(fmt.Sprintf("failed to copy %s", src), err)
	}
	if err := out.Sync(); err != nil {
		return errors.NewPersistence("failed to sync copy", err)
	}
	if err := out.Close(); err != nil {
		return errors.NewPersistence("failed to close copy", err)
	}
	out = nil

	if err := os.Rename(tempPath, dst); err != nil {
		return errors.NewPersistence(fmt.Sprintf("failed to finalize copy %s", dst), err)
	}

	success = true
	return nil
}

// writeAtomic writes data to a temp file beside path, syncs, and renames it into place.
func writeAtomic(path string, data []byte) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}

	// Check if destination is a symlink (os.Rename would replace the link, not the target)
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest(fmt.Sprintf("record path is a symlink: %s", path))
	}

	tempPath, err := tempName(path)
	if err != nil {
		return err
	}
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		return errors.NewPersistence("failed to create temp file", err)
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return errors.NewPersistence(fmt.Sprintf("failed to write %s", path), err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewPersistence(fmt.Sprintf("failed to sync %s", path), err)
	}
	if err := file.Close(); err != nil {
		return errors.NewPersistence(fmt.Sprintf("failed to close %s", path), err)
	}
	file = nil

	if err := os.Rename(tempPath, path); err != nil {
		return errors.NewPersistence(fmt.Sprintf("failed to finalize %s", path), err)
	}

	success = true
	return nil
}

// tempName returns a hidden, randomized sibling of path. Hidden names are
// ignored by Load, so an interrupted write never shows up as a record.
func tempName(path string) (string, error) {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	dir, base := filepath.Split(path)
	return filepath.Join(dir, "."+base+"."+hex.EncodeToString(randBytes)+".tmp"), nil
}
