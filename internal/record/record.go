package record

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// SchemaVersion is written into every record glimpse creates.
// Records without it predate the canonical shape and are decoded through the legacy path.
const SchemaVersion = 2

// TimestampLayout is the stored timestamp form: UTC, millisecond precision, "Z" suffix.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// filenameTimestampLayout is TimestampLayout with colons replaced, as used in file names.
const filenameTimestampLayout = "2006-01-02T15-04-05.000Z"

// FileURIPrefix prefixes screenshotPath values.
const FileURIPrefix = "file://"

// CaptureType tags what produced a record.
type CaptureType string

const (
	TypeScreenshot CaptureType = "screenshot"
	TypeClipboard  CaptureType = "clipboard"
	TypeSelection  CaptureType = "selection"
)

// Types lists every capture type in display order.
var Types = []CaptureType{TypeScreenshot, TypeClipboard, TypeSelection}

// ParseType parses a capture type name (case-insensitive).
func ParseType(s string) (CaptureType, error) {
	t := CaptureType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Types {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown capture type %q (want screenshot|clipboard|selection)", s)
}

// Context is the foreground app / browser tab snapshot embedded in every record.
// URL, Title and Favicon are only ever set when App is a supported browser.
type Context struct {
	App      *string `json:"app"`
	BundleID *string `json:"bundleId"`
	Window   *string `json:"window"`
	URL      *string `json:"url"`
	Title    *string `json:"title"`
	Favicon  *string `json:"favicon"`
}

// ClearTab drops every tab-derived field.
func (c *Context) ClearTab() {
	c.URL = nil
	c.Title = nil
	c.Favicon = nil
}

// CapturedData is the persisted capture record.
type CapturedData struct {
	SchemaVersion int         `json:"schemaVersion,omitempty"`
	ID            string      `json:"id"`
	Type          CaptureType `json:"type"`
	Timestamp     string      `json:"timestamp"`

	SelectedText      *string `json:"selectedText"`
	ScreenshotPath    *string `json:"screenshotPath"`
	ActiveViewContent *string `json:"activeViewContent"`

	Context

	// Comment is absent until the record is amended.
	Comment *string  `json:"comment,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// Validate checks the mandatory fields. A record failing it is corrupt.
func (r *CapturedData) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("missing id")
	}
	if strings.TrimSpace(string(r.Type)) == "" {
		return fmt.Errorf("missing type")
	}
	if strings.TrimSpace(r.Timestamp) == "" {
		return fmt.Errorf("missing timestamp")
	}
	if _, err := ParseTimestamp(r.Timestamp); err != nil {
		return err
	}
	return nil
}

// Time returns the parsed record timestamp.
func (r *CapturedData) Time() (time.Time, error) {
	return ParseTimestamp(r.Timestamp)
}

// ScreenshotFile returns the filesystem path behind ScreenshotPath, or "".
func (r *CapturedData) ScreenshotFile() string {
	if r.ScreenshotPath == nil {
		return ""
	}
	return PathFromURI(*r.ScreenshotPath)
}

// Clone returns a deep copy.
func (r *CapturedData) Clone() *CapturedData {
	c := *r
	c.SelectedText = cloneString(r.SelectedText)
	c.ScreenshotPath = cloneString(r.ScreenshotPath)
	c.ActiveViewContent = cloneString(r.ActiveViewContent)
	c.Comment = cloneString(r.Comment)
	c.App = cloneString(r.App)
	c.BundleID = cloneString(r.BundleID)
	c.Window = cloneString(r.Window)
	c.URL = cloneString(r.URL)
	c.Title = cloneString(r.Title)
	c.Favicon = cloneString(r.Favicon)
	if r.Tags != nil {
		c.Tags = append([]string(nil), r.Tags...)
	}
	return &c
}

// NewID returns a fresh ULID for a record created at t.
func NewID(t time.Time) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// DerivedID returns a ULID for t whose random part comes from key, so the
// same key and instant always yield the same id.
func DerivedID(t time.Time, key string) string {
	sum := sha256.Sum256([]byte(key))
	return ulid.MustNew(ulid.Timestamp(t), bytes.NewReader(sum[:])).String()
}

// FormatTimestamp renders t in the stored form.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a stored timestamp. Any RFC 3339 instant is accepted
// so hand-edited records keep loading.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(TimestampLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return t.UTC(), nil
}

// SanitizeTimestamp renders t for use in a file name (colons replaced with dashes).
func SanitizeTimestamp(t time.Time) string {
	return t.UTC().Format(filenameTimestampLayout)
}

// TimestampFromFilename recovers the instant from a "{prefix}-{sanitizedTimestamp}.{ext}" name.
func TimestampFromFilename(name string) (time.Time, bool) {
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	if len(name) < len(filenameTimestampLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(filenameTimestampLayout, name[len(name)-len(filenameTimestampLayout):])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FileURI returns the file:// URI stored in screenshotPath.
func FileURI(path string) string {
	return FileURIPrefix + path
}

// PathFromURI strips a file:// scheme. FileURI does not encode, so the
// literal path wins; a percent-encoded URI written by another tool is decoded
// only when the literal path does not exist.
func PathFromURI(uri string) string {
	p, ok := strings.CutPrefix(uri, FileURIPrefix)
	if !ok || !strings.Contains(p, "%") {
		return p
	}
	if _, err := os.Lstat(p); err == nil {
		return p
	}
	decoded, err := url.PathUnescape(p)
	if err != nil {
		return p
	}
	if _, err := os.Lstat(decoded); err != nil {
		return p
	}
	return decoded
}

// StringPtr returns a pointer to s, or nil when s is blank.
func StringPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// Deref returns *s, or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
