package record

// Summary represents a capture's metadata without page content or selected text.
// Used for browse operations (list, latest, screenshots) to keep output small.
type Summary struct {
	// ID is a ULID that uniquely identifies this capture
	ID string `json:"id"`

	Type      CaptureType `json:"type"`
	Timestamp string      `json:"timestamp"`

	// Path is the record file (or sidecar) the capture was read from
	Path string `json:"path"`

	App   *string `json:"app,omitempty"`
	URL   *string `json:"url,omitempty"`
	Title *string `json:"title,omitempty"`

	// Excerpt is the first line of the selected text, shortened
	Excerpt string `json:"excerpt,omitempty"`

	HasScreenshot bool     `json:"has_screenshot"`
	Comment       *string  `json:"comment,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

// excerptChars bounds Summary.Excerpt.
const excerptChars = 80

// ToSummary converts a record read from path into a Summary.
func (r *CapturedData) ToSummary(path string) Summary {
	return Summary{
		ID:            r.ID,
		Type:          r.Type,
		Timestamp:     r.Timestamp,
		Path:          path,
		App:           r.App,
		URL:           r.URL,
		Title:         r.Title,
		Excerpt:       firstLine(Deref(r.SelectedText), excerptChars),
		HasScreenshot: r.ScreenshotPath != nil,
		Comment:       r.Comment,
		Tags:          r.Tags,
	}
}

func firstLine(s string, max int) string {
	for i, c := range s {
		if c == '\n' || c == '\r' {
			s = s[:i]
			break
		}
	}
	cut := Truncate(s, max)
	if cut != s {
		return cut + "…"
	}
	return s
}
