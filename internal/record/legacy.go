package record

import (
	"encoding/json"
	"strings"
)

// wireRecord accepts the canonical shape plus every field name older captures used.
type wireRecord struct {
	CapturedData

	// First generation (quick capture, screenshot sidecars)
	ActiveAppName     *string `json:"activeAppName"`
	ActiveAppBundleID *string `json:"activeAppBundleId"`
	ActiveURL         *string `json:"activeURL"`
	ClipboardText     *string `json:"clipboardText"`
	FrontAppName      *string `json:"frontAppName"`
	BrowserTabHTML    *string `json:"browserTabHTML"`

	// Second generation
	Content       *string `json:"content"`
	ScreenshotURL *string `json:"screenshotUrl"`
	PageContent   *string `json:"pageContent"`
	WindowTitle   *string `json:"windowTitle"`
	PageTitle     *string `json:"pageTitle"`
}

// Decode parses a record file, mapping older field names onto the canonical shape.
// Canonical fields win when both are present. Decode does not check mandatory
// fields; call Validate on the result.
func Decode(data []byte) (*CapturedData, error) {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}

	r := w.CapturedData
	r.App = coalesce(r.App, w.ActiveAppName, w.FrontAppName)
	r.BundleID = coalesce(r.BundleID, w.ActiveAppBundleID)
	r.URL = coalesce(r.URL, w.ActiveURL)
	r.Window = coalesce(r.Window, w.WindowTitle)
	r.Title = coalesce(r.Title, w.PageTitle)
	r.SelectedText = coalesce(r.SelectedText, w.ClipboardText, w.Content)
	r.ScreenshotPath = coalesce(r.ScreenshotPath, w.ScreenshotURL)
	r.ActiveViewContent = coalesce(r.ActiveViewContent, w.BrowserTabHTML, w.PageContent)
	r.Type = CaptureType(strings.ToLower(strings.TrimSpace(string(r.Type))))
	r.Tags = NormalizeTags(r.Tags)

	return &r, nil
}

// IsLegacy reports whether the record was decoded from a pre-canonical shape.
func (r *CapturedData) IsLegacy() bool {
	return r.SchemaVersion < SchemaVersion
}

func coalesce(vals ...*string) *string {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
