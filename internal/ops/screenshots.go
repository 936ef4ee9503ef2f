package ops

import (
	"os"

	"github.com/hpungsan/glimpse/internal/record"
	"github.com/hpungsan/glimpse/internal/store"
)

// ScreenshotsInput contains parameters for the Screenshots operation.
type ScreenshotsInput struct {
	Limit  int // default: 20, max: 100
	Offset int
}

// ScreenshotItem is an external image with its sidecar record.
type ScreenshotItem struct {
	Image string `json:"image"`
	record.Summary
}

// ScreenshotsOutput contains the result of the Screenshots operation.
type ScreenshotsOutput struct {
	Items      []ScreenshotItem `json:"items"`
	Pagination Pagination       `json:"pagination"`
	Created    int              `json:"sidecars_created"`
}

// Screenshots lists images in the screenshots directory, newest first,
// creating missing sidecars along the way.
func Screenshots(d *Deps, input ScreenshotsInput) (*ScreenshotsOutput, error) {
	limit, offset := limits(input.Limit, input.Offset)

	items, err := store.ScanExternal(d.Config.ScreenshotsDir, d.Config.ImagePatterns, synthSidecar)
	if err != nil {
		return nil, err
	}

	out := &ScreenshotsOutput{Items: []ScreenshotItem{}}
	for _, it := range items {
		if it.Created {
			out.Created++
		}
	}
	total := len(items)
	end := min(offset+limit, total)
	for _, it := range items[min(offset, total):end] {
		out.Items = append(out.Items, ScreenshotItem{
			Image:   it.ImagePath,
			Summary: it.Record.ToSummary(it.SidecarPath),
		})
	}
	out.Pagination = Pagination{Limit: limit, Offset: offset, HasMore: end < total, Total: total}
	return out, nil
}

// AnnotateInput contains parameters for the Annotate operation.
type AnnotateInput struct {
	Image   string // file name inside the screenshots directory
	Comment string
	Tags    []string
}

// Annotate comments an external screenshot, promoting it into the capture directory.
func Annotate(d *Deps, input AnnotateInput) (*AmendOutput, error) {
	ext, err := store.LoadExternal(d.Config.ScreenshotsDir, input.Image, synthSidecar)
	if err != nil {
		return nil, err
	}
	// The image itself is what gets promoted, whatever the sidecar says.
	rec := ext.Record.Clone()
	uri := record.FileURI(ext.ImagePath)
	rec.ScreenshotPath = &uri
	return Amend(d, AmendInput{
		Record:  rec,
		Path:    ext.SidecarPath,
		Comment: input.Comment,
		Tags:    input.Tags,
	})
}

// synthSidecar describes an untracked image from its file info alone.
// Context fields stay null.
func synthSidecar(imagePath string, info os.FileInfo) (*record.CapturedData, error) {
	ts := info.ModTime().UTC()
	id, err := record.NewID(ts)
	if err != nil {
		return nil, err
	}
	uri := record.FileURI(imagePath)
	return &record.CapturedData{
		SchemaVersion:  record.SchemaVersion,
		ID:             id,
		Type:           record.TypeScreenshot,
		Timestamp:      record.FormatTimestamp(ts),
		ScreenshotPath: &uri,
	}, nil
}
