package ops

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/glimpse/internal/errors"
	"github.com/hpungsan/glimpse/internal/provider"
	"github.com/hpungsan/glimpse/internal/record"
	"github.com/hpungsan/glimpse/internal/store"
)

// Default validation messages per capture type.
const (
	MsgNoClipboardText = "No text in clipboard"
	MsgNoSelectionText = "No text selected"
	MsgNoScreenshot    = "Screenshot capture was cancelled or failed"
)

// Payload holds the type-specific fields produced for a capture.
type Payload struct {
	SelectedText      *string
	ScreenshotPath    *string // file:// URI
	ActiveViewContent *string
}

// Producer gathers the type-specific payload. ts is the capture timestamp;
// files the producer writes must be named from it.
type Producer func(ctx context.Context, ts time.Time) (*Payload, error)

// Validator rejects a payload by returning an error whose message is shown to the user.
type Validator func(p *Payload) error

// Assemble runs produce and context resolution concurrently and merges them
// into a new record. The record is not persisted.
// When validate rejects the payload, any screenshot the producer wrote is removed.
func Assemble(ctx context.Context, d *Deps, typ record.CaptureType, produce Producer, validate Validator) (*record.CapturedData, error) {
	ts := d.now()

	var payload *Payload
	var rc record.Context

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := produce(gctx, ts)
		if err != nil {
			return err
		}
		payload = p
		return nil
	})
	g.Go(func() error {
		rc = d.Resolver.Resolve(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("capture")
		}
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(err)
	}
	if payload == nil {
		payload = &Payload{}
	}

	if validate != nil {
		if err := validate(payload); err != nil {
			d.removeOrphan(payload)
			return nil, errors.NewValidationFailed(err.Error())
		}
	}

	app := record.Deref(rc.App)
	content := payload.ActiveViewContent
	if d.Resolver.IsBrowser(app) {
		if content == nil {
			content = d.Resolver.PageContent(ctx, app)
		}
		if content != nil && d.Config.ContentMaxChars > 0 {
			truncated := record.Truncate(*content, d.Config.ContentMaxChars)
			content = &truncated
		}
	} else {
		rc.ClearTab()
		content = nil
	}

	id, err := record.NewID(ts)
	if err != nil {
		d.removeOrphan(payload)
		return nil, errors.NewInternal(err)
	}

	return &record.CapturedData{
		SchemaVersion:     record.SchemaVersion,
		ID:                id,
		Type:              typ,
		Timestamp:         record.FormatTimestamp(ts),
		SelectedText:      payload.SelectedText,
		ScreenshotPath:    payload.ScreenshotPath,
		ActiveViewContent: content,
		Context:           rc,
	}, nil
}

// removeOrphan deletes a screenshot written for a capture that will not be saved.
// Only files inside the capture directory are touched.
func (d *Deps) removeOrphan(p *Payload) {
	if p == nil || p.ScreenshotPath == nil {
		return
	}
	path := record.PathFromURI(*p.ScreenshotPath)
	if !underDir(path, d.Config.CaptureDir) {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove orphaned screenshot", "path", path, "error", err)
		return
	}
	slog.Debug("removed orphaned screenshot", "path", path)
}

// RequireText rejects payloads without non-blank text.
func RequireText(msg string) Validator {
	return func(p *Payload) error {
		if p.SelectedText == nil || strings.TrimSpace(*p.SelectedText) == "" {
			return stderrors.New(msg)
		}
		return nil
	}
}

// RequireScreenshot rejects payloads without a screenshot.
func RequireScreenshot(msg string) Validator {
	return func(p *Payload) error {
		if p.ScreenshotPath == nil {
			return stderrors.New(msg)
		}
		return nil
	}
}

// CaptureInput contains parameters for the Capture operation.
type CaptureInput struct {
	Type record.CaptureType // required

	// Region selects an interactive region screenshot (screenshot captures).
	Region bool
	// WithScreenshot adds a full-screen screenshot to clipboard and selection captures.
	WithScreenshot bool
	// WithSelection adds the selected text to screenshot captures.
	WithSelection bool

	Comment string
	Tags    []string
}

// CaptureOutput contains the result of the Capture operation.
type CaptureOutput struct {
	record.Summary
}

// Capture takes a capture of the given type and saves it to the capture directory.
func Capture(ctx context.Context, d *Deps, input CaptureInput) (*CaptureOutput, error) {
	typ, err := record.ParseType(string(input.Type))
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	validate, err := d.validatorFor(typ, input.Region)
	if err != nil {
		return nil, err
	}

	var produce Producer
	switch typ {
	case record.TypeScreenshot:
		produce = ScreenshotProducer(d, input.Region, input.WithSelection)
	case record.TypeClipboard:
		produce = ClipboardProducer(d, input.WithScreenshot)
	case record.TypeSelection:
		produce = SelectionProducer(d, input.WithScreenshot)
	}

	rec, err := Assemble(ctx, d, typ, produce, validate)
	if err != nil {
		d.notify("Capture Failed", errorMessage(err))
		return nil, err
	}

	if c := record.StringPtr(strings.TrimSpace(input.Comment)); c != nil {
		rec.Comment = c
	}
	rec.Tags = record.NormalizeTags(input.Tags)

	path, err := store.Save(d.Config.CaptureDir, rec)
	if err != nil {
		d.removeOrphan(&Payload{ScreenshotPath: rec.ScreenshotPath})
		d.notify("Capture Failed", errorMessage(err))
		return nil, err
	}

	slog.Info("capture saved", "id", rec.ID, "type", rec.Type, "path", path, "app", record.Deref(rec.App))
	d.notify("Context Captured", fmt.Sprintf("glimpse comment %s to add a comment", rec.ID))
	return &CaptureOutput{Summary: rec.ToSummary(path)}, nil
}

// validatorFor returns the configured expr rule for typ, or the built-in check.
// Only region screenshots require an image; a full-screen capture whose
// screenshot failed is still saved with its context.
func (d *Deps) validatorFor(typ record.CaptureType, region bool) (Validator, error) {
	if rule := strings.TrimSpace(d.Config.Validation[string(typ)]); rule != "" {
		v, err := ExprValidator(rule)
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid %s validation rule: %v", typ, err))
		}
		return v, nil
	}
	switch typ {
	case record.TypeScreenshot:
		if !region {
			return nil, nil
		}
		return RequireScreenshot(MsgNoScreenshot), nil
	case record.TypeClipboard:
		return RequireText(MsgNoClipboardText), nil
	default:
		return RequireText(MsgNoSelectionText), nil
	}
}

// ScreenshotProducer takes a screenshot and, optionally, reads the selection.
func ScreenshotProducer(d *Deps, region, withSelection bool) Producer {
	mode := provider.ModeFullScreen
	if region {
		mode = provider.ModeRegion
	}
	return func(ctx context.Context, ts time.Time) (*Payload, error) {
		p := &Payload{ScreenshotPath: d.takeScreenshot(ctx, record.TypeScreenshot, ts, mode)}
		if withSelection {
			p.SelectedText = d.readSelection(ctx)
		}
		return p, nil
	}
}

// ClipboardProducer reads the clipboard and, optionally, takes a screenshot.
func ClipboardProducer(d *Deps, withScreenshot bool) Producer {
	return func(ctx context.Context, ts time.Time) (*Payload, error) {
		p := &Payload{SelectedText: d.readClipboard(ctx)}
		if withScreenshot {
			p.ScreenshotPath = d.takeScreenshot(ctx, record.TypeClipboard, ts, provider.ModeFullScreen)
		}
		return p, nil
	}
}

// SelectionProducer reads the selection, falling back to the clipboard.
func SelectionProducer(d *Deps, withScreenshot bool) Producer {
	return func(ctx context.Context, ts time.Time) (*Payload, error) {
		p := &Payload{}
		if withScreenshot {
			p.ScreenshotPath = d.takeScreenshot(ctx, record.TypeSelection, ts, provider.ModeFullScreen)
		}
		p.SelectedText = d.readSelection(ctx)
		if p.SelectedText == nil {
			slog.Debug("no selection, falling back to clipboard")
			p.SelectedText = d.readClipboard(ctx)
		}
		return p, nil
	}
}

// takeScreenshot writes {type}-{timestamp}.png into the capture directory.
// Failures degrade to nil.
func (d *Deps) takeScreenshot(ctx context.Context, typ record.CaptureType, ts time.Time, mode provider.ScreenshotMode) *string {
	if d.Providers.Screenshot == nil {
		return nil
	}
	if err := store.EnsureDir(d.Config.CaptureDir); err != nil {
		slog.Warn("screenshot skipped", "error", err)
		return nil
	}
	path := store.ImagePath(d.Config.CaptureDir, string(typ), ts, "png")
	if err := d.Providers.Screenshot.Capture(ctx, path, mode); err != nil {
		slog.Warn("screenshot failed", "mode", mode.String(), "error", err)
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			slog.Debug("failed to remove partial screenshot", "path", path, "error", rmErr)
		}
		return nil
	}
	uri := record.FileURI(path)
	return &uri
}

func (d *Deps) readClipboard(ctx context.Context) *string {
	if d.Providers.Clipboard == nil {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, d.Config.ProviderTimeout())
	defer cancel()
	text, err := d.Providers.Clipboard.ReadText(callCtx)
	if err != nil {
		slog.Debug("clipboard unavailable", "error", err)
		return nil
	}
	return record.StringPtr(text)
}

func (d *Deps) readSelection(ctx context.Context) *string {
	if d.Providers.Selection == nil {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, d.Config.ProviderTimeout())
	defer cancel()
	text, err := d.Providers.Selection.SelectedText(callCtx)
	if err != nil {
		slog.Debug("selection unavailable", "error", err)
		return nil
	}
	return record.StringPtr(text)
}

func errorMessage(err error) string {
	if ge, ok := errors.As(err); ok {
		return ge.Message
	}
	return err.Error()
}
