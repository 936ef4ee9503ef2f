// Package provider defines the OS capability contracts used during capture
// and their macOS implementations.
package provider

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hpungsan/glimpse/internal/config"
)

var (
	// ErrNoImage is returned when a screenshot command produced no file
	// (the user pressed Escape during region selection, or permission was denied).
	ErrNoImage = errors.New("screenshot capture was cancelled or failed")

	// ErrNoSelection is returned when nothing is selected in the frontmost app.
	ErrNoSelection = errors.New("no text selected")

	// ErrUnsupported is returned when a browser offers no scripting interface.
	ErrUnsupported = errors.New("browser does not support tab scripting")
)

// ScreenshotMode selects between full-screen and interactive region capture.
type ScreenshotMode int

const (
	ModeFullScreen ScreenshotMode = iota
	ModeRegion
)

func (m ScreenshotMode) String() string {
	if m == ModeRegion {
		return "region"
	}
	return "fullscreen"
}

// ForegroundApp describes the frontmost process.
type ForegroundApp struct {
	Name        string
	BundleID    string
	WindowTitle string
}

// Tab is one browser tab. Several tabs may be Active at once (one per window).
type Tab struct {
	Active  bool
	URL     string
	Title   string
	Favicon string
}

// ForegroundAppProvider reports the frontmost application.
type ForegroundAppProvider interface {
	Frontmost(ctx context.Context) (*ForegroundApp, error)
}

// BrowserTabProvider enumerates a browser's tabs and reads the rendered page.
type BrowserTabProvider interface {
	Tabs(ctx context.Context, app string) ([]Tab, error)
	// Content returns the focused page in format (config.FormatMarkdown, FormatHTML or FormatText).
	Content(ctx context.Context, app, format string) (string, error)
}

// FrontTabTitler asks a browser directly for the title of its front window's tab.
type FrontTabTitler interface {
	FrontTabTitle(ctx context.Context, app string) (string, error)
}

// ClipboardProvider reads the clipboard.
type ClipboardProvider interface {
	ReadText(ctx context.Context) (string, error)
}

// SelectionProvider reads the current text selection.
type SelectionProvider interface {
	SelectedText(ctx context.Context) (string, error)
}

// ScreenshotProvider writes a screen image to path.
type ScreenshotProvider interface {
	Capture(ctx context.Context, path string, mode ScreenshotMode) error
}

// Notifier shows a user-visible notification. Failures are ignored.
type Notifier interface {
	Notify(title, message string)
}

// Set bundles the providers a capture needs. Nil members are treated as unavailable.
type Set struct {
	Foreground ForegroundAppProvider
	Tabs       BrowserTabProvider
	TabTitle   FrontTabTitler
	Clipboard  ClipboardProvider
	Selection  SelectionProvider
	Screenshot ScreenshotProvider
	Notifier   Notifier
}

// Default builds the macOS provider set for cfg.
func Default(cfg *config.Config) *Set {
	runner := ExecRunner{}
	clip := Clipboard{}

	set := &Set{
		Foreground: &Foreground{Runner: runner},
		Clipboard:  clip,
		Selection:  &Selection{Runner: runner, Clipboard: clip},
		Screenshot: &ScreenCapture{},
		Notifier:   NopNotifier{},
	}
	if cfg.Notify {
		set.Notifier = &OSANotifier{Runner: runner}
	}

	switch cfg.BrowserBackend {
	case config.BackendCDP:
		set.Tabs = NewCDP(cfg.CDPEndpoint)
	case config.BackendNone:
	default:
		as := &AppleScriptTabs{Runner: runner}
		set.Tabs = as
		set.TabTitle = as
	}

	slog.Debug("providers configured", "browser_backend", cfg.BrowserBackend, "notify", cfg.Notify)
	return set
}

// Close releases resources held by providers (the CDP connection).
func (s *Set) Close() error {
	if c, ok := s.Tabs.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
