package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

const copyKeystrokeScript = `tell application "System Events" to keystroke "c" using command down`

const (
	selectionPollInterval = 25 * time.Millisecond
	selectionWait         = 600 * time.Millisecond
)

// ClipboardReadWriter is a clipboard that can also be written.
type ClipboardReadWriter interface {
	ClipboardProvider
	WriteText(text string) error
}

// Selection copies the frontmost app's selection with a synthetic Cmd+C.
// When the clipboard held text it is swapped for a sentinel first and put
// back afterwards. A clipboard without text (an image or files) is never
// written, since writing it back would only clear it.
type Selection struct {
	Runner    Runner
	Clipboard ClipboardReadWriter
}

func (s *Selection) SelectedText(ctx context.Context) (string, error) {
	previous, err := s.Clipboard.ReadText(ctx)
	hadText := err == nil && previous != ""

	// baseline is what the clipboard holds before the copy lands.
	baseline := ""
	if hadText {
		baseline = "glimpse-selection-" + uuid.NewString()
		if err := s.Clipboard.WriteText(baseline); err != nil {
			return "", fmt.Errorf("failed to prepare clipboard: %w", err)
		}
	}

	var copied string
	if hadText {
		defer func() { s.restore(previous, baseline, copied) }()
	}

	if _, err := s.Runner.Run(ctx, copyKeystrokeScript); err != nil {
		return "", fmt.Errorf("failed to copy selection: %w", err)
	}

	deadline := time.NewTimer(selectionWait)
	defer deadline.Stop()
	tick := time.NewTicker(selectionPollInterval)
	defer tick.Stop()

	for {
		text, err := s.Clipboard.ReadText(ctx)
		if err == nil && text != baseline {
			if strings.TrimSpace(text) == "" {
				return "", ErrNoSelection
			}
			copied = text
			return text, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return "", ErrNoSelection
		case <-tick.C:
		}
	}
}

// restore puts previous back unless the user copied something else meanwhile.
func (s *Selection) restore(previous, sentinel, copied string) {
	current, err := s.Clipboard.ReadText(context.Background())
	if err != nil {
		slog.Debug("clipboard not restored", "error", err)
		return
	}
	if current != sentinel && current != copied {
		slog.Debug("clipboard changed during selection copy, not restored")
		return
	}
	if err := s.Clipboard.WriteText(previous); err != nil {
		slog.Warn("failed to restore clipboard", "error", err)
	}
}
