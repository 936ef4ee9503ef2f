package provider

import (
	"context"
	"log/slog"
	"time"
)

const notifyTimeout = 2 * time.Second

// OSANotifier posts a macOS notification through osascript.
type OSANotifier struct {
	Runner Runner
}

func (n *OSANotifier) Notify(title, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	script := `display notification "` + escapeAppleScript(message) + `" with title "` + escapeAppleScript(title) + `"`
	if _, err := n.Runner.Run(ctx, script); err != nil {
		slog.Debug("notification failed", "error", err)
	}
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(string, string) {}
