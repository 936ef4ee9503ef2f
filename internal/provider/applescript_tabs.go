package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/hpungsan/glimpse/internal/config"
	"github.com/hpungsan/glimpse/internal/pagetext"
)

type browserFamily int

const (
	familyChromium browserFamily = iota
	familySafari
	familyUnscriptable
)

func familyOf(app string) browserFamily {
	lower := strings.ToLower(app)
	switch {
	case strings.Contains(lower, "safari"), strings.Contains(lower, "orion"):
		return familySafari
	case strings.Contains(lower, "firefox"):
		return familyUnscriptable
	default:
		return familyChromium
	}
}

const chromiumTabsScript = `
tell application "%s"
	set out to ""
	repeat with w in windows
		set activeIdx to active tab index of w
		set i to 1
		repeat with t in tabs of w
			set out to out & ((i = activeIdx) as string) & "|||" & (URL of t) & "|||" & (title of t) & linefeed
			set i to i + 1
		end repeat
	end repeat
	return out
end tell`

const safariTabsScript = `
tell application "%s"
	set out to ""
	repeat with w in windows
		try
			set activeIdx to index of current tab of w
			repeat with t in tabs of w
				set out to out & ((index of t = activeIdx) as string) & "|||" & (URL of t) & "|||" & (name of t) & linefeed
			end repeat
		end try
	end repeat
	return out
end tell`

const pageHTMLExpr = "document.documentElement.outerHTML"

// AppleScriptTabs reads browser tabs through each browser's scripting dictionary.
// Favicons are not exposed this way and are always empty.
type AppleScriptTabs struct {
	Runner Runner
}

func (a *AppleScriptTabs) Tabs(ctx context.Context, app string) ([]Tab, error) {
	var script string
	switch familyOf(app) {
	case familyChromium:
		script = chromiumTabsScript
	case familySafari:
		script = safariTabsScript
	default:
		return nil, fmt.Errorf("%s: %w", app, ErrUnsupported)
	}

	out, err := a.Runner.Run(ctx, fmt.Sprintf(script, escapeAppleScript(app)))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s tabs: %w", app, err)
	}
	return parseTabLines(out), nil
}

func (a *AppleScriptTabs) FrontTabTitle(ctx context.Context, app string) (string, error) {
	var script string
	switch familyOf(app) {
	case familyChromium:
		script = `tell application "%s" to return title of active tab of front window`
	case familySafari:
		script = `tell application "%s" to return name of current tab of front window`
	default:
		return "", fmt.Errorf("%s: %w", app, ErrUnsupported)
	}
	title, err := a.Runner.Run(ctx, fmt.Sprintf(script, escapeAppleScript(app)))
	if err != nil {
		return "", fmt.Errorf("failed to read %s front tab title: %w", app, err)
	}
	return strings.TrimSpace(title), nil
}

func (a *AppleScriptTabs) Content(ctx context.Context, app, format string) (string, error) {
	var script string
	switch familyOf(app) {
	case familyChromium:
		script = `tell application "%s" to execute active tab of front window javascript "%s"`
	case familySafari:
		script = `tell application "%s" to do JavaScript "%s" in current tab of front window`
	default:
		return "", fmt.Errorf("%s: %w", app, ErrUnsupported)
	}
	page, err := a.Runner.Run(ctx, fmt.Sprintf(script, escapeAppleScript(app), escapeAppleScript(pageHTMLExpr)))
	if err != nil {
		return "", fmt.Errorf("failed to read %s page: %w", app, err)
	}
	return convertPage(page, format)
}

// parseTabLines parses "active|||url|||title" lines.
func parseTabLines(out string) []Tab {
	var tabs []Tab
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := splitFields(line, 3)
		if parts[1] == "" || parts[1] == "missing value" {
			continue
		}
		tabs = append(tabs, Tab{
			Active: parts[0] == "true",
			URL:    parts[1],
			Title:  parts[2],
		})
	}
	return tabs
}

// convertPage renders page HTML in the requested content format.
func convertPage(page, format string) (string, error) {
	switch format {
	case config.FormatHTML:
		return page, nil
	case config.FormatText:
		return pagetext.Text(page)
	default:
		return pagetext.Markdown(page)
	}
}
