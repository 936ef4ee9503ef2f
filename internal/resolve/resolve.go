// Package resolve turns foreground-app and browser-tab signals into one
// record.Context. Resolution never fails: every provider error degrades the
// affected fields to null.
package resolve

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"

	"github.com/hpungsan/glimpse/internal/config"
	"github.com/hpungsan/glimpse/internal/pagetext"
	"github.com/hpungsan/glimpse/internal/provider"
	"github.com/hpungsan/glimpse/internal/record"
)

// Resolver resolves the capture context for one invocation.
// Page content is fetched at most once per browser and reused.
type Resolver struct {
	cfg       *config.Config
	providers *provider.Set
	denied    []glob.Glob
	timeout   time.Duration

	mu      sync.Mutex
	content map[string]*string
}

// New builds a Resolver. Invalid deny patterns are logged and ignored.
func New(cfg *config.Config, providers *provider.Set) *Resolver {
	r := &Resolver{
		cfg:       cfg,
		providers: providers,
		timeout:   cfg.ProviderTimeout(),
		content:   make(map[string]*string),
	}
	for _, p := range cfg.DeniedURLPatterns {
		g, err := glob.Compile(strings.ToLower(p))
		if err != nil {
			slog.Warn("ignoring invalid URL pattern", "pattern", p, "error", err)
			continue
		}
		r.denied = append(r.denied, g)
	}
	return r
}

// Resolve gathers the foreground app and, for supported browsers, the active tab.
func (r *Resolver) Resolve(ctx context.Context) record.Context {
	var out record.Context
	if r.providers == nil || r.providers.Foreground == nil {
		return out
	}

	callCtx, cancel := r.bounded(ctx)
	app, err := r.providers.Foreground.Frontmost(callCtx)
	cancel()
	if err != nil {
		slog.Debug("foreground app unavailable", "error", err)
		return out
	}

	out.App = record.StringPtr(app.Name)
	out.BundleID = record.StringPtr(app.BundleID)
	out.Window = record.StringPtr(app.WindowTitle)

	if !r.IsBrowser(app.Name) {
		return out
	}

	tab := r.activeTab(ctx, app.Name)
	if tab == nil {
		return out
	}
	if !r.Denied(tab.URL) {
		out.URL = record.StringPtr(tab.URL)
	}
	out.Title = record.StringPtr(tab.Title)
	out.Favicon = record.StringPtr(tab.Favicon)
	return out
}

// IsBrowser reports whether tab queries apply to app.
func (r *Resolver) IsBrowser(app string) bool {
	return r.providers != nil && r.providers.Tabs != nil && r.cfg.IsSupportedBrowser(app)
}

// Denied reports whether url matches the deny list.
func (r *Resolver) Denied(url string) bool {
	lower := strings.ToLower(strings.TrimSpace(url))
	for _, g := range r.denied {
		if g.Match(lower) {
			return true
		}
	}
	return false
}

// PageContent returns the rendered content of app's focused page in the
// configured format, or nil when app is not a supported browser or the read fails.
func (r *Resolver) PageContent(ctx context.Context, app string) *string {
	if !r.IsBrowser(app) {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.content[app]; ok {
		return c
	}

	callCtx, cancel := r.bounded(ctx)
	defer cancel()
	text, err := r.providers.Tabs.Content(callCtx, app, r.cfg.ContentFormat)
	if err != nil {
		slog.Debug("page content unavailable", "app", app, "error", err)
		r.content[app] = nil
		return nil
	}
	c := record.StringPtr(text)
	r.content[app] = c
	return c
}

func (r *Resolver) activeTab(ctx context.Context, app string) *provider.Tab {
	callCtx, cancel := r.bounded(ctx)
	tabs, err := r.providers.Tabs.Tabs(callCtx, app)
	cancel()
	if err != nil {
		slog.Debug("browser tabs unavailable", "app", app, "error", err)
		return nil
	}

	var active []provider.Tab
	for _, t := range tabs {
		if t.Active {
			active = append(active, t)
		}
	}
	if len(active) == 0 {
		slog.Debug("no active tab", "app", app, "tabs", len(tabs))
		return nil
	}

	for _, s := range r.strategies() {
		if tab := s.pick(ctx, app, active); tab != nil {
			slog.Debug("active tab resolved", "app", app, "strategy", s.name, "candidates", len(active))
			return tab
		}
	}
	return nil
}

func (r *Resolver) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// pageHaystacks returns the page content plus its extracted text when the
// content is HTML, for signature matching.
func (r *Resolver) pageHaystacks(ctx context.Context, app string) []string {
	c := r.PageContent(ctx, app)
	if c == nil {
		return nil
	}
	hay := []string{*c}
	if pagetext.LooksLikeHTML(*c) {
		if text, err := pagetext.Text(*c); err == nil && text != "" {
			hay = append(hay, text)
		}
	}
	return hay
}
