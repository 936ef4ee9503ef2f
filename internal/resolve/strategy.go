package resolve

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hpungsan/glimpse/internal/provider"
)

// strategy picks the active tab among several candidates, or returns nil.
type strategy struct {
	name string
	pick func(ctx context.Context, app string, active []provider.Tab) *provider.Tab
}

// strategies are tried in order; the first non-nil pick wins.
func (r *Resolver) strategies() []strategy {
	return []strategy{
		{"single_active", singleActive},
		{"front_title", r.frontTitle},
		{"content_match", r.contentMatch},
		{"first_active", firstActive},
	}
}

func singleActive(_ context.Context, _ string, active []provider.Tab) *provider.Tab {
	if len(active) == 1 {
		return &active[0]
	}
	return nil
}

func firstActive(_ context.Context, _ string, active []provider.Tab) *provider.Tab {
	if len(active) == 0 {
		return nil
	}
	return &active[0]
}

// frontTitle asks the browser for its front tab's title and matches it exactly.
func (r *Resolver) frontTitle(ctx context.Context, app string, active []provider.Tab) *provider.Tab {
	if r.providers.TabTitle == nil {
		return nil
	}
	callCtx, cancel := r.bounded(ctx)
	title, err := r.providers.TabTitle.FrontTabTitle(callCtx, app)
	cancel()
	if err != nil {
		slog.Debug("front tab title unavailable", "app", app, "error", err)
		return nil
	}
	if title == "" {
		return nil
	}
	for i := range active {
		if active[i].Title == title {
			return &active[i]
		}
	}
	return nil
}

// contentMatch looks for each candidate's signature in the rendered page:
// first URLs, then titles, then scheme-less URLs. Denied URLs are never used.
func (r *Resolver) contentMatch(ctx context.Context, app string, active []provider.Tab) *provider.Tab {
	hay := r.pageHaystacks(ctx, app)
	if len(hay) == 0 {
		return nil
	}

	signatures := []func(provider.Tab) string{
		func(t provider.Tab) string {
			if r.Denied(t.URL) {
				return ""
			}
			return t.URL
		},
		func(t provider.Tab) string { return t.Title },
		func(t provider.Tab) string {
			if r.Denied(t.URL) {
				return ""
			}
			return stripScheme(t.URL)
		},
	}

	for _, sig := range signatures {
		for i := range active {
			s := strings.TrimSpace(sig(active[i]))
			if s == "" {
				continue
			}
			for _, h := range hay {
				if strings.Contains(h, s) {
					return &active[i]
				}
			}
		}
	}
	return nil
}

// stripScheme removes "scheme://" and a trailing slash.
func stripScheme(u string) string {
	if i := strings.Index(u, "://"); i >= 0 {
		u = u[i+3:]
	}
	return strings.TrimSuffix(u, "/")
}
