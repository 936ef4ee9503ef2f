package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/playwright-community/playwright-go"
)

const (
	visibleExpr = `() => document.visibilityState === "visible"`
	focusedExpr = `() => document.hasFocus()`
	faviconExpr = `() => {
	const link = document.querySelector('link[rel~="icon"]');
	return link ? link.href : new URL("/favicon.ico", location.href).href;
}`
)

// CDP reads tabs from a Chromium browser started with --remote-debugging-port.
// Every page is a tab; a page is active when its document is visible.
// The connection is opened on first use and kept until Close.
type CDP struct {
	Endpoint string

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
}

// NewCDP returns a provider for endpoint (e.g. http://localhost:9222).
func NewCDP(endpoint string) *CDP {
	return &CDP{Endpoint: endpoint}
}

func (c *CDP) connect() (playwright.Browser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser != nil {
		return c.browser, nil
	}
	if c.Endpoint == "" {
		return nil, fmt.Errorf("cdp endpoint not configured")
	}

	pw, err := playwright.Run(&playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	browser, err := pw.Chromium.ConnectOverCDP(c.Endpoint)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to connect to %s: %w", c.Endpoint, err)
	}
	c.pw = pw
	c.browser = browser
	return browser, nil
}

// Close disconnects from the browser without closing it.
func (c *CDP) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pw == nil {
		return nil
	}
	err := c.pw.Stop()
	c.pw = nil
	c.browser = nil
	return err
}

func (c *CDP) pages() ([]playwright.Page, error) {
	browser, err := c.connect()
	if err != nil {
		return nil, err
	}
	var pages []playwright.Page
	for _, bc := range browser.Contexts() {
		pages = append(pages, bc.Pages()...)
	}
	return pages, nil
}

func (c *CDP) Tabs(ctx context.Context, app string) ([]Tab, error) {
	return await(ctx, func() ([]Tab, error) {
		pages, err := c.pages()
		if err != nil {
			return nil, err
		}
		tabs := make([]Tab, 0, len(pages))
		for _, p := range pages {
			title, err := p.Title()
			if err != nil {
				slog.Debug("cdp: title failed", "url", p.URL(), "error", err)
			}
			tabs = append(tabs, Tab{
				Active:  evalBool(p, visibleExpr),
				URL:     p.URL(),
				Title:   title,
				Favicon: evalString(p, faviconExpr),
			})
		}
		return tabs, nil
	})
}

func (c *CDP) Content(ctx context.Context, app, format string) (string, error) {
	return await(ctx, func() (string, error) {
		pages, err := c.pages()
		if err != nil {
			return "", err
		}
		var target playwright.Page
		for _, p := range pages {
			if evalBool(p, focusedExpr) {
				target = p
				break
			}
			if target == nil && evalBool(p, visibleExpr) {
				target = p
			}
		}
		if target == nil {
			return "", fmt.Errorf("no visible page")
		}
		page, err := target.Content()
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", target.URL(), err)
		}
		return convertPage(page, format)
	})
}

func evalBool(p playwright.Page, expr string) bool {
	v, err := p.Evaluate(expr)
	if err != nil {
		return false
	}
	b, _ := v.(bool)
	return b
}

func evalString(p playwright.Page, expr string) string {
	v, err := p.Evaluate(expr)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// await runs fn and returns early if ctx ends first. playwright calls
// carry their own timeouts, so an abandoned fn still finishes.
func await[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
