package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/glimpse/internal/config"
)

// fakeRunner answers scripts by the first matching substring.
type fakeRunner struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	scripts []string
}

func (f *fakeRunner) Run(ctx context.Context, script string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts = append(f.scripts, script)
	for key, err := range f.errs {
		if strings.Contains(script, key) {
			return "", err
		}
	}
	for key, out := range f.replies {
		if strings.Contains(script, key) {
			return out, nil
		}
	}
	return "", errors.New("unexpected script")
}

func TestEscapeAppleScript(t *testing.T) {
	assert.Equal(t, `say \"hi\" C:\\tmp`, escapeAppleScript(`say "hi" C:\tmp`))
	assert.Equal(t, "plain", escapeAppleScript("plain"))
}

func TestForeground(t *testing.T) {
	r := &fakeRunner{replies: map[string]string{"System Events": "Google Chrome|||com.google.Chrome|||Docs - Google Chrome"}}
	app, err := (&Foreground{Runner: r}).Frontmost(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &ForegroundApp{Name: "Google Chrome", BundleID: "com.google.Chrome", WindowTitle: "Docs - Google Chrome"}, app)

	r = &fakeRunner{replies: map[string]string{"System Events": "Finder|||com.apple.finder"}}
	app, err = (&Foreground{Runner: r}).Frontmost(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", app.WindowTitle)

	r = &fakeRunner{replies: map[string]string{"System Events": ""}}
	_, err = (&Foreground{Runner: r}).Frontmost(context.Background())
	assert.Error(t, err)
}

func TestAppleScriptTabs_Chromium(t *testing.T) {
	out := "true|||https://a.example/|||A\n" +
		"false|||https://b.example/|||B ||| with separator\n" +
		"false|||missing value|||\n" +
		"\n" +
		"true|||https://c.example/|||C\n"
	r := &fakeRunner{replies: map[string]string{"active tab index": out}}
	tabs, err := (&AppleScriptTabs{Runner: r}).Tabs(context.Background(), "Brave Browser")
	require.NoError(t, err)

	require.Len(t, tabs, 3)
	assert.Equal(t, Tab{Active: true, URL: "https://a.example/", Title: "A"}, tabs[0])
	assert.Equal(t, "B ||| with separator", tabs[1].Title)
	assert.False(t, tabs[1].Active)
	assert.True(t, tabs[2].Active)
	assert.Contains(t, r.scripts[0], `tell application "Brave Browser"`)
}

func TestAppleScriptTabs_SafariFamily(t *testing.T) {
	r := &fakeRunner{replies: map[string]string{
		"current tab of w":                    "true|||https://apple.com/|||Apple",
		"name of current tab of front window": "Apple",
	}}
	tabs, err := (&AppleScriptTabs{Runner: r}).Tabs(context.Background(), "Orion")
	require.NoError(t, err)
	require.Len(t, tabs, 1)

	title, err := (&AppleScriptTabs{Runner: r}).FrontTabTitle(context.Background(), "Safari")
	require.NoError(t, err)
	assert.Equal(t, "Apple", title)
}

func TestAppleScriptTabs_Firefox(t *testing.T) {
	a := &AppleScriptTabs{Runner: &fakeRunner{}}
	_, err := a.Tabs(context.Background(), "Firefox")
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = a.Content(context.Background(), "Firefox", config.FormatMarkdown)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestAppleScriptTabs_Content(t *testing.T) {
	page := `<html><head><title>T</title></head><body><h2>Hello</h2><p>world</p></body></html>`
	r := &fakeRunner{replies: map[string]string{"execute active tab": page}}
	a := &AppleScriptTabs{Runner: r}

	md, err := a.Content(context.Background(), "Arc", config.FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "## Hello\n\nworld", md)

	raw, err := a.Content(context.Background(), "Arc", config.FormatHTML)
	require.NoError(t, err)
	assert.Equal(t, page, raw)

	text, err := a.Content(context.Background(), "Arc", config.FormatText)
	require.NoError(t, err)
	assert.Equal(t, "Hello\n\nworld", text)

	assert.Contains(t, r.scripts[0], `javascript "document.documentElement.outerHTML"`)
}

func TestAppleScriptTabs_RunnerError(t *testing.T) {
	r := &fakeRunner{errs: map[string]error{"tell application": errors.New("not running")}}
	_, err := (&AppleScriptTabs{Runner: r}).Tabs(context.Background(), "Google Chrome")
	assert.Error(t, err)
}

type memClipboard struct {
	mu   sync.Mutex
	text string
	// onCopy simulates the app answering Cmd+C.
	onCopy func() string
	// readErr fails the first read, as pbpaste does for some pasteboards.
	readErr error
	writes  []string
}

func (m *memClipboard) ReadText(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.readErr; err != nil {
		m.readErr = nil
		return "", err
	}
	return m.text, nil
}

func (m *memClipboard) WriteText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	m.writes = append(m.writes, text)
	return nil
}

type copyRunner struct{ clip *memClipboard }

func (c copyRunner) Run(ctx context.Context, script string) (string, error) {
	if c.clip.onCopy != nil {
		c.clip.mu.Lock()
		c.clip.text = c.clip.onCopy()
		c.clip.mu.Unlock()
	}
	return "", nil
}

func TestSelection_CopiesAndRestores(t *testing.T) {
	clip := &memClipboard{text: "previous", onCopy: func() string { return "selected words" }}
	s := &Selection{Runner: copyRunner{clip}, Clipboard: clip}

	text, err := s.SelectedText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "selected words", text)
	assert.Equal(t, "previous", clip.text)
}

func TestSelection_NothingSelected(t *testing.T) {
	clip := &memClipboard{text: "previous"}
	s := &Selection{Runner: copyRunner{clip}, Clipboard: clip}

	_, err := s.SelectedText(context.Background())
	assert.ErrorIs(t, err, ErrNoSelection)
	assert.Equal(t, "previous", clip.text)
}

func TestSelection_NonTextClipboardIsNeverWritten(t *testing.T) {
	tests := []struct {
		name    string
		readErr error
	}{
		{"empty text", nil},
		{"read error", errors.New("pbpaste failed")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clip := &memClipboard{readErr: tt.readErr, onCopy: func() string { return "selected words" }}
			s := &Selection{Runner: copyRunner{clip}, Clipboard: clip}

			text, err := s.SelectedText(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "selected words", text)
			assert.Empty(t, clip.writes, "clipboard without text must not be written")
		})
	}
}

func TestSelection_NonTextClipboardNothingSelected(t *testing.T) {
	clip := &memClipboard{}
	s := &Selection{Runner: copyRunner{clip}, Clipboard: clip}

	_, err := s.SelectedText(context.Background())
	assert.ErrorIs(t, err, ErrNoSelection)
	assert.Empty(t, clip.writes)
}

func TestSelection_RestoreSkipsNewerCopy(t *testing.T) {
	clip := &memClipboard{text: "copied later by the user"}
	s := &Selection{Clipboard: clip}

	s.restore("previous", "sentinel", "selected words")
	assert.Equal(t, "copied later by the user", clip.text)
	assert.Empty(t, clip.writes)

	clip.text = "selected words"
	s.restore("previous", "sentinel", "selected words")
	assert.Equal(t, "previous", clip.text)
}

func TestScreenCapture_MissingFileIsNoImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shots", "x.png")
	s := &ScreenCapture{Command: "true"}

	err := s.Capture(context.Background(), path, ModeRegion)
	assert.ErrorIs(t, err, ErrNoImage)

	_, statErr := os.Stat(filepath.Dir(path))
	assert.NoError(t, statErr)
}

func TestOSANotifier(t *testing.T) {
	r := &fakeRunner{replies: map[string]string{"display notification": ""}}
	(&OSANotifier{Runner: r}).Notify(`Saved "x"`, "ok")
	require.Len(t, r.scripts, 1)
	assert.Equal(t, `display notification "ok" with title "Saved \"x\""`, r.scripts[0])
}

func TestDefault(t *testing.T) {
	cfg := config.DefaultConfig()
	set := Default(cfg)
	assert.IsType(t, &AppleScriptTabs{}, set.Tabs)
	assert.NotNil(t, set.TabTitle)
	assert.IsType(t, NopNotifier{}, set.Notifier)

	cfg.BrowserBackend = config.BackendCDP
	cfg.CDPEndpoint = "http://localhost:9222"
	cfg.Notify = true
	set = Default(cfg)
	assert.IsType(t, &CDP{}, set.Tabs)
	assert.Nil(t, set.TabTitle)
	assert.IsType(t, &OSANotifier{}, set.Notifier)
	assert.NoError(t, set.Close())

	cfg.BrowserBackend = config.BackendNone
	set = Default(cfg)
	assert.Nil(t, set.Tabs)
}
