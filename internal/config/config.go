package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Browser backends.
const (
	BackendAppleScript = "applescript"
	BackendCDP         = "cdp"
	BackendNone        = "none"
)

// Page content formats requested from the browser.
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatText     = "text"
)

// Environment variables that override file configuration.
const (
	EnvHome           = "GLIMPSE_HOME"
	EnvCaptureDir     = "GLIMPSE_CAPTURE_DIR"
	EnvScreenshotsDir = "GLIMPSE_SCREENSHOTS_DIR"
	EnvBrowserBackend = "GLIMPSE_BROWSER_BACKEND"
	EnvCDPEndpoint    = "GLIMPSE_CDP_ENDPOINT"
)

const defaultProviderTimeoutMS = 3000

// captureTypes are the keys accepted in Validation.
var captureTypes = map[string]bool{"screenshot": true, "clipboard": true, "selection": true}

// Config holds application configuration.
type Config struct {
	// CaptureDir is where capture records (and screenshots taken by glimpse) are written.
	CaptureDir string `json:"capture_dir,omitempty" yaml:"capture_dir,omitempty"`

	// ScreenshotsDir is the directory watched for externally produced screenshots.
	// Records referring to images under it are promoted on amendment, never edited in place.
	ScreenshotsDir string `json:"screenshots_dir,omitempty" yaml:"screenshots_dir,omitempty"`

	// SupportedBrowsers are app names whose tabs are queried.
	// A non-empty overlay replaces the defaults.
	SupportedBrowsers []string `json:"supported_browsers,omitempty" yaml:"supported_browsers,omitempty"`

	// DeniedURLPatterns are glob patterns (gobwas/glob syntax) for URLs that are never recorded.
	// Merged with the defaults.
	DeniedURLPatterns []string `json:"denied_url_patterns,omitempty" yaml:"denied_url_patterns,omitempty"`

	// ImagePatterns select image files in ScreenshotsDir, matched against the lowercased file name.
	ImagePatterns []string `json:"image_patterns,omitempty" yaml:"image_patterns,omitempty"`

	// ContentFormat is the page content format requested from the browser: markdown|html|text.
	ContentFormat string `json:"content_format,omitempty" yaml:"content_format,omitempty"`

	// ContentMaxChars truncates activeViewContent (runes). 0 means unlimited.
	ContentMaxChars int `json:"content_max_chars,omitempty" yaml:"content_max_chars,omitempty"`

	// Validation maps a capture type to an expr rule evaluated against the payload.
	// The rule returns true, false, or a string (the failure message).
	// Conditions must be bool: hasText ? true : "No text in clipboard".
	Validation map[string]string `json:"validation,omitempty" yaml:"validation,omitempty"`

	// BrowserBackend selects how tabs are enumerated: applescript|cdp|none.
	BrowserBackend string `json:"browser_backend,omitempty" yaml:"browser_backend,omitempty"`

	// CDPEndpoint is the DevTools endpoint used by the cdp backend (e.g. http://localhost:9222).
	CDPEndpoint string `json:"cdp_endpoint,omitempty" yaml:"cdp_endpoint,omitempty"`

	// ProviderTimeoutMS bounds each individual provider call.
	ProviderTimeoutMS int `json:"provider_timeout_ms,omitempty" yaml:"provider_timeout_ms,omitempty"`

	// Notify enables OS notifications on capture success/failure.
	Notify bool `json:"notify,omitempty" yaml:"notify,omitempty"`

	// AllowedPaths is an allowlist of directories for export destinations.
	// Paths outside <home>/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty" yaml:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for export.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty" yaml:"allow_unsafe_paths,omitempty"`
}

// DefaultConfig returns the default configuration.
// Directories are returned unexpanded; Load expands them.
func DefaultConfig() *Config {
	return &Config{
		CaptureDir:        "~/Downloads/glimpse-captures",
		ScreenshotsDir:    "~/Desktop/Screenshots",
		SupportedBrowsers: []string{"Arc", "Brave", "Chrome", "Safari", "Firefox", "Orion"},
		DeniedURLPatterns: []string{
			"mailto:*",
			"tel:*",
			"data:*",
			"javascript:*",
			"file:*",
			"about:*",
			"chrome://*",
			"chrome-extension://*",
			"edge://*",
			"brave://*",
			"arc://*",
			"orion://*",
			"safari-resource:*",
			"favorites://*",
			"moz-extension://*",
		},
		ImagePatterns:     []string{"*.png", "*.gif", "*.mp4", "*.jpg", "*.jpeg", "*.webp", "*.heic"},
		ContentFormat:     FormatMarkdown,
		BrowserBackend:    BackendAppleScript,
		ProviderTimeoutMS: defaultProviderTimeoutMS,
	}
}

// Home returns the glimpse base directory: $GLIMPSE_HOME, else ~/.glimpse.
func Home() (string, error) {
	if h := strings.TrimSpace(os.Getenv(EnvHome)); h != "" {
		return ExpandHome(h)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".glimpse"), nil
}

// Load loads configuration from baseDir.
// Precedence (lowest first): defaults, config.yaml or config.json (JSON wins when both
// exist), baseDir/.env, process environment.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.glimpse.
func Load(baseDir string) (*Config, error) {
	fileCfg, err := loadFileRaw(baseDir)
	if err != nil {
		return nil, err
	}

	cfg := Merge(DefaultConfig(), fileCfg)

	env, err := loadEnv(filepath.Join(baseDir, ".env"))
	if err != nil {
		return nil, err
	}
	if err := applyEnv(cfg, env); err != nil {
		return nil, err
	}

	if cfg.CaptureDir, err = ExpandHome(cfg.CaptureDir); err != nil {
		return nil, err
	}
	if cfg.ScreenshotsDir, err = ExpandHome(cfg.ScreenshotsDir); err != nil {
		return nil, err
	}
	for i, p := range cfg.AllowedPaths {
		if cfg.AllowedPaths[i], err = ExpandHome(p); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFileRaw loads configuration from baseDir/config.json, falling back to config.yaml.
// Returns zero-valued config if neither exists (not defaults).
func loadFileRaw(baseDir string) (*Config, error) {
	jsonPath := filepath.Join(baseDir, "config.json")
	data, err := os.ReadFile(jsonPath)
	if err == nil {
		cfg := &Config{}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", jsonPath, err)
		}
		return cfg, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	for _, name := range []string{"config.yaml", "config.yml"} {
		yamlPath := filepath.Join(baseDir, name)
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		cfg := &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", yamlPath, err)
		}
		return cfg, nil
	}

	return &Config{}, nil
}

// loadEnv reads a dotenv file without touching the process environment.
// A missing file yields an empty map.
func loadEnv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return env, nil
}

// applyEnv overlays GLIMPSE_* variables. Process environment beats the dotenv file.
func applyEnv(cfg *Config, dotenv map[string]string) error {
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(dotenv[key])
	}

	if v := lookup(EnvCaptureDir); v != "" {
		cfg.CaptureDir = v
	}
	if v := lookup(EnvScreenshotsDir); v != "" {
		cfg.ScreenshotsDir = v
	}
	if v := lookup(EnvBrowserBackend); v != "" {
		cfg.BrowserBackend = strings.ToLower(v)
	}
	if v := lookup(EnvCDPEndpoint); v != "" {
		cfg.CDPEndpoint = v
	}
	if v := lookup("GLIMPSE_PROVIDER_TIMEOUT_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GLIMPSE_PROVIDER_TIMEOUT_MS: %w", err)
		}
		cfg.ProviderTimeoutMS = ms
	}
	return nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars. SupportedBrowsers and ImagePatterns are
// replaced by a non-empty overlay; the remaining arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.CaptureDir = firstNonEmpty(overlay.CaptureDir, base.CaptureDir)
	result.ScreenshotsDir = firstNonEmpty(overlay.ScreenshotsDir, base.ScreenshotsDir)
	result.ContentFormat = firstNonEmpty(overlay.ContentFormat, base.ContentFormat)
	result.BrowserBackend = firstNonEmpty(overlay.BrowserBackend, base.BrowserBackend)
	result.CDPEndpoint = firstNonEmpty(overlay.CDPEndpoint, base.CDPEndpoint)

	result.ContentMaxChars = overlay.ContentMaxChars
	if result.ContentMaxChars == 0 {
		result.ContentMaxChars = base.ContentMaxChars
	}

	result.ProviderTimeoutMS = overlay.ProviderTimeoutMS
	if result.ProviderTimeoutMS == 0 {
		result.ProviderTimeoutMS = base.ProviderTimeoutMS
	}

	// Booleans: overlay wins if true, else base
	result.Notify = base.Notify || overlay.Notify
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Replacing arrays
	result.SupportedBrowsers = mergeStringSlice(nil, base.SupportedBrowsers)
	if len(overlay.SupportedBrowsers) > 0 {
		result.SupportedBrowsers = mergeStringSlice(nil, overlay.SupportedBrowsers)
	}
	result.ImagePatterns = mergeStringSlice(nil, base.ImagePatterns)
	if len(overlay.ImagePatterns) > 0 {
		result.ImagePatterns = mergeStringSlice(nil, overlay.ImagePatterns)
	}

	// Arrays: merge and deduplicate
	result.DeniedURLPatterns = mergeStringSlice(base.DeniedURLPatterns, overlay.DeniedURLPatterns)
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)

	// Maps: per-key overlay
	if len(base.Validation) > 0 || len(overlay.Validation) > 0 {
		result.Validation = make(map[string]string, len(base.Validation)+len(overlay.Validation))
		for k, v := range base.Validation {
			result.Validation[k] = v
		}
		for k, v := range overlay.Validation {
			result.Validation[k] = v
		}
	}

	return result
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if !filepath.IsAbs(c.CaptureDir) {
		return fmt.Errorf("capture_dir must be an absolute path: %q", c.CaptureDir)
	}
	if !filepath.IsAbs(c.ScreenshotsDir) {
		return fmt.Errorf("screenshots_dir must be an absolute path: %q", c.ScreenshotsDir)
	}

	switch c.ContentFormat {
	case FormatMarkdown, FormatHTML, FormatText:
	default:
		return fmt.Errorf("content_format must be one of markdown|html|text, got %q", c.ContentFormat)
	}

	switch c.BrowserBackend {
	case BackendAppleScript, BackendNone:
	case BackendCDP:
		if c.CDPEndpoint == "" {
			return fmt.Errorf("cdp_endpoint is required when browser_backend is %q", BackendCDP)
		}
	default:
		return fmt.Errorf("browser_backend must be one of applescript|cdp|none, got %q", c.BrowserBackend)
	}

	if c.ContentMaxChars < 0 {
		return fmt.Errorf("content_max_chars must be non-negative")
	}
	if c.ProviderTimeoutMS < 0 {
		return fmt.Errorf("provider_timeout_ms must be non-negative")
	}

	for _, p := range append(append([]string{}, c.DeniedURLPatterns...), c.ImagePatterns...) {
		if _, err := glob.Compile(p); err != nil {
			return fmt.Errorf("invalid pattern %q: %w", p, err)
		}
	}

	for k := range c.Validation {
		if !captureTypes[k] {
			return fmt.Errorf("validation: unknown capture type %q", k)
		}
	}

	return nil
}

// ProviderTimeout returns the per-call provider timeout.
func (c *Config) ProviderTimeout() time.Duration {
	if c.ProviderTimeoutMS <= 0 {
		return defaultProviderTimeoutMS * time.Millisecond
	}
	return time.Duration(c.ProviderTimeoutMS) * time.Millisecond
}

// IsSupportedBrowser reports whether app names a configured browser.
// Matching is case-insensitive, either on the whole name or on one of its words,
// so "Google Chrome" matches "Chrome" and "Brave Browser" matches "Brave".
func (c *Config) IsSupportedBrowser(app string) bool {
	app = strings.TrimSpace(app)
	if app == "" {
		return false
	}
	words := strings.Fields(app)
	for _, b := range c.SupportedBrowsers {
		if strings.EqualFold(app, b) {
			return true
		}
		for _, w := range words {
			if strings.EqualFold(w, b) {
				return true
			}
		}
	}
	return false
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	if path == "~" {
		return homeDir, nil
	}
	return filepath.Join(homeDir, path[2:]), nil
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
