package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Canonical(t *testing.T) {
	data := []byte(`{
		"schemaVersion": 2,
		"id": "01HQ",
		"type": "clipboard",
		"timestamp": "2024-05-01T10:00:00.000Z",
		"selectedText": "hello",
		"screenshotPath": null,
		"activeViewContent": null,
		"app": "Safari",
		"bundleId": "com.apple.Safari",
		"window": "Docs",
		"url": "https://example.com",
		"title": "Example",
		"favicon": null,
		"tags": ["a", " b ", "A"]
	}`)

	r, err := Decode(data)
	require.NoError(t, err)
	require.NoError(t, r.Validate())

	assert.False(t, r.IsLegacy())
	assert.Equal(t, TypeClipboard, r.Type)
	assert.Equal(t, "hello", Deref(r.SelectedText))
	assert.Equal(t, "Safari", Deref(r.App))
	assert.Equal(t, "https://example.com", Deref(r.URL))
	assert.Nil(t, r.Favicon)
	assert.Nil(t, r.Comment)
	assert.Equal(t, []string{"a", "b"}, r.Tags)
}

func TestDecode_FirstGeneration(t *testing.T) {
	data := []byte(`{
		"id": "old-1",
		"type": "Screenshot",
		"timestamp": "2023-01-02T03:04:05.678Z",
		"screenshotPath": "file:///tmp/shot.png",
		"activeAppName": "Google Chrome",
		"activeAppBundleId": "com.google.Chrome",
		"activeURL": "https://go.dev",
		"clipboardText": "copied",
		"frontAppName": "Finder",
		"browserTabHTML": "# Go"
	}`)

	r, err := Decode(data)
	require.NoError(t, err)
	require.NoError(t, r.Validate())

	assert.True(t, r.IsLegacy())
	assert.Equal(t, TypeScreenshot, r.Type)
	assert.Equal(t, "Google Chrome", Deref(r.App))
	assert.Equal(t, "com.google.Chrome", Deref(r.BundleID))
	assert.Equal(t, "https://go.dev", Deref(r.URL))
	assert.Equal(t, "copied", Deref(r.SelectedText))
	assert.Equal(t, "# Go", Deref(r.ActiveViewContent))
	assert.Equal(t, "/tmp/shot.png", r.ScreenshotFile())
}

func TestDecode_SecondGeneration(t *testing.T) {
	data := []byte(`{
		"id": "old-2",
		"type": "selection",
		"timestamp": "2023-06-01T00:00:00.000Z",
		"content": "selected words",
		"screenshotUrl": "file:///tmp/s.png",
		"pageContent": "page",
		"windowTitle": "Editor",
		"pageTitle": "A page"
	}`)

	r, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, "selected words", Deref(r.SelectedText))
	assert.Equal(t, "file:///tmp/s.png", Deref(r.ScreenshotPath))
	assert.Equal(t, "page", Deref(r.ActiveViewContent))
	assert.Equal(t, "Editor", Deref(r.Window))
	assert.Equal(t, "A page", Deref(r.Title))
}

func TestDecode_CanonicalWinsOverLegacy(t *testing.T) {
	data := []byte(`{"id":"x","type":"clipboard","timestamp":"2024-01-01T00:00:00.000Z","app":"Arc","activeAppName":"Chrome"}`)

	r, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "Arc", Deref(r.App))
}

func TestDecode_LegacyWithoutIDIsCorrupt(t *testing.T) {
	data := []byte(`{"timestamp":"2023-01-02T03:04:05.678Z","activeAppName":"Finder"}`)

	r, err := Decode(data)
	require.NoError(t, err)
	assert.Error(t, r.Validate())
}

func TestDecode_InvalidJSON(t *testing.T) {
	_, err := Decode([]byte(`{"id":`))
	assert.Error(t, err)
}
