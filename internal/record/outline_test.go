package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOutline(t *testing.T) {
	md := "# Release notes\n\nGo 1.25 brings *several* improvements\nacross the toolchain.\n\n## Runtime\n\nText.\n\n```\n# not a heading\n```\n\n### `go vet` changes\n"

	out := BuildOutline(md)

	require.Len(t, out.Headings, 3)
	assert.Equal(t, Heading{Level: 1, Text: "Release notes"}, out.Headings[0])
	assert.Equal(t, Heading{Level: 2, Text: "Runtime"}, out.Headings[1])
	assert.Equal(t, Heading{Level: 3, Text: "go vet changes"}, out.Headings[2])
	assert.Equal(t, "Go 1.25 brings several improvements across the toolchain.", out.Excerpt)
}

func TestBuildOutline_Empty(t *testing.T) {
	out := BuildOutline("   ")
	assert.Empty(t, out.Headings)
	assert.Empty(t, out.Excerpt)
}

func TestBuildOutline_PlainText(t *testing.T) {
	out := BuildOutline("just some words")
	assert.Empty(t, out.Headings)
	assert.Equal(t, "just some words", out.Excerpt)
}
