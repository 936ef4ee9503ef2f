package provider

import (
	"context"

	"github.com/atotto/clipboard"
)

// Clipboard reads the system pasteboard.
type Clipboard struct{}

func (Clipboard) ReadText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return clipboard.ReadAll()
}

// WriteText replaces the pasteboard contents.
func (Clipboard) WriteText(text string) error {
	return clipboard.WriteAll(text)
}
