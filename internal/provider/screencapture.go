package provider

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// ScreenCapture shells out to macOS screencapture(1).
type ScreenCapture struct {
	// Command overrides the binary, for tests.
	Command string
}

func (s *ScreenCapture) Capture(ctx context.Context, path string, mode ScreenshotMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	name := s.Command
	if name == "" {
		name = "screencapture"
	}
	args := []string{"-x"}
	if mode == ModeRegion {
		args = append(args, "-i")
	}
	args = append(args, path)

	// screencapture exits 0 when region selection is cancelled, so the
	// file check below is what detects cancellation.
	if out, err := exec.CommandContext(ctx, name, args...).CombinedOutput(); err != nil {
		return fmt.Errorf("screencapture failed: %s: %w", out, err)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return ErrNoImage
	}
	return nil
}
