package provider

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// fieldSep separates values in multi-field AppleScript results.
const fieldSep = "|||"

// Runner executes an AppleScript and returns its trimmed stdout.
type Runner interface {
	Run(ctx context.Context, script string) (string, error)
}

// ExecRunner runs scripts through osascript.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, script string) (string, error) {
	cmd := exec.CommandContext(ctx, "osascript", "-e", script)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("osascript: %w", err)
		}
		return "", fmt.Errorf("osascript: %s: %w", msg, err)
	}
	return strings.TrimRight(stdout.String(), "\r\n"), nil
}

func escapeAppleScript(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

// splitFields splits a fieldSep-joined result into exactly n trimmed parts.
func splitFields(s string, n int) []string {
	parts := strings.SplitN(s, fieldSep, n)
	for len(parts) < n {
		parts = append(parts, "")
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
