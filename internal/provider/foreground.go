package provider

import (
	"context"
	"fmt"
)

const foregroundScript = `
tell application "System Events"
	set frontProc to first application process whose frontmost is true
	set appName to name of frontProc
	set bundleID to ""
	try
		set bundleID to bundle identifier of frontProc
	end try
	set winTitle to ""
	try
		set winTitle to name of front window of frontProc
	end try
	return appName & "|||" & bundleID & "|||" & winTitle
end tell`

// Foreground queries System Events for the frontmost process.
type Foreground struct {
	Runner Runner
}

func (f *Foreground) Frontmost(ctx context.Context) (*ForegroundApp, error) {
	out, err := f.Runner.Run(ctx, foregroundScript)
	if err != nil {
		return nil, fmt.Errorf("failed to query frontmost app: %w", err)
	}
	parts := splitFields(out, 3)
	if parts[0] == "" {
		return nil, fmt.Errorf("frontmost app has no name")
	}
	return &ForegroundApp{Name: parts[0], BundleID: parts[1], WindowTitle: parts[2]}, nil
}
