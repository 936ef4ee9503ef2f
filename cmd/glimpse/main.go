package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/glimpse/internal/config"
	"github.com/hpungsan/glimpse/internal/logging"
	"github.com/hpungsan/glimpse/internal/ops"
	"github.com/hpungsan/glimpse/internal/provider"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdout is a terminal (not piped).
func isTerminal() bool {
	stat, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
        _ _
   __ _| (_)_ __ ___  _ __  ___  ___
  / _' | | | '_ ' _ \| '_ \/ __|/ _ \
 | (_| | | | | | | | | |_) \__ \  __/
  \__, |_|_|_| |_| |_| .__/|___/\___|
  |___/              |_|

  Desktop and browser context capture

  Usage: glimpse <command> [options]
         glimpse --help`)
}

// exitCode maps an error returned by the app to a process status.
func exitCode(err error) int {
	if ec, ok := err.(cli.ExitCoder); ok && ec.ExitCode() != 0 {
		return ec.ExitCode()
	}
	return 1
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(exitCode(err))
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before loading config
	if isHelpOrVersion() {
		if err := newCLIApp(nil).Run(os.Args); err != nil {
			fail(err)
		}
		return
	}

	home, err := config.Home()
	if err != nil {
		fail(err)
	}

	cfg, err := config.Load(home)
	if err != nil {
		fail(fmt.Errorf("failed to load config: %w", err))
	}

	providers := provider.Default(cfg)
	defer providers.Close()

	app := newCLIApp(ops.NewDeps(cfg, providers, home))
	var logger *logging.Logger
	app.Before = func(c *cli.Context) error {
		// A logger that fell back to stderr is still usable.
		logger, _ = logging.Setup(home, c.Bool("verbose"))
		return nil
	}
	app.After = func(*cli.Context) error {
		return logger.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		stop()
		providers.Close()
		fail(err)
	}
}
