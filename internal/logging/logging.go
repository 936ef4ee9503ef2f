package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Logger holds the per-invocation log destination.
// Every glimpse run writes to its own file under <home>/logs so a failed
// capture can be traced after the fact without polluting stdout.
type Logger struct {
	RunID   string
	LogPath string // empty when falling back to stderr

	file *os.File
}

// Setup installs a JSON slog handler writing to baseDir/logs/<date>-<runID>.log
// as the default logger. With verbose set, debug records are mirrored to stderr.
//
// If the log file cannot be created, a stderr text handler is installed instead
// and the error is returned alongside a usable Logger.
func Setup(baseDir string, verbose bool) (*Logger, error) {
	runID := uuid.New().String()

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	logDir := filepath.Join(baseDir, "logs")
	if err := os.MkdirAll(logDir, 0750); err != nil {
		return fallback(runID, level, fmt.Errorf("failed to create log directory: %w", err))
	}

	name := fmt.Sprintf("%s-%s.log", time.Now().Format("2006-01-02"), runID[:8])
	logPath := filepath.Join(logDir, name)
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fallback(runID, level, fmt.Errorf("failed to open log file: %w", err))
	}

	var w io.Writer = file
	if verbose {
		w = io.MultiWriter(file, os.Stderr)
	}

	// The file always gets debug records; verbose only adds the stderr mirror.
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(handler).With("run_id", runID))

	return &Logger{RunID: runID, LogPath: logPath, file: file}, nil
}

func fallback(runID string, level slog.Level, err error) (*Logger, error) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler).With("run_id", runID))
	slog.Warn("file logging unavailable, using stderr", "error", err)
	return &Logger{RunID: runID}, err
}

// Close flushes and closes the log file. Safe to call on a fallback logger.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Discard installs a logger that drops everything. Used by tests and by
// commands that must keep stderr clean.
func Discard() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
