// Package logging provides the driver's own operational logger: a thin
// slog wrapper (named and shaped after the teacher's daemonLogger) whose
// file sink rotates via lumberjack. This is distinct from a run's
// runs/<ts>/output artifact, which is a plain, non-rotating file written
// once per invocation.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the driver's structured logger.
type Logger struct {
	slog *slog.Logger
}

// New builds a Logger that writes to both stderr and a rotating file under
// walkDir/.walk/driver.log.
func New(walkDir string) (*Logger, error) {
	logDir := filepath.Join(walkDir, ".walk")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "driver.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
	}
	w := io.MultiWriter(os.Stderr, rotator)
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	return &Logger{slog: slog.New(handler)}, nil
}

// NewDiscard builds a Logger that writes nowhere, for tests.
func NewDiscard() *Logger {
	return &Logger{slog: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func (l *Logger) Info(msg string, kv ...any)  { l.slog.Info(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.slog.Warn(msg, kv...) }
func (l *Logger) Error(msg string, kv ...any) { l.slog.Error(msg, kv...) }

// Slog exposes the underlying *slog.Logger for components (like
// internal/store) that accept one directly.
func (l *Logger) Slog() *slog.Logger { return l.slog }
