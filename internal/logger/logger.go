// Package logger provides the process-wide leveled logger.
// Every pipeline stage logs through here so a single --log-level flag
// controls the verbosity of ingestion, retrieval and the chat server.
package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	mu  sync.RWMutex
	std = newLogger(os.Stderr, log.InfoLevel)
)

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Prefix:          "ragchat",
		Level:           level,
	})
}

// SetLevel sets the minimum level by name ("debug", "info", "warn", "error").
func SetLevel(name string) error {
	level, err := log.ParseLevel(name)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	std.SetLevel(level)
	return nil
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	std = newLogger(w, std.GetLevel())
}

// L returns the underlying logger for callers that want With(...) sub-loggers.
func L() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return std
}

func Debug(msg string, keyvals ...any) {
	L().Debug(msg, keyvals...)
}

func Info(msg string, keyvals ...any) {
	L().Info(msg, keyvals...)
}

func Warn(msg string, keyvals ...any) {
	L().Warn(msg, keyvals...)
}

func Error(msg string, keyvals ...any) {
	L().Error(msg, keyvals...)
}
