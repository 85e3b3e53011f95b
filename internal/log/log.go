// Package log provides centralized operational logging using charmbracelet/log.
package log

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Logger is the global logger instance.
var Logger *log.Logger

func init() {
	Logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: true,
		Level:           log.InfoLevel,
		Prefix:          "agroplan",
	})
}

// SetOutput redirects log output, e.g. through the terminal writer in serve mode.
func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// SetVerbose switches between info and debug level.
func SetVerbose(verbose bool) {
	if verbose {
		Logger.SetLevel(log.DebugLevel)
		return
	}
	Logger.SetLevel(log.InfoLevel)
}

// Debug logs a debug message.
func Debug(msg interface{}, keyvals ...interface{}) {
	Logger.Debug(msg, keyvals...)
}

// Info logs an info message.
func Info(msg interface{}, keyvals ...interface{}) {
	Logger.Info(msg, keyvals...)
}

// Warn logs a warning message.
func Warn(msg interface{}, keyvals ...interface{}) {
	Logger.Warn(msg, keyvals...)
}

// Error logs an error message.
func Error(msg interface{}, keyvals ...interface{}) {
	Logger.Error(msg, keyvals...)
}

// CloseError logs an error from a close operation if the error is not nil.
func CloseError(resource string, err error) {
	if err != nil {
		Logger.Warn("failed to close resource", "resource", resource, "error", err)
	}
}
