// Package logging provides structured logging for usagesync using zerolog.
// Loggers are explicit values: the application builds one from configuration,
// passes it to the reconciler for the lifetime of a run, and commands carry it
// in a context. There is no process-wide default logger.
//
// Example usage:
//
//	log := logging.NewLoggerFromConfig(&logging.Config{Level: "debug", Format: "console"})
//	log.Info().Str("machine_id", "mac-1").Int("sessions", 12).Msg("Loaded export")
//
//	ctx := logging.WithLogger(context.Background(), &log)
//	logging.FromContext(ctx).Debug().Msg("Using logger from context")
package logging

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// New creates a new JSON logger writing to w at the given level.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// NewConsole creates a new console logger for human-readable output.
func NewConsole(w io.Writer, level zerolog.Level, noColor bool) zerolog.Logger {
	writer := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	}
	return New(writer, level)
}

// Nop returns a pointer to a logger that discards everything.
func Nop() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
