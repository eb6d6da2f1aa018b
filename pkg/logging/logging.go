// Package logging configures the process-wide zerolog logger.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/eunmann/athena-summary/internal/logctx"
)

var logger *zerolog.Logger

func init() {
	// Default to JSON logging at info level
	l := zerolog.New(os.Stderr).With().Timestamp().Logger()
	logger = &l
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// Init configures the global logger and installs it as the context
// fallback logger.
// If debug is true, sets log level to Debug.
// If human is true, uses a human-friendly console writer.
func Init(debug bool, human bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	var output zerolog.LevelWriter
	if human {
		output = zerolog.LevelWriterAdapter{Writer: zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}}
	} else {
		output = zerolog.LevelWriterAdapter{Writer: os.Stderr}
	}

	SetLogger(zerolog.New(output).With().Timestamp().Str("service", "athena-summary").Logger())
}

// L returns the base logger.
func L() *zerolog.Logger {
	return logger
}

// WithStage returns a logger with the stage field set.
func WithStage(stage string) zerolog.Logger {
	return logger.With().Str("stage", stage).Logger()
}

// SetLogger overrides the global logger (useful for testing).
func SetLogger(l zerolog.Logger) {
	logger = &l
	logctx.SetDefaultLogger(l)
}
