// Package logging provides the structured logger used throughout the
// proxy and replay engine, built on zerolog.
package logging

import (
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	defaultLogger zerolog.Logger
	once          sync.Once
)

// Default returns the process-wide logger instance.
func Default() zerolog.Logger {
	once.Do(func() {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		defaultLogger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
			With().
			Timestamp().
			Logger()
	})
	return defaultLogger
}

// SetLevelFromString sets the minimum log level from a string (debug, info, warn, error).
func SetLevelFromString(levelStr string) {
	level, err := zerolog.ParseLevel(strings.ToLower(levelStr))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// With returns a child logger tagged with a component name, mirroring the
// `log.Logger.With().Str(...).Logger()` pattern the example pack's zerolog
// consumers use.
func With(component string) zerolog.Logger {
	return Default().With().Str("component", component).Logger()
}

// Debug logs a debug message to the default logger.
func Debug(format string, args ...interface{}) {
	Default().Debug().Msgf(format, args...)
}

// Info logs an info message to the default logger.
func Info(format string, args ...interface{}) {
	Default().Info().Msgf(format, args...)
}

// Warn logs a warning message to the default logger.
func Warn(format string, args ...interface{}) {
	Default().Warn().Msgf(format, args...)
}

// Error logs an error message to the default logger.
func Error(format string, args ...interface{}) {
	Default().Error().Msgf(format, args...)
}
