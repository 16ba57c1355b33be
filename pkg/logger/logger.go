package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog logger behind the printf-style API used
// throughout the codebase.
type Logger struct {
	zl zerolog.Logger
}

func New() *Logger {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return &Logger{
		zl: zerolog.New(out).With().Timestamp().Logger(),
	}
}

// SetLevel adjusts the minimum level: debug, info, warn or error.
// Unknown values fall back to info.
func (l *Logger) SetLevel(level string) {
	l.zl = l.zl.Level(parseLevel(level))
}

// SetPretty switches between the console writer and raw JSON output.
func (l *Logger) SetPretty(pretty bool) {
	if pretty {
		l.zl = l.zl.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		l.zl = l.zl.Output(os.Stderr)
	}
}

func (l *Logger) Info(format string, v ...interface{}) {
	l.zl.Info().Msgf(format, v...)
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.zl.Error().Msgf(format, v...)
}

func (l *Logger) Debug(format string, v ...interface{}) {
	l.zl.Debug().Msgf(format, v...)
}

func (l *Logger) Fatal(format string, v ...interface{}) {
	l.zl.Error().Msgf(format, v...)
	os.Exit(1)
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Global logger instance
var GlobalLogger = New()

// Configure applies level and output format to the global logger.
func Configure(level string, pretty bool) {
	GlobalLogger.SetPretty(pretty)
	GlobalLogger.SetLevel(level)
}

// Convenience functions
func Info(format string, v ...interface{}) {
	GlobalLogger.Info(format, v...)
}

func Error(format string, v ...interface{}) {
	GlobalLogger.Error(format, v...)
}

func Debug(format string, v ...interface{}) {
	GlobalLogger.Debug(format, v...)
}

func Fatal(format string, v ...interface{}) {
	GlobalLogger.Fatal(format, v...)
}
