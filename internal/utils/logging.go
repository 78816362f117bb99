package utils

import (
	"io"
	"log/slog"
	"os"

	"github.com/pterm/pterm"
	"github.com/soniditos/soniditos-desktop/internal/config"
)

// LogLevel defines log level types
type LogLevel string

// Log level constants - using values from config package
const (
	LogLevelDebug LogLevel = LogLevel(config.LogLevelDebug)
	LogLevelInfo  LogLevel = LogLevel(config.LogLevelInfo)
	LogLevelWarn  LogLevel = LogLevel(config.LogLevelWarn)
	LogLevelError LogLevel = LogLevel(config.LogLevelError)
)

// LogFormat defines log format types
type LogFormat string

// Log format constants - using values from config package
const (
	LogFormatText   LogFormat = LogFormat(config.LogFormatText)
	LogFormatJSON   LogFormat = LogFormat(config.LogFormatJSON)
	LogFormatPretty LogFormat = LogFormat(config.LogFormatPretty)
)

// GetLogLevel converts a string log level to slog.Level
func GetLogLevel(level string) slog.Level {
	switch level {
	case string(LogLevelDebug):
		return slog.LevelDebug
	case string(LogLevelWarn):
		return slog.LevelWarn
	case string(LogLevelError):
		return slog.LevelError
	case string(LogLevelInfo):
		fallthrough
	default:
		return slog.LevelInfo
	}
}

// ValidateLogLevel ensures the provided level is valid, returning a default if not
func ValidateLogLevel(level string) string {
	switch level {
	case string(LogLevelDebug), string(LogLevelInfo), string(LogLevelWarn), string(LogLevelError):
		return level
	default:
		return string(LogLevelInfo)
	}
}

// ValidateLogFormat ensures the provided format is valid, returning a default if not
func ValidateLogFormat(format string) string {
	switch format {
	case string(LogFormatText), string(LogFormatJSON), string(LogFormatPretty):
		return format
	default:
		return string(LogFormatText)
	}
}

// ptermLevel maps a slog level onto the pterm logger levels
func ptermLevel(level slog.Level) pterm.LogLevel {
	switch {
	case level <= slog.LevelDebug:
		return pterm.LogLevelDebug
	case level <= slog.LevelInfo:
		return pterm.LogLevelInfo
	case level <= slog.LevelWarn:
		return pterm.LogLevelWarn
	default:
		return pterm.LogLevelError
	}
}

// NewHandler builds the slog handler for a validated level and format
func NewHandler(w io.Writer, level string, format string) slog.Handler {
	logLevel := GetLogLevel(ValidateLogLevel(level))

	switch ValidateLogFormat(format) {
	case string(LogFormatJSON):
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel, AddSource: true})
	case string(LogFormatPretty):
		logger := pterm.DefaultLogger.
			WithLevel(ptermLevel(logLevel)).
			WithWriter(w)
		return pterm.NewSlogHandler(logger)
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel, AddSource: true})
	}
}

// SetupLogger creates and returns a new logger writing to stderr
func SetupLogger(level string, format string) *slog.Logger {
	return slog.New(NewHandler(os.Stderr, level, format))
}

// SetupErrorLogger creates a simple text logger for reporting errors during startup.
func SetupErrorLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// SetAsDefaultLogger sets a logger as the default logger
func SetAsDefaultLogger(logger *slog.Logger) {
	slog.SetDefault(logger)
}
