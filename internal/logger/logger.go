package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is the application logger instance
var Logger = zerolog.Nop()

// Init initializes the logger with the given configuration. Output goes to
// stderr so command output on stdout stays machine readable.
func Init(level, format string) {
	// Set log level
	zerolog.SetGlobalLevel(parseLogLevel(level))

	Logger = New(os.Stderr, format)

	// Set the global logger
	log.Logger = Logger
}

// New builds a logger writing to w in the given format (json or console).
func New(w io.Writer, format string) zerolog.Logger {
	if strings.ToLower(format) == "json" {
		return zerolog.New(w).With().
			Timestamp().
			Caller().
			Logger()
	}

	// Console format with colors
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    w != os.Stderr,
	}
	return zerolog.New(output).With().
		Timestamp().
		Logger()
}

// parseLogLevel parses string log level to zerolog level
func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.WarnLevel
	}
}

// GetLogger returns the configured logger instance
func GetLogger() zerolog.Logger {
	return Logger
}
