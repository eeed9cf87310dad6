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
var Logger zerolog.Logger

// Init initializes the server logger on stdout with the given configuration
func Init(level, format string) {
	zerolog.SetGlobalLevel(ParseLevel(level))

	Logger = New(os.Stdout, format, true)

	// Set the global logger
	log.Logger = Logger
}

// New builds a logger writing to w. Format is "json" or "console"; caller
// annotations are only useful for long-running processes.
func New(w io.Writer, format string, withCaller bool) zerolog.Logger {
	var ctx zerolog.Context
	if strings.ToLower(format) == "json" {
		ctx = zerolog.New(w).With().Timestamp()
	} else {
		// Console format with colors
		output := zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
			NoColor:    w != os.Stdout && w != os.Stderr,
		}
		ctx = zerolog.New(output).With().Timestamp()
	}

	if withCaller {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

// NewCLI returns the logger used by the command-line client: console output on
// stderr so stdout stays clean for command results.
func NewCLI(level string) zerolog.Logger {
	return New(os.Stderr, "console", false).Level(ParseLevel(level))
}

// ParseLevel parses string log level to zerolog level
func ParseLevel(level string) zerolog.Level {
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
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// GetLogger returns the configured logger instance
func GetLogger() zerolog.Logger {
	return Logger
}
