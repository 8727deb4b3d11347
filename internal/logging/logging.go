// Package logging configures the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Format selects the log encoding.
type Format string

const (
	// FormatConsole is human-readable, colored output for terminals.
	FormatConsole Format = "console"
	// FormatJSON is one JSON object per line for CI log collectors.
	FormatJSON Format = "json"
)

// Options controls logger construction.
type Options struct {
	Level   string
	Format  Format
	Debug   bool
	NoColor bool
}

// ParseFormat validates a --log-format value. Empty means console.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatConsole:
		return FormatConsole, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown log format %q (want console or json)", s)
	}
}

// New builds a logger writing to w. Debug forces the debug level.
func New(w io.Writer, opts Options) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}
	if opts.Debug {
		level = zerolog.DebugLevel
	}

	out := w
	if opts.Format != FormatJSON {
		out = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    opts.NoColor,
			TimeFormat: time.Kitchen,
		}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// Printf adapts a logger to printf-style debug hooks.
func Printf(logger zerolog.Logger, component string) func(format string, args ...any) {
	l := logger.With().Str("component", component).Logger()
	return func(format string, args ...any) {
		l.Debug().Msgf(format, args...)
	}
}
