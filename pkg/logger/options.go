package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Format selects the handler a logger renders records with.
type Format string

const (
	// FormatPretty renders colorized, human-friendly lines for a terminal.
	FormatPretty Format = "pretty"

	// FormatJSON renders one JSON object per record for log shippers.
	FormatJSON Format = "json"

	// FormatText renders slog's logfmt-style text.
	FormatText Format = "text"
)

// Formats returns the accepted format names.
func Formats() []string {
	return []string{string(FormatPretty), string(FormatJSON), string(FormatText)}
}

// ParseFormat maps a user supplied name to a Format. The empty string is
// FormatText.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "":
		return FormatText, nil
	case FormatPretty, FormatJSON, FormatText:
		return f, nil
	default:
		return "", fmt.Errorf("unknown log format %q (want one of %s)", name, strings.Join(Formats(), ", "))
	}
}

// Option configures a Logger created with New.
type Option func(*config)

// WithDebug sets the log level to Debug when true, Info otherwise.
func WithDebug(debug bool) Option {
	return func(c *config) {
		if debug {
			c.level = slog.LevelDebug
		} else {
			c.level = slog.LevelInfo
		}
	}
}

// WithFormat selects the output format. Defaults to FormatText.
func WithFormat(f Format) Option {
	return func(c *config) {
		c.format = f
	}
}

// WithWriter overrides the output writer. Defaults to os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.writers = []io.Writer{w}
	}
}

// WithWriters sets multiple output writers (combined via io.MultiWriter).
func WithWriters(w ...io.Writer) Option {
	return func(c *config) {
		c.writers = w
	}
}

// WithSource includes source file:line in log output.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}
