package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"ucraft/trafficlogger/pkg/config"
)

// LogFormat represents the output format for logs.
type LogFormat string

const (
	// FormatJSON outputs one JSON object per line.
	FormatJSON LogFormat = "json"
	// FormatText outputs logfmt-style key=value lines.
	FormatText LogFormat = "text"
	// FormatConsole outputs text without timestamps, for interactive use.
	FormatConsole LogFormat = "console"
)

// Config contains configuration for New.
type Config struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string

	// Format is the output format ("json", "text", "console").
	Format string

	// AddSource includes file and line number in logs.
	AddSource bool

	// RedactPII masks emails, tokens, keys and passwords in string attributes.
	RedactPII bool

	// Writer is the output writer (defaults to os.Stderr).
	Writer io.Writer
}

// FromConfig converts the telemetry logging section into a Config.
func FromConfig(cfg *config.LoggingConfig) Config {
	return Config{
		Level:     cfg.Level,
		Format:    cfg.Format,
		AddSource: cfg.AddSource,
		RedactPII: cfg.RedactPII,
	}
}

// New creates a slog.Logger. Records logged with a context carry the request
// id, record id and trace ids found in it.
//
//	logger, err := logging.New(logging.FromConfig(&cfg.Telemetry.Logging))
//	if err != nil {
//		return err
//	}
//	slog.SetDefault(logger)
func New(cfg Config) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	format, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("invalid log format: %w", err)
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	var redactor *Redactor
	if cfg.RedactPII {
		redactor = NewRedactor()
	}
	opts.ReplaceAttr = replaceAttr(format, redactor)

	var handler slog.Handler
	switch format {
	case FormatText, FormatConsole:
		handler = slog.NewTextHandler(writer, opts)
	default:
		handler = slog.NewJSONHandler(writer, opts)
	}

	return slog.New(&contextHandler{Handler: handler}), nil
}

func replaceAttr(format LogFormat, redactor *Redactor) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) == 0 && format == FormatConsole && a.Key == slog.TimeKey {
			return slog.Attr{}
		}
		if redactor != nil {
			return redactor.RedactAttr(a)
		}
		return a
	}
}

// ParseLevel parses a log level name.
func ParseLevel(levelStr string) (slog.Level, error) {
	return parseLevel(levelStr)
}

func parseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", levelStr)
	}
}

func parseFormat(formatStr string) (LogFormat, error) {
	switch strings.ToLower(formatStr) {
	case "json", "":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	case "console":
		return FormatConsole, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format: %s", formatStr)
	}
}
