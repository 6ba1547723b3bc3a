package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/log"
)

// Config selects the sink format and level.
type Config struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// JSON switches the sink to one JSON object per line.
	JSON bool
	// Prefix is printed before every line in text mode.
	Prefix string
}

// New returns a redacting slog.Logger writing to w through charmbracelet/log.
func New(w io.Writer, cfg Config) (*slog.Logger, error) {
	level := log.InfoLevel
	if s := strings.TrimSpace(cfg.Level); s != "" {
		parsed, err := log.ParseLevel(strings.ToLower(s))
		if err != nil {
			return nil, err
		}
		level = parsed
	}

	formatter := log.TextFormatter
	if cfg.JSON {
		formatter = log.JSONFormatter
	}

	sink := log.NewWithOptions(w, log.Options{
		Level:     level,
		Prefix:    cfg.Prefix,
		Formatter: formatter,
	})
	return slog.New(NewRedactingHandler(sink)), nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
