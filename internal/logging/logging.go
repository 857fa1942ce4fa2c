// Package logging builds the structured logger shared by the engine.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// Options configures New.
type Options struct {
	Level slog.Leveler
	// JSON switches the primary handler from text to JSON lines.
	JSON bool
	// Extra handlers receive every record alongside the primary one.
	Extra []slog.Handler
}

// New returns a logger writing to w and fanning out to opts.Extra.
func New(w io.Writer, opts Options) *slog.Logger {
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var primary slog.Handler
	if opts.JSON {
		primary = slog.NewJSONHandler(w, handlerOpts)
	} else {
		primary = slog.NewTextHandler(w, handlerOpts)
	}
	if len(opts.Extra) == 0 {
		return slog.New(primary)
	}
	handlers := append([]slog.Handler{primary}, opts.Extra...)
	return slog.New(slogmulti.Fanout(handlers...))
}

// OpenFile returns a JSON handler appending to path, for use in
// Options.Extra. The caller closes the returned file.
func OpenFile(path string, level slog.Leveler) (slog.Handler, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}), f, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel maps debug|info|warn|error, case-insensitively. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", s)
	}
}
