package tomsychapel

import (
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/TomsyPaul/tomsychapel/heap"
	"github.com/TomsyPaul/tomsychapel/takeover"
)

// Logger wraps slog.Logger with layer-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithMode adds the layer mode to the logger.
func (l *Logger) WithMode(m Mode) *Logger {
	return &Logger{
		Logger: l.Logger.With("mode", m.String()),
	}
}

// LogInit logs the outcome of Layer.Init.
func (l *Logger) LogInit(mode Mode, h *heap.SharedHeap, narenas uint, err error) {
	if err != nil {
		l.Error("layer init failed",
			"mode", mode.String(),
			"error", err,
		)
		return
	}
	if h == nil {
		l.Debug("layer init completed",
			"mode", mode.String(),
		)
		return
	}
	l.Info("layer init completed",
		"mode", mode.String(),
		"base", h.Base(),
		"size", humanize.IBytes(uint64(h.Size())),
		"arenas", narenas,
		"used", humanize.IBytes(uint64(h.Used())),
	)
}

// LogDrain logs a purification report.
func (l *Logger) LogDrain(r takeover.Report) {
	for _, c := range r.Classes {
		if c.Sacrificed == 0 {
			continue
		}
		l.Debug("size class drained",
			"class", c.Size,
			"sacrificed", c.Sacrificed,
		)
	}
	l.Info("heap purified",
		"classes", len(r.Classes),
		"sacrificed", r.Sacrificed(),
		"sacrificed_bytes", humanize.IBytes(uint64(r.SacrificedBytes())),
	)
}

// LogExit logs layer teardown.
func (l *Logger) LogExit(mode Mode, h *heap.SharedHeap) {
	if h == nil {
		l.Debug("layer exited",
			"mode", mode.String(),
		)
		return
	}
	st := h.Stats()
	l.Info("layer exited",
		"mode", mode.String(),
		"chunks", st.Acquired,
		"failed", st.Failed,
		"served", humanize.IBytes(uint64(st.BytesServed)),
		"usage", h.Usage(),
	)
}
