package logger

import (
	"context"
	"log/slog"
)

// fanoutHandler hands each record to every wrapped handler that accepts its
// level. The serve command uses it to log pretty to the terminal and JSON to
// a file at the same time.
type fanoutHandler []slog.Handler

// Multi combines the handlers of the given loggers into one logger. Nil
// loggers are skipped.
func Multi(loggers ...*slog.Logger) *slog.Logger {
	hs := make(fanoutHandler, 0, len(loggers))
	for _, l := range loggers {
		if l == nil {
			continue
		}
		hs = append(hs, l.Handler())
	}
	return slog.New(hs)
}

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
