package bridgetest

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// Logs records every slog record it receives.
type Logs struct {
	mu      sync.Mutex
	records []slog.Record
}

// NewLogs returns a recorder and a logger writing to it at debug level.
func NewLogs() (*Logs, *slog.Logger) {
	l := &Logs{}
	return l, slog.New(&logsHandler{logs: l})
}

// Messages returns the messages logged at or above level, in order.
func (l *Logs) Messages(level slog.Level) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, r := range l.records {
		if r.Level >= level {
			out = append(out, r.Message)
		}
	}
	return out
}

// Count returns how many records carry msg.
func (l *Logs) Count(msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, r := range l.records {
		if r.Message == msg {
			n++
		}
	}
	return n
}

// Attr returns the string value of key on the i-th record carrying msg. A
// dotted key such as "view.placement_id" descends into groups.
func (l *Logs) Attr(msg string, i int, key string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	seen := 0
	for _, r := range l.records {
		if r.Message != msg {
			continue
		}
		if seen != i {
			seen++
			continue
		}
		var attrs []slog.Attr
		r.Attrs(func(a slog.Attr) bool {
			attrs = append(attrs, a)
			return true
		})
		return lookup(attrs, key)
	}
	return "", false
}

func lookup(attrs []slog.Attr, key string) (string, bool) {
	name, rest, nested := strings.Cut(key, ".")
	for _, a := range attrs {
		if a.Key != name {
			continue
		}
		if !nested {
			return a.Value.String(), true
		}
		if a.Value.Kind() != slog.KindGroup {
			return "", false
		}
		return lookup(a.Value.Group(), rest)
	}
	return "", false
}

type logsHandler struct {
	logs  *Logs
	attrs []slog.Attr
}

func (h *logsHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *logsHandler) Handle(_ context.Context, r slog.Record) error {
	rec := r.Clone()
	rec.AddAttrs(h.attrs...)
	h.logs.mu.Lock()
	h.logs.records = append(h.logs.records, rec)
	h.logs.mu.Unlock()
	return nil
}

func (h *logsHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &logsHandler{logs: h.logs, attrs: append(slices.Clone(h.attrs), attrs...)}
}

func (h *logsHandler) WithGroup(string) slog.Handler {
	return h
}
