// Package slogutil provides the slog handlers and logger constructors used by zastat.
package slogutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
)

// runIDWidth is how much of a ledger run ID the line prefix shows.
const runIDWidth = 8

// Handler is a slog handler that writes one line per record:
//
//	TIMESTAMP [level] subsystem/run: Message | key=value key=value
//
// The subsystem and run attributes (KeySubsystem, KeyRun) form the prefix
// instead of being listed with the other attributes. Either part is left out
// when it is not set.
type Handler struct {
	w         io.Writer
	level     slog.Leveler
	subsystem string
	run       string
	attrs     []slog.Attr
	groups    []string
	mu        *sync.Mutex
}

// NewHandler creates a new line handler.
func NewHandler(w io.Writer, opts *slog.HandlerOptions) *Handler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &Handler{
		w:     w,
		level: level,
		mu:    &sync.Mutex{},
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes the log record.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	subsystem, run := h.subsystem, h.run
	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		if len(h.groups) == 0 {
			switch a.Key {
			case KeySubsystem:
				subsystem = a.Value.String()
				return true
			case KeyRun:
				run = a.Value.String()
				return true
			}
		}
		attrs = appendAttr(attrs, h.groups, a)
		return true
	})

	var buf bytes.Buffer
	buf.WriteString(r.Time.UTC().Format(time.RFC3339))
	buf.WriteString(" [")
	buf.WriteString(levelString(r.Level))
	buf.WriteString("] ")
	writePrefix(&buf, subsystem, run)
	buf.WriteString(r.Message)

	if len(attrs) > 0 {
		buf.WriteString(" |")
		for _, a := range attrs {
			buf.WriteByte(' ')
			buf.WriteString(a.Key)
			buf.WriteByte('=')
			buf.WriteString(formatValue(a.Value))
		}
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

// WithAttrs returns a new handler with the given attributes added.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := h.clone()
	h2.attrs = make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(h2.attrs, h.attrs)

	for _, a := range attrs {
		if len(h.groups) == 0 {
			switch a.Key {
			case KeySubsystem:
				h2.subsystem = a.Value.String()
				continue
			case KeyRun:
				h2.run = a.Value.String()
				continue
			}
		}
		h2.attrs = appendAttr(h2.attrs, h.groups, a)
	}
	return h2
}

// WithGroup returns a new handler with the given group name added.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	h2.groups = append(append([]string(nil), h.groups...), name)
	return h2
}

func (h *Handler) clone() *Handler {
	c := *h
	return &c
}

// appendAttr adds a to attrs with its key prefixed by groups. Group values
// are flattened into dotted keys; empty attributes are dropped.
func appendAttr(attrs []slog.Attr, groups []string, a slog.Attr) []slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return attrs
	}
	if a.Value.Kind() == slog.KindGroup {
		sub := groups
		if a.Key != "" {
			sub = append(append([]string(nil), groups...), a.Key)
		}
		for _, ga := range a.Value.Group() {
			attrs = appendAttr(attrs, sub, ga)
		}
		return attrs
	}
	if len(groups) > 0 {
		a.Key = strings.Join(groups, ".") + "." + a.Key
	}
	return append(attrs, a)
}

// writePrefix writes "subsystem/run: ", shortening run to runIDWidth.
func writePrefix(buf *bytes.Buffer, subsystem, run string) {
	if subsystem == "" && run == "" {
		return
	}
	buf.WriteString(subsystem)
	if run != "" {
		if len(run) > runIDWidth {
			run = run[:runIDWidth]
		}
		if subsystem != "" {
			buf.WriteByte('/')
		}
		buf.WriteString(run)
	}
	buf.WriteString(": ")
}

// levelString returns a lowercase string for the log level.
func levelString(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "debug"
	case level < slog.LevelWarn:
		return "info"
	case level < slog.LevelError:
		return "warn"
	default:
		return "error"
	}
}

// formatValue renders v for a key=value pair. Errors are always quoted,
// other text only when it would not read back as a single token.
func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return quoteIfNeeded(v.String())
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return strconv.Quote(err.Error())
		}
		return quoteIfNeeded(fmt.Sprint(v.Any()))
	default:
		return v.String()
	}
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	for _, r := range s {
		if r == '=' || r == '"' || unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return strconv.Quote(s)
		}
	}
	return s
}
