package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// CompactHandler formats logs in a compact, readable format for console output
// Format: [LEVEL] HH:MM:SS view: message | key=value key=value
//
// A "view" attribute becomes the message prefix. Attributes added with
// WithAttrs come before the record's own, and group names prefix keys.
type CompactHandler struct {
	opts     slog.HandlerOptions
	mu       *sync.Mutex
	out      io.Writer
	colorize bool
	view     string      // from WithAttrs
	attrs    []slog.Attr // accumulated attributes from WithAttrs, keys already prefixed
	prefix   string      // group prefix, e.g. "load."
}

// NewCompactHandler creates a new compact console handler
func NewCompactHandler(w io.Writer, opts *slog.HandlerOptions) *CompactHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &CompactHandler{
		opts: *opts,
		mu:   &sync.Mutex{},
		out:  w,
	}
}

// WithColor returns a handler that colors the level tag
func (h *CompactHandler) WithColor(enabled bool) *CompactHandler {
	c := h.clone()
	c.colorize = enabled
	return c
}

var levelColors = map[slog.Level]*color.Color{
	LevelTrace:      color.New(color.FgHiBlack),
	slog.LevelDebug: color.New(color.FgCyan),
	slog.LevelInfo:  color.New(color.FgGreen),
	slog.LevelWarn:  color.New(color.FgYellow),
	slog.LevelError: color.New(color.FgRed, color.Bold),
}

func (h *CompactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *CompactHandler) Handle(ctx context.Context, r slog.Record) error {
	buf := make([]byte, 0, 1024)

	// Level with fixed width
	tag := levelTag(r.Level)
	if c, ok := levelColors[r.Level]; ok && h.colorize {
		tag = c.Sprint(tag)
	}
	buf = append(buf, tag...)
	buf = append(buf, ' ')

	// Time (just HH:MM:SS for readability)
	buf = r.Time.AppendFormat(buf, "15:04:05")
	buf = append(buf, ' ')

	view := h.view
	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "view" && h.prefix == "" && a.Value.Kind() == slog.KindString {
			view = a.Value.String()
			return true
		}
		attrs = append(attrs, prefixed(h.prefix, a))
		return true
	})

	if view != "" {
		buf = append(buf, view...)
		buf = append(buf, ": "...)
	}
	buf = append(buf, r.Message...)

	// Attributes
	sep := " |"
	for _, a := range attrs {
		// Skip empty attrs
		if a.Equal(slog.Attr{}) {
			continue
		}
		buf = append(buf, sep...)
		buf = append(buf, ' ')
		buf = h.appendAttr(buf, a)
		sep = ""
	}

	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf)
	return err
}

func levelTag(level slog.Level) string {
	switch level {
	case LevelTrace:
		return "[TRACE]"
	case slog.LevelDebug:
		return "[DEBUG]"
	case slog.LevelInfo:
		return "[INFO] "
	case slog.LevelWarn:
		return "[WARN] "
	case slog.LevelError:
		return "[ERROR]"
	default:
		return fmt.Sprintf("[%-5s]", level.String())
	}
}

func prefixed(prefix string, a slog.Attr) slog.Attr {
	if prefix == "" {
		return a
	}
	a.Key = prefix + a.Key
	return a
}

func (h *CompactHandler) appendAttr(buf []byte, a slog.Attr) []byte {
	v := a.Value.Resolve()

	// Handle special cases
	switch a.Key {
	case "requestID":
		// Shorten request IDs to first 8 chars
		if s := v.String(); v.Kind() == slog.KindString && len(s) > 8 {
			buf = append(buf, "req="...)
			return append(buf, s[:8]...)
		}
	case "durationMs":
		// Format duration with "ms" suffix
		buf = append(buf, "duration="...)
		buf = append(buf, v.String()...)
		return append(buf, "ms"...)
	case "error":
		buf = append(buf, "error="...)
		return append(buf, fmt.Sprintf("%q", fmt.Sprint(v.Any()))...)
	}

	// Default formatting: key=value
	buf = append(buf, a.Key...)
	buf = append(buf, '=')

	switch v.Kind() {
	case slog.KindString:
		buf = appendString(buf, v.String())
	case slog.KindInt64, slog.KindUint64, slog.KindFloat64, slog.KindBool, slog.KindDuration:
		buf = append(buf, v.String()...)
	case slog.KindTime:
		buf = v.Time().AppendFormat(buf, time.RFC3339)
	case slog.KindGroup:
		buf = append(buf, '{')
		for i, ga := range v.Group() {
			if i > 0 {
				buf = append(buf, ' ')
			}
			buf = h.appendAttr(buf, ga)
		}
		buf = append(buf, '}')
	default:
		switch x := v.Any().(type) {
		case []string:
			// Paths and IDs read better as a list
			buf = appendString(buf, strings.Join(x, ","))
		case error:
			buf = append(buf, fmt.Sprintf("%q", x.Error())...)
		default:
			buf = append(buf, fmt.Sprintf("%v", x)...)
		}
	}
	return buf
}

func appendString(buf []byte, s string) []byte {
	// Quote strings with spaces or special chars
	if needsQuoting(s) {
		return append(buf, fmt.Sprintf("%q", s)...)
	}
	return append(buf, s...)
}

func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	return strings.ContainsAny(s, " \t\n\"=")
}

func (h *CompactHandler) clone() *CompactHandler {
	c := *h
	c.attrs = append([]slog.Attr(nil), h.attrs...)
	return &c
}

func (h *CompactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	for _, a := range attrs {
		if a.Key == "view" && h.prefix == "" && a.Value.Kind() == slog.KindString {
			c.view = a.Value.String()
			continue
		}
		c.attrs = append(c.attrs, prefixed(h.prefix, a))
	}
	return c
}

func (h *CompactHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.prefix = h.prefix + name + "."
	return c
}
