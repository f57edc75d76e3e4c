package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

var levelColors = map[slog.Level]*color.Color{
	slog.LevelDebug: color.New(color.FgHiBlack),
	slog.LevelInfo:  color.New(color.FgGreen),
	slog.LevelWarn:  color.New(color.FgYellow),
	slog.LevelError: color.New(color.FgRed),
}

// Handler is a human-oriented slog handler with colored level tags,
// intended for the CLI and local development. It is safe for concurrent
// use; records are written one line at a time under a lock.
type Handler struct {
	mu     *sync.Mutex
	writer io.Writer
	level  slog.Leveler

	// preformatted holds attrs bound via WithAttrs, rendered with the
	// group prefix that was open when they were added.
	preformatted string
	group        string
}

// NewHandler creates a handler writing to w at the given minimum level.
func NewHandler(w io.Writer, level slog.Leveler) *Handler {
	return &Handler{
		mu:     &sync.Mutex{},
		writer: w,
		level:  level,
	}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, record slog.Record) error {
	var sb strings.Builder
	sb.WriteString(record.Time.Format("15:04:05.000"))
	sb.WriteByte(' ')

	tag := fmt.Sprintf("%-5s", record.Level.String())
	if c, ok := levelColors[record.Level]; ok {
		tag = c.Sprint(tag)
	}
	sb.WriteString(tag)
	sb.WriteByte(' ')
	sb.WriteString(record.Message)

	sb.WriteString(h.preformatted)
	record.Attrs(func(attr slog.Attr) bool {
		h.writeAttr(&sb, attr)
		return true
	})
	sb.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, sb.String())
	return err
}

func (h *Handler) writeAttr(sb *strings.Builder, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	key := attr.Key
	if h.group != "" {
		key = h.group + "." + key
	}
	fmt.Fprintf(sb, " %s=%v", key, attr.Value.Resolve().Any())
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	var sb strings.Builder
	sb.WriteString(h.preformatted)
	for _, attr := range attrs {
		h.writeAttr(&sb, attr)
	}
	clone.preformatted = sb.String()
	return &clone
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if h.group != "" {
		clone.group = h.group + "." + name
	} else {
		clone.group = name
	}
	return &clone
}

// Setup installs a colored console handler as the slog default.
func Setup(level string) {
	slog.SetDefault(slog.New(NewHandler(os.Stderr, ParseLevel(level))))
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
