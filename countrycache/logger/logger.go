package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorPurple = "\033[35m"
	colorWhite  = "\033[37m"
)

type LogType string

const (
	TypeDB      LogType = "DB"
	TypeSystem  LogType = "SYS"
	TypeHTTP    LogType = "HTTP"
	TypeRefresh LogType = "REFRESH"
	TypeError   LogType = "ERR"
)

type CustomHandler struct {
	app   string
	opts  *slog.HandlerOptions
	out   io.Writer
	mu    *sync.Mutex
	attrs []slog.Attr
	group string
}

// NewHandler returns the colored console handler. A nil writer means stdout.
func NewHandler(app string, level slog.Leveler, out io.Writer) *CustomHandler {
	if out == nil {
		out = os.Stdout
	}
	if level == nil {
		level = slog.LevelInfo
	}
	return &CustomHandler{
		app:   app,
		opts:  &slog.HandlerOptions{Level: level},
		out:   out,
		mu:    &sync.Mutex{},
		attrs: make([]slog.Attr, 0),
	}
}

// New builds the process logger for the configured format.
func New(app string, format string, level slog.Level, addSource bool) *slog.Logger {
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     level,
			AddSource: addSource,
		})).With(slog.String("app", app))
	}
	return slog.New(NewHandler(app, level, os.Stdout))
}

func (h *CustomHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *CustomHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		merged = append(merged, a)
	}
	return &CustomHandler{
		app:   h.app,
		opts:  h.opts,
		out:   h.out,
		mu:    h.mu,
		attrs: merged,
		group: h.group,
	}
}

func (h *CustomHandler) WithGroup(name string) slog.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &CustomHandler{
		app:   h.app,
		opts:  h.opts,
		out:   h.out,
		mu:    h.mu,
		attrs: h.attrs,
		group: group,
	}
}

func (h *CustomHandler) Handle(_ context.Context, r slog.Record) error {
	timestamp := r.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	var levelColor, levelText string
	switch {
	case r.Level >= slog.LevelError:
		levelColor = colorRed
		levelText = "ERROR"
	case r.Level >= slog.LevelWarn:
		levelColor = colorYellow
		levelText = "WARN"
	case r.Level >= slog.LevelInfo:
		levelColor = colorGreen
		levelText = "INFO"
	default:
		levelColor = colorPurple
		levelText = "DEBUG"
	}

	attrs := h.collectAttrs(&r)
	logType := getLogType(attrs)

	message := r.Message
	if r.Level >= slog.LevelError {
		if location := getErrorLocation(attrs); location != "" {
			message = fmt.Sprintf("%s (%s)", message, location)
		}
		if details := getAttr(attrs, "error"); details != "" {
			message = fmt.Sprintf("%s: %s", message, details)
		}
	}

	var b strings.Builder
	for _, attr := range attrs {
		if isInternalAttr(attr.Key) || (attr.Key == "error" && r.Level >= slog.LevelError) {
			continue
		}
		b.WriteString(fmt.Sprintf(" %s=%v", attr.Key, attr.Value))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintf(h.out, "%s[%s] [%s] [%s%s%s] [%s] %s%s%s\n",
		colorWhite,
		h.app,
		timestamp.Format("15:04:05"),
		levelColor,
		levelText,
		colorWhite,
		logType,
		message,
		b.String(),
		colorReset,
	)
	return err
}

func (h *CustomHandler) collectAttrs(r *slog.Record) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		attrs = append(attrs, a)
		return true
	})
	return attrs
}

func getLogType(attrs []slog.Attr) LogType {
	switch getAttr(attrs, "type") {
	case "db":
		return TypeDB
	case "http":
		return TypeHTTP
	case "refresh":
		return TypeRefresh
	case "error":
		return TypeError
	}
	return TypeSystem
}

func getAttr(attrs []slog.Attr, key string) string {
	for _, a := range attrs {
		if a.Key == key {
			return a.Value.String()
		}
	}
	return ""
}

func isInternalAttr(key string) bool {
	switch key {
	case "type", "error_location":
		return true
	}
	return false
}

func getErrorLocation(attrs []slog.Attr) string {
	if location := getAttr(attrs, "error_location"); location != "" {
		return location
	}
	_, file, line, ok := runtime.Caller(5)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
