package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Options selects the log level, record format, and output destinations.
type Options struct {
	Level       string
	Format      string
	OutputPaths []string
}

// New constructs a slog logger using the provided options. Format is either
// "console" (human-oriented key=value lines) or "json".
func New(opts Options) (*slog.Logger, error) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(opts.Level))

	paths := opts.OutputPaths
	if len(paths) == 0 {
		paths = []string{"stderr"}
	}
	writer, err := openWriters(paths)
	if err != nil {
		return nil, err
	}

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}

	switch format {
	case "json":
		return slog.New(newJSONHandler(writer, levelVar)), nil
	case "console":
		return slog.New(newConsoleHandler(writer, levelVar)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
}

var levelNames = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func parseLevel(level string) slog.Level {
	if lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(level))]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// openWriters resolves the output paths, dropping blanks and duplicates.
// "stdout" and "stderr" name the process streams; anything else is a file
// opened for append.
func openWriters(paths []string) (io.Writer, error) {
	var writers []io.Writer
	seen := map[string]bool{}
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true

		w, err := openWriter(path)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
	}

	switch len(writers) {
	case 0:
		return os.Stderr, nil
	case 1:
		return writers[0], nil
	}
	return io.MultiWriter(writers...), nil
}

func openWriter(path string) (io.Writer, error) {
	switch path {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

func newJSONHandler(w io.Writer, lvl *slog.LevelVar) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: normalizeJSONAttr,
	})
}

// normalizeJSONAttr renames the built-in keys to the compact ts/msg pair and
// lowercases the level value.
func normalizeJSONAttr(_ []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		attr.Key = "ts"
		if attr.Value.Kind() == slog.KindTime {
			attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
		}
	case slog.LevelKey:
		attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
	case slog.MessageKey:
		attr.Key = "msg"
	}
	return attr
}

// consoleHandler renders records as "TIME LEVEL component: message k=v ...".
type consoleHandler struct {
	mu     *sync.Mutex
	writer io.Writer
	level  *slog.LevelVar
	attrs  []slog.Attr
	groups []string
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, writer: w, level: lvl}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	pairs := make([]attrPair, 0, record.NumAttrs()+len(h.attrs))
	for _, attr := range h.attrs {
		collectAttr(&pairs, h.groups, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		collectAttr(&pairs, h.groups, attr)
		return true
	})

	component := ""
	kept := pairs[:0]
	for _, pair := range pairs {
		if pair.key == FieldComponent && component == "" {
			component = pair.value.Resolve().String()
			continue
		}
		kept = append(kept, pair)
	}
	pairs = kept

	var buf bytes.Buffer
	buf.Grow(96 + len(pairs)*24)
	fmt.Fprintf(&buf, "%s %s ", timestamp.UTC().Format(time.RFC3339), levelLabel(record.Level))
	if component != "" {
		fmt.Fprintf(&buf, "%s: ", component)
	}
	buf.WriteString(strings.TrimSpace(record.Message))
	for _, pair := range pairs {
		if pair.key == "" {
			continue
		}
		fmt.Fprintf(&buf, " %s=%s", pair.key, renderValue(pair.value))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.attrs = append(clone.attrs, attrs...)
	return clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	clone := h.clone()
	if name != "" {
		clone.groups = append(clone.groups, name)
	}
	return clone
}

// clone shares the mutex so cloned handlers never interleave writes.
func (h *consoleHandler) clone() *consoleHandler {
	clone := &consoleHandler{mu: h.mu, writer: h.writer, level: h.level}
	clone.attrs = append(clone.attrs, h.attrs...)
	clone.groups = append(clone.groups, h.groups...)
	return clone
}

type attrPair struct {
	key   string
	value slog.Value
}

func collectAttr(dst *[]attrPair, prefix []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			next = append(append([]string{}, prefix...), attr.Key)
		}
		for _, nested := range attr.Value.Group() {
			collectAttr(dst, next, nested)
		}
		return
	}
	key := attr.Key
	if len(prefix) > 0 {
		key = strings.Join(append(append([]string{}, prefix...), attr.Key), ".")
	}
	*dst = append(*dst, attrPair{key: key, value: attr.Value})
}

func renderValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return quoteIfNeeded(err.Error())
		}
		return quoteIfNeeded(fmt.Sprint(v.Any()))
	}
	return quoteIfNeeded(v.String())
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	unsafe := func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }
	if strings.ContainsFunc(s, unsafe) {
		return strconv.Quote(s)
	}
	return s
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}
