package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// hcHandler is a slog.Handler that formats log records as:
//
//	<timestamp>\t<level>\t<runID>\t<message>\t<key=value ...>
//
// Each record is written with a single Write so concurrent workers never
// interleave within a line.
type hcHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Leveler
	runID string
	attrs []slog.Attr
}

func newHandler(w io.Writer, runID string, level slog.Leveler) *hcHandler {
	return &hcHandler{mu: &sync.Mutex{}, w: w, level: level, runID: runID}
}

func (h *hcHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *hcHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	ts := r.Time.UTC().Format("2006-01-02T15:04:05Z")
	fmt.Fprintf(&buf, "%s\t%s\t%s\t%s", ts, r.Level, h.runID, r.Message)

	for _, a := range h.attrs {
		writeAttr(&buf, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&buf, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

// writeAttr keeps one record on one line: embedded newlines and tabs in
// values are escaped.
func writeAttr(buf *bytes.Buffer, a slog.Attr) {
	v := a.Value.Resolve().String()
	if strings.ContainsAny(v, "\t\n") {
		v = strings.NewReplacer("\t", `\t`, "\n", `\n`).Replace(v)
	}
	fmt.Fprintf(buf, "\t%s=%s", a.Key, v)
}

func (h *hcHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &hcHandler{
		mu:    h.mu,
		w:     h.w,
		level: h.level,
		runID: h.runID,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *hcHandler) WithGroup(string) slog.Handler { return h }

// newLogger creates a structured logger that writes to both logDir/hardcpy.log
// and stderr. It returns the slog.Logger, the open log file (for cleanup), and any error.
func newLogger(logDir, runID string, level slog.Leveler) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(logDir, "hardcpy.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	handler := newHandler(io.MultiWriter(f, os.Stderr), runID, level)
	return slog.New(handler), f, nil
}

// writeErrorLog writes one line per failure to logDir/errors-<runID>.log and
// returns its path.
func writeErrorLog(logDir, runID string, errs []string) (string, error) {
	path := filepath.Join(logDir, fmt.Sprintf("errors-%s.log", runID))
	var buf bytes.Buffer
	for _, e := range errs {
		buf.WriteString(strings.ReplaceAll(e, "\n", " "))
		buf.WriteByte('\n')
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("writing error log: %w", err)
	}
	return path, nil
}

// slogAdapter wraps *slog.Logger to satisfy the hc.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
