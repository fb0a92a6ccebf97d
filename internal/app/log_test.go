package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestHcHandler_Handle(t *testing.T) {
	ts := time.Date(2025, 3, 2, 8, 15, 30, 0, time.UTC)

	tests := []struct {
		name    string
		runID   string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			runID:   "run-1",
			level:   slog.LevelInfo,
			message: "discovering files",
			want:    "2025-03-02T08:15:30Z\tINFO\trun-1\tdiscovering files\n",
		},
		{
			name:    "warn level",
			runID:   "run-2",
			level:   slog.LevelWarn,
			message: "replica repaired",
			want:    "2025-03-02T08:15:30Z\tWARN\trun-2\treplica repaired\n",
		},
		{
			name:    "with record attrs",
			runID:   "run-3",
			level:   slog.LevelInfo,
			message: "backup catalogued",
			attrs:   []slog.Attr{slog.String("dest", "/mnt/b/docs"), slog.Int("files", 42)},
			want:    "2025-03-02T08:15:30Z\tINFO\trun-3\tbackup catalogued\tdest=/mnt/b/docs\tfiles=42\n",
		},
		{
			name:    "escapes control characters in values",
			runID:   "run-4",
			level:   slog.LevelError,
			message: "copy failed",
			attrs:   []slog.Attr{slog.String("error", "line one\nline\ttwo")},
			want:    "2025-03-02T08:15:30Z\tERROR\trun-4\tcopy failed\terror=line one\\nline\\ttwo\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := newHandler(&buf, tt.runID, slog.LevelDebug)

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			r.AddAttrs(tt.attrs...)

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestHcHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := newHandler(&buf, "run-1", slog.LevelDebug)
	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "catalog")}).(*hcHandler)

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "opened", 0)
	r.AddAttrs(slog.String("type", "sqlite"))
	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "\tcomponent=catalog\ttype=sqlite\n") {
		t.Errorf("output = %q, want pre-set attr before record attr", got)
	}
	if len(h.attrs) != 0 {
		t.Errorf("original handler attrs modified: got %d, want 0", len(h.attrs))
	}
}

func TestHcHandler_Enabled(t *testing.T) {
	h := newHandler(&bytes.Buffer{}, "run-1", slog.LevelInfo)
	tests := []struct {
		level slog.Level
		want  bool
	}{
		{slog.LevelDebug, false},
		{slog.LevelInfo, true},
		{slog.LevelWarn, true},
		{slog.LevelError, true},
	}
	for _, tt := range tests {
		if got := h.Enabled(context.Background(), tt.level); got != tt.want {
			t.Errorf("Enabled(%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestHcHandler_ConcurrentLinesStayWhole(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, "run-1", slog.LevelInfo))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("copied", "worker", i, "path", "/some/fairly/long/path/to/a/file.bin")
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 20 {
		t.Fatalf("got %d lines, want 20", len(lines))
	}
	for _, line := range lines {
		if strings.Count(line, "\t") != 5 {
			t.Errorf("malformed line %q", line)
		}
	}
}

func TestNewLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")

	logger, f, err := newLogger(dir, "run-1", slog.LevelInfo)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	if logger == nil {
		t.Fatal("newLogger() returned nil logger")
	}
	if _, err := os.Stat(filepath.Join(dir, "hardcpy.log")); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}

func TestWriteErrorLog(t *testing.T) {
	dir := t.TempDir()
	path, err := writeErrorLog(dir, "run-9", []string{"couldn't copy /a: denied", "two\nlines"})
	if err != nil {
		t.Fatalf("writeErrorLog() error = %v", err)
	}
	if want := filepath.Join(dir, "errors-run-9.log"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := "couldn't copy /a: denied\ntwo lines\n"; string(data) != want {
		t.Errorf("content = %q, want %q", data, want)
	}
}
