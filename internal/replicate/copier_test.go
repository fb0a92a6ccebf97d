package replicate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"hardcpy/internal/hc"
	"hardcpy/internal/testutil"
)

func TestCopier_CopyFile(t *testing.T) {
	t.Run("creates parents and copies bytes", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "in.bin")
		data := testutil.RandomBytes(7, 300000)
		if err := os.WriteFile(src, data, 0644); err != nil {
			t.Fatal(err)
		}

		metrics := NewEngineMetrics(hc.NewNopLogger())
		dst := filepath.Join(dir, "out", "a", "b", "in.bin")
		if err := NewCopier(metrics).CopyFile(src, dst); err != nil {
			t.Fatalf("CopyFile() error = %v", err)
		}
		if got, want := testutil.SHA256File(t, dst), testutil.SHA256Hex(data); got != want {
			t.Errorf("digest = %s, want %s", got, want)
		}
		if metrics.FilesCopied.Load() != 1 || metrics.BytesCopied.Load() != int64(len(data)) {
			t.Errorf("metrics = %d files %d bytes, want 1 and %d",
				metrics.FilesCopied.Load(), metrics.BytesCopied.Load(), len(data))
		}
		if metrics.DirsCreated.Load() != 1 {
			t.Errorf("DirsCreated = %d, want 1", metrics.DirsCreated.Load())
		}
	})

	t.Run("overwrites existing destination", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "src.txt")
		dst := filepath.Join(dir, "dst.txt")
		if err := os.WriteFile(src, []byte("new"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(dst, []byte("old content that is longer"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := NewCopier(nil).CopyFile(src, dst); err != nil {
			t.Fatalf("CopyFile() error = %v", err)
		}
		got, err := os.ReadFile(dst)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "new" {
			t.Errorf("dst = %q, want %q", got, "new")
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 2 {
			t.Errorf("directory holds %d entries, want 2 (no leftover temp files)", len(entries))
		}
	})

	t.Run("keeps permission bits", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("permission bits are not preserved on windows")
		}
		dir := t.TempDir()
		src := filepath.Join(dir, "run.sh")
		if err := os.WriteFile(src, []byte("#!/bin/sh\n"), 0750); err != nil {
			t.Fatal(err)
		}
		if err := os.Chmod(src, 0750); err != nil {
			t.Fatal(err)
		}
		dst := filepath.Join(dir, "copy", "run.sh")
		if err := NewCopier(nil).CopyFile(src, dst); err != nil {
			t.Fatalf("CopyFile() error = %v", err)
		}
		info, err := os.Stat(dst)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0750 {
			t.Errorf("mode = %v, want %v", info.Mode().Perm(), os.FileMode(0750))
		}
	})

	t.Run("missing source", func(t *testing.T) {
		dir := t.TempDir()
		if err := NewCopier(nil).CopyFile(filepath.Join(dir, "nope"), filepath.Join(dir, "out")); err == nil {
			t.Fatal("CopyFile() expected error for missing source")
		}
	})
}

func TestCopier_CopyEntry(t *testing.T) {
	src := filepath.Join(t.TempDir(), "docs")
	destRoot := t.TempDir()
	testutil.WriteTree(t, src, map[string][]byte{"x/y.txt": []byte("y")})

	e := hc.Entry{Path: filepath.Join(src, "x", "y.txt"), Size: 1, SourceName: "docs", DestRoot: destRoot}
	dest, err := NewCopier(nil).CopyEntry(e)
	if err != nil {
		t.Fatalf("CopyEntry() error = %v", err)
	}
	if want := filepath.Join(destRoot, "docs", "x", "y.txt"); dest != want {
		t.Errorf("CopyEntry() = %q, want %q", dest, want)
	}
}

func TestParallelCopy_SixteenFiles(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	destRoot := t.TempDir()
	files := make(map[string][]byte)
	for i := range 16 {
		files[fmt.Sprintf("file-%02d.bin", i)] = testutil.RandomBytes(uint64(i), 1<<20)
	}
	testutil.WriteTree(t, src, files)

	s := NewParallel(NewCopier(nil), Options{Workers: 16})
	c := hc.NewConclusion()
	plan := hc.Plan{Source: src, SourceName: "src", DestRoot: destRoot}
	entries, err := s.Discover(context.Background(), plan, c)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if err := s.Copy(context.Background(), entries, c); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	c.Finish()
	report := c.Report()

	if report.TotalCount != 16 {
		t.Errorf("TotalCount = %d, want 16", report.TotalCount)
	}
	if report.ErrorCount != 0 {
		t.Errorf("ErrorCount = %d, want 0: %v", report.ErrorCount, report.Errors)
	}
	if report.TotalSize.MB != 16 {
		t.Errorf("TotalSize.MB = %d, want 16", report.TotalSize.MB)
	}
	testutil.AssertSameTree(t, testutil.ReadTree(t, filepath.Join(destRoot, "src")), files)
}
