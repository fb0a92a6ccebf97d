package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"hardcpy/internal/config"
	"hardcpy/internal/hc"
	"hardcpy/internal/testutil"
)

func newTestApp(t *testing.T, cfg *config.Config, opts Options) *App {
	t.Helper()
	a, err := newApp(cfg, "test", opts, testutil.FixedClock(), testutil.NewRunIDs())
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestApp_CreateListVerifyDelete(t *testing.T) {
	for _, multithread := range []bool{false, true} {
		t.Run("multithread="+strconv.FormatBool(multithread), func(t *testing.T) {
			base := t.TempDir()
			cfg := config.NewConfig(base)
			a := newTestApp(t, cfg, Options{Multithread: multithread})

			src := filepath.Join(t.TempDir(), "photos")
			testutil.WriteTree(t, src, map[string][]byte{
				"2024/a.jpg": testutil.RandomBytes(1, 2048),
				"2024/b.jpg": testutil.RandomBytes(2, 4096),
				"index.txt":  []byte("index"),
			})
			destRoot := t.TempDir()

			summary, errLog, err := a.Create(context.Background(), src, destRoot)
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if summary.Copied != 3 || summary.ErrorCount() != 0 {
				t.Errorf("Create() copied %d with %d errors, want 3 and 0", summary.Copied, summary.ErrorCount())
			}
			if errLog != "" {
				t.Errorf("error log = %q, want none", errLog)
			}

			infos, err := a.List()
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(infos) != 1 || infos[0].FileCount != 3 {
				t.Fatalf("List() = %+v, want one backup with 3 files", infos)
			}
			rawID := strconv.FormatUint(infos[0].ID, 10)

			result, _, err := a.Verify(context.Background(), rawID)
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if result.Verified != 3 || result.Repaired != 0 {
				t.Errorf("Verify() = %+v, want 3 verified and 0 repaired", result)
			}

			b, err := a.Delete(rawID)
			if err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, err := os.Stat(b.Dest); !os.IsNotExist(err) {
				t.Errorf("replica %s still exists after Delete()", b.Dest)
			}
			if a.op.Failed() {
				t.Error("operation marked failed")
			}
		})
	}
}

func TestApp_InvalidID(t *testing.T) {
	a := newTestApp(t, config.NewConfig(t.TempDir()), Options{})

	if err := a.SoftDelete("abc"); err == nil {
		t.Error("SoftDelete() expected error for non-numeric id")
	}
	if !a.op.Failed() {
		t.Error("operation not marked failed")
	}
	if err := a.SoftDelete("42"); !errors.Is(err, hc.ErrBackupNotFound) {
		t.Errorf("SoftDelete() error = %v, want %v", err, hc.ErrBackupNotFound)
	}
}

func TestApp_CreateWritesErrorLog(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read unreadable files")
	}
	base := t.TempDir()
	a := newTestApp(t, config.NewConfig(base), Options{})

	src := filepath.Join(t.TempDir(), "src")
	testutil.WriteTree(t, src, map[string][]byte{
		"ok.txt":     []byte("ok"),
		"locked.txt": []byte("locked"),
	})
	if err := os.Chmod(filepath.Join(src, "locked.txt"), 0); err != nil {
		t.Fatal(err)
	}

	summary, errLog, err := a.Create(context.Background(), src, t.TempDir())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if summary.ErrorCount() != 1 || summary.Copied != 1 {
		t.Errorf("Create() copied %d with %d errors, want 1 and 1", summary.Copied, summary.ErrorCount())
	}
	if want := filepath.Join(base, "log", "errors-run-1.log"); errLog != want {
		t.Errorf("error log = %q, want %q", errLog, want)
	}
	if _, err := os.Stat(errLog); err != nil {
		t.Errorf("error log missing: %v", err)
	}
}

func TestNewApp_InvalidConfig(t *testing.T) {
	cfg := config.NewConfig(t.TempDir())
	cfg.Engine.Default = "bogus"
	if _, err := newApp(cfg, "test", Options{}, testutil.FixedClock(), testutil.NewRunIDs()); err == nil {
		t.Fatal("newApp() expected error for invalid config")
	}
}
