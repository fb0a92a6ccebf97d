package replicate

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"hardcpy/internal/hc"
)

const (
	StrategySequential = "sequential"
	StrategyParallel   = "parallel"
)

// Options configures a Strategy.
type Options struct {
	Workers          int // parallel pool size; <= 0 means 4 * GOMAXPROCS
	Logger           hc.Logger
	Metrics          Metrics
	ProgressInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4 * runtime.GOMAXPROCS(0)
	}
	if o.Logger == nil {
		o.Logger = hc.NewNopLogger()
	}
	if o.Metrics == nil {
		o.Metrics = &NoopMetrics{}
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = time.Second
	}
	return o
}

// New returns the strategy registered under name.
func New(name string, copier *Copier, opts Options) (hc.Strategy, error) {
	switch name {
	case StrategySequential, "":
		return NewSequential(copier, opts), nil
	case StrategyParallel:
		return NewParallel(copier, opts), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

// walker holds the state one discovery run shares across directories.
type walker struct {
	plan    hc.Plan
	guard   *Guard
	c       *hc.Conclusion
	open    dirOpener
	logger  hc.Logger
	metrics Metrics
}

// visit lists dir, queues its regular files on the guard and hands the path
// of each subdirectory to descend. dir is closed before descend is called, so
// a walk holds no directory descriptor while work is queued.
func (w *walker) visit(ctx context.Context, dir dirHandle, descend func(path string) error) error {
	dirPath := dir.Name()
	entries, err := dir.ReadDir(-1)
	dir.Close()
	if err != nil {
		w.skip(dirPath, err)
	}

	for _, de := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(dirPath, de.Name())
		if w.ignored(path) {
			continue
		}

		switch {
		case de.IsDir():
			if err := descend(path); err != nil {
				return err
			}
		case de.Type().IsRegular():
			info, err := de.Info()
			if err != nil {
				w.skip(path, err)
				continue
			}
			w.guard.Add(hc.Entry{
				Path:       path,
				Size:       info.Size(),
				SourceName: w.plan.SourceName,
				DestRoot:   w.plan.DestRoot,
			})
			w.c.AddCount(1)
			w.c.AddSize(info.Size())
			w.metrics.AddFilesDiscovered(1)
		}
	}
	return nil
}

// enter opens the directory at path through the guard. A directory that
// cannot be opened is recorded and skipped.
func (w *walker) enter(ctx context.Context, path string) (dirHandle, bool) {
	h, err := w.guard.open(ctx, w.open, path)
	if err != nil {
		w.skip(path, err)
		w.metrics.AddDirsSkipped(1)
		return nil, false
	}
	return h, true
}

func (w *walker) ignored(path string) bool {
	if w.plan.Ignore == nil {
		return false
	}
	rel, err := filepath.Rel(w.plan.Source, path)
	if err != nil {
		return false
	}
	return w.plan.Ignore.Match(rel)
}

func (w *walker) skip(path string, err error) {
	w.c.AddError(fmt.Sprintf("couldn't read %s: %v. Skipping", path, err))
	w.logger.Error("skipping unreadable path", "path", path, "error", err)
}
