package replicate

import (
	"context"
	"os"
	"sync"
	"time"

	"hardcpy/internal/hc"
)

// maxReliefAttempts bounds how often one directory open is retried after
// relieving descriptor pressure.
const maxReliefAttempts = 3

// dirHandle is the part of *os.File discovery needs.
type dirHandle interface {
	Name() string
	ReadDir(n int) ([]os.DirEntry, error)
	Close() error
}

// dirOpener opens a directory for reading.
type dirOpener func(path string) (dirHandle, error)

func openDir(path string) (dirHandle, error) {
	return os.Open(path)
}

// Guard holds the entries discovered but not yet copied and empties that
// backlog through the Copier when directory opens fail for lack of file
// descriptors. It is shared by all discovery workers of one run.
type Guard struct {
	copier     *Copier
	conclusion *hc.Conclusion
	logger     hc.Logger
	metrics    Metrics
	interval   time.Duration

	mu      sync.Mutex
	backlog []hc.Entry

	drainMu    sync.Mutex
	generation uint64 // guarded by mu, bumped after each completed drain
}

// NewGuard creates a Guard. interval paces the progress reported while a
// drain runs.
func NewGuard(copier *Copier, conclusion *hc.Conclusion, logger hc.Logger, metrics Metrics, interval time.Duration) *Guard {
	if interval <= 0 {
		interval = time.Second
	}
	return &Guard{
		copier:     copier,
		conclusion: conclusion,
		logger:     logger,
		metrics:    metrics,
		interval:   interval,
	}
}

// Add appends a discovered entry to the backlog.
func (g *Guard) Add(e hc.Entry) {
	g.mu.Lock()
	g.backlog = append(g.backlog, e)
	g.mu.Unlock()
}

// Len returns the current backlog size.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.backlog)
}

// Relieve copies the whole backlog synchronously and reports whether
// descriptor pressure may have eased: either this call copied something or
// another caller finished a drain while this one waited. Copied entries are
// recorded in the Conclusion and never handed to the copy phase. Entries
// whose copy itself ran out of descriptors stay in the backlog.
func (g *Guard) Relieve(ctx context.Context) bool {
	g.mu.Lock()
	seen := g.generation
	g.mu.Unlock()

	g.drainMu.Lock()
	defer g.drainMu.Unlock()

	g.mu.Lock()
	if g.generation != seen {
		g.mu.Unlock()
		return true
	}
	pending := g.backlog
	g.backlog = nil
	g.mu.Unlock()

	if len(pending) == 0 {
		return false
	}

	g.logger.Warn("too many open files, copying discovered files before continuing", "pending", len(pending))
	g.metrics.AddDrains(1)
	g.metrics.StartProgress("draining", g.interval)
	defer g.metrics.StartProgress("discovering", g.interval)

	var deferred []hc.Entry
	copied := 0
	for i, e := range pending {
		if ctx.Err() != nil {
			deferred = append(deferred, pending[i:]...)
			break
		}
		dest, err := g.copier.CopyEntry(e)
		if err != nil && isFdExhausted(err) {
			deferred = append(deferred, e)
			continue
		}
		recordCopy(g.conclusion, g.logger, e, dest, err)
		if err == nil {
			copied++
		}
	}

	g.mu.Lock()
	g.backlog = append(g.backlog, deferred...)
	if copied > 0 {
		g.generation++
	}
	g.mu.Unlock()
	return copied > 0
}

// Remaining takes the backlog for the copy phase.
func (g *Guard) Remaining() []hc.Entry {
	g.mu.Lock()
	defer g.mu.Unlock()
	rest := g.backlog
	g.backlog = nil
	return rest
}

// open opens path, relieving descriptor pressure and retrying when the open
// fails with EMFILE or ENFILE.
func (g *Guard) open(ctx context.Context, opener dirOpener, path string) (dirHandle, error) {
	for attempt := 0; ; attempt++ {
		h, err := opener(path)
		if err == nil {
			return h, nil
		}
		if !isFdExhausted(err) || attempt >= maxReliefAttempts {
			return nil, err
		}
		if !g.Relieve(ctx) {
			return nil, err
		}
	}
}
