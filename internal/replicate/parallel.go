package replicate

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"hardcpy/internal/hc"
)

// Parallel fans discovery and copying out over a bounded pool of goroutines.
// A subdirectory goes to a free worker; when the pool is full the current
// worker walks it inline, so no worker ever waits on another.
type Parallel struct {
	copier *Copier
	opts   Options
	open   dirOpener
}

func NewParallel(copier *Copier, opts Options) *Parallel {
	return &Parallel{copier: copier, opts: opts.withDefaults(), open: openDir}
}

func (p *Parallel) Name() string { return StrategyParallel }

func (p *Parallel) Discover(ctx context.Context, plan hc.Plan, c *hc.Conclusion) ([]hc.Entry, error) {
	root, err := p.open(plan.Source)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", plan.Source, err)
	}

	p.opts.Metrics.StartProgress("discovering", p.opts.ProgressInterval)
	defer p.opts.Metrics.StopProgress()

	guard := NewGuard(p.copier, c, p.opts.Logger, p.opts.Metrics, p.opts.ProgressInterval)
	w := &walker{
		plan:    plan,
		guard:   guard,
		c:       c,
		open:    p.open,
		logger:  p.opts.Logger,
		metrics: p.opts.Metrics,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)

	var descend func(path string) error
	walk := func(path string) error {
		dir, ok := w.enter(gctx, path)
		if !ok {
			return nil
		}
		return w.visit(gctx, dir, descend)
	}
	descend = func(path string) error {
		if g.TryGo(func() error { return walk(path) }) {
			return nil
		}
		return walk(path)
	}
	g.Go(func() error { return w.visit(gctx, root, descend) })

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return guard.Remaining(), nil
}

func (p *Parallel) Copy(ctx context.Context, entries []hc.Entry, c *hc.Conclusion) error {
	p.opts.Metrics.StartProgress("copying", p.opts.ProgressInterval)
	defer p.opts.Metrics.StopProgress()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for _, e := range entries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			copyOne(p.copier, c, p.opts.Logger, e)
			return nil
		})
	}
	g.Wait()
	return ctx.Err()
}

var _ hc.Strategy = (*Parallel)(nil)
