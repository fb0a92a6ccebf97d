package replicate

import (
	"context"
	"fmt"

	"hardcpy/internal/hc"
)

// Sequential walks the tree from a stack of pending directory paths and
// copies on the calling goroutine. At most one directory is open at a time.
type Sequential struct {
	copier *Copier
	opts   Options
	open   dirOpener
}

func NewSequential(copier *Copier, opts Options) *Sequential {
	return &Sequential{copier: copier, opts: opts.withDefaults(), open: openDir}
}

func (s *Sequential) Name() string { return StrategySequential }

func (s *Sequential) Discover(ctx context.Context, plan hc.Plan, c *hc.Conclusion) ([]hc.Entry, error) {
	root, err := s.open(plan.Source)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", plan.Source, err)
	}

	s.opts.Metrics.StartProgress("discovering", s.opts.ProgressInterval)
	defer s.opts.Metrics.StopProgress()

	guard := NewGuard(s.copier, c, s.opts.Logger, s.opts.Metrics, s.opts.ProgressInterval)
	w := &walker{
		plan:    plan,
		guard:   guard,
		c:       c,
		open:    s.open,
		logger:  s.opts.Logger,
		metrics: s.opts.Metrics,
	}

	var stack []string
	push := func(path string) error {
		stack = append(stack, path)
		return nil
	}
	if err := w.visit(ctx, root, push); err != nil {
		return nil, err
	}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		dir, ok := w.enter(ctx, path)
		if !ok {
			continue
		}
		if err := w.visit(ctx, dir, push); err != nil {
			return nil, err
		}
	}
	return guard.Remaining(), nil
}

func (s *Sequential) Copy(ctx context.Context, entries []hc.Entry, c *hc.Conclusion) error {
	s.opts.Metrics.StartProgress("copying", s.opts.ProgressInterval)
	defer s.opts.Metrics.StopProgress()

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		copyOne(s.copier, c, s.opts.Logger, e)
	}
	return nil
}

var _ hc.Strategy = (*Sequential)(nil)
