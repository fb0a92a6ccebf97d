package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"hardcpy/internal/config"
	"hardcpy/internal/database"
	"hardcpy/internal/hc"
	"hardcpy/internal/replicate"
)

// Options tune a single invocation.
type Options struct {
	Multithread bool // use the parallel strategy regardless of engine.default
	Verbose     bool // log at debug level
	Parameters  string
}

// App is the application layer between the CLI and hc.Service.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw CLI arguments, and manages the catalog lifecycle on Close.
type App struct {
	cfg     *config.Config
	catalog hc.Catalog
	service *hc.Service
	op      *Operation
	logger  *slog.Logger
	logFile *os.File
	clock   hc.Clock
}

// New creates a fully wired App from the given config.
// operation names the CLI command being run (e.g. "create", "verify").
// The caller must call Close when done.
func New(cfg *config.Config, operation string, opts Options) (*App, error) {
	return newApp(cfg, operation, opts, hc.RealClock{}, hc.UUIDGenerator{})
}

func newApp(cfg *config.Config, operation string, opts Options, clock hc.Clock, idgen hc.IDGenerator) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	op := NewOperation(idgen.New(), operation, opts.Parameters, clock.Now())

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger, logFile, err := newLogger(cfg.LogDir, op.RunID, level)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	hcLogger := &slogAdapter{l: logger}

	catalog, err := database.NewCatalogFromConfig(cfg.Catalog)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	if before, after, err := replicate.RaiseFDLimit(); err != nil {
		logger.Warn("could not raise open file limit", "error", err)
	} else if after != before {
		logger.Debug("raised open file limit", "from", before, "to", after)
	}

	var metrics replicate.Metrics = &replicate.NoopMetrics{}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		metrics = replicate.NewEngineMetrics(hcLogger)
	}

	copier := replicate.NewCopier(metrics)
	engine := cfg.Engine.Default
	if opts.Multithread {
		engine = config.EngineParallel
	}
	strategy, err := replicate.New(engine, copier, replicate.Options{
		Workers: cfg.Engine.Workers,
		Logger:  hcLogger,
		Metrics: metrics,
	})
	if err != nil {
		catalog.Close()
		logFile.Close()
		return nil, fmt.Errorf("selecting engine: %w", err)
	}

	verifier := hc.NewHashVerifier(copier, cfg.Hash.MemoryCeiling, cfg.Hash.ChunkSize)
	svc := hc.NewService(catalog, strategy, verifier, cfg.Filesystem.Ignore, hcLogger, clock)

	logger.Info("operation started", "operation", operation, "parameters", opts.Parameters, "engine", strategy.Name())

	return &App{
		cfg:     cfg,
		catalog: catalog,
		service: svc,
		op:      op,
		logger:  logger,
		logFile: logFile,
		clock:   clock,
	}, nil
}

// RunID identifies this invocation in the log and the error log name.
func (a *App) RunID() string { return a.op.RunID }

// List returns all catalogued backups.
func (a *App) List() ([]*hc.BackupInfo, error) {
	infos, err := a.service.List()
	return infos, a.track(err)
}

// SoftDelete removes a backup from the catalog, leaving its files on disk.
func (a *App) SoftDelete(rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return a.track(err)
	}
	return a.track(a.service.SoftDelete(id))
}

// Delete removes a backup's files and its catalog entry.
func (a *App) Delete(rawID string) (*hc.Backup, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, a.track(err)
	}
	b, err := a.service.Delete(id)
	return b, a.track(err)
}

// Create replicates source into destRoot and catalogues the result.
// The returned path names the error log, empty when nothing failed.
func (a *App) Create(ctx context.Context, source, destRoot string) (*hc.Summary, string, error) {
	summary, err := a.service.Create(ctx, source, destRoot)
	if err != nil {
		return nil, "", a.track(err)
	}
	logPath, err := a.recordErrors(summary.Errors)
	return summary, logPath, err
}

// Revert copies a backup back to the location it was taken from.
func (a *App) Revert(ctx context.Context, rawID string) (*hc.Summary, string, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, "", a.track(err)
	}
	summary, err := a.service.Revert(ctx, id)
	if err != nil {
		return nil, "", a.track(err)
	}
	logPath, err := a.recordErrors(summary.Errors)
	return summary, logPath, err
}

// Verify re-hashes a backup and repairs damaged replicas.
func (a *App) Verify(ctx context.Context, rawID string) (*hc.VerifyResult, string, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, "", a.track(err)
	}
	result, err := a.service.Verify(ctx, id)
	if err != nil {
		return nil, "", a.track(err)
	}
	logPath, err := a.recordErrors(result.Errors)
	return result, logPath, err
}

// Close logs the outcome of the operation and closes all resources.
func (a *App) Close() error {
	var firstErr error

	a.logger.Info("operation finished", "operation", a.op.Name, "status", a.op.Status,
		"duration", a.clock.Now().Sub(a.op.StartedAt))

	if err := a.catalog.Close(); err != nil {
		firstErr = fmt.Errorf("closing catalog: %w", err)
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}
	return firstErr
}

func (a *App) track(err error) error {
	if err != nil {
		a.op.Fail()
		a.logger.Error("operation failed", "operation", a.op.Name, "error", err)
	}
	return err
}

func (a *App) recordErrors(errs []string) (string, error) {
	if len(errs) == 0 {
		return "", nil
	}
	a.op.Fail()
	path, err := writeErrorLog(a.cfg.LogDir, a.op.RunID, errs)
	if err != nil {
		return "", a.track(err)
	}
	return path, nil
}

func parseID(raw string) (uint64, error) {
	id, err := hc.ParseBackupID(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid backup id %q: %w", raw, err)
	}
	return id, nil
}
