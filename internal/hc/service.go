package hc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"hardcpy/internal/ignore"
)

// Service coordinates discovery, copying, hashing and the catalog to
// implement the high-level commands of the CLI.
type Service struct {
	catalog  Catalog
	strategy Strategy
	verifier *HashVerifier
	ignore   []string
	logger   Logger
	clock    Clock
}

// NewService creates a Service. ignore holds configured patterns applied to
// every create in addition to the source tree's own ignore file.
func NewService(catalog Catalog, strategy Strategy, verifier *HashVerifier, ignore []string, logger Logger, clock Clock) *Service {
	return &Service{
		catalog:  catalog,
		strategy: strategy,
		verifier: verifier,
		ignore:   ignore,
		logger:   logger,
		clock:    clock,
	}
}

// Create replicates source into destRoot/<source name>, catalogues every
// copied file with its source digest and verifies the replica.
// Setup failures (unreadable source, uncreatable destination) return an
// error before anything is written to the catalog. Per-file failures are
// collected in the returned Summary.
func (s *Service) Create(ctx context.Context, source, destRoot string) (*Summary, error) {
	start := s.clock.Now()

	source, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("resolving source: %w", err)
	}
	destRoot, err = filepath.Abs(destRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving destination: %w", err)
	}
	if err := checkDir(source); err != nil {
		return nil, fmt.Errorf("opening source: %w", err)
	}
	if err := os.MkdirAll(destRoot, 0755); err != nil {
		return nil, fmt.Errorf("creating destination: %w", err)
	}

	sourceName := filepath.Base(source)
	dest := filepath.Join(destRoot, sourceName)
	id := BackupID(source, dest)

	existing, err := s.catalog.GetBackup(id)
	if err != nil {
		return nil, fmt.Errorf("looking up backup: %w", err)
	}
	if existing != nil && (existing.Source != source || existing.Dest != dest) {
		s.logger.Error("backup id collision", "id", id, "source", source, "dest", dest,
			"existing_source", existing.Source, "existing_dest", existing.Dest)
		return nil, fmt.Errorf("backup id %d already belongs to %s -> %s", id, existing.Source, existing.Dest)
	}

	matcher, err := s.matcher(source)
	if err != nil {
		return nil, err
	}

	plan := Plan{Source: source, SourceName: sourceName, DestRoot: destRoot, Ignore: matcher}
	c := NewConclusion()
	if err := s.replicate(ctx, plan, c); err != nil {
		return nil, err
	}

	records, err := s.hashCopied(ctx, id, c)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	backup := &Backup{ID: id, Source: source, Dest: dest, CreatedAt: now, UpdatedAt: now}
	if existing != nil {
		backup.CreatedAt = existing.CreatedAt
	}
	if err := s.catalog.PutBackup(backup); err != nil {
		return nil, fmt.Errorf("saving backup: %w", err)
	}
	if err := s.catalog.ReplaceFiles(id, records); err != nil {
		return nil, fmt.Errorf("saving file records: %w", err)
	}
	s.logger.Info("backup catalogued", "id", id, "files", len(records))

	_, repaired, err := s.verifyRecords(ctx, records, c)
	if err != nil {
		return nil, err
	}

	report := c.Report()
	summary := &Summary{
		BackupID:   id,
		Source:     source,
		Dest:       dest,
		Copied:     len(report.Paths),
		TotalCount: report.TotalCount,
		TotalSize:  report.TotalSize,
		Repaired:   repaired,
		Elapsed:    s.clock.Now().Sub(start),
		Errors:     report.Errors,
	}
	s.logger.Info("create finished", "id", id, "copied", summary.Copied,
		"repaired", repaired, "errors", summary.ErrorCount())
	return summary, nil
}

// List returns every catalogued backup with its file count.
func (s *Service) List() ([]*BackupInfo, error) {
	backups, err := s.catalog.ListBackups()
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	infos := make([]*BackupInfo, 0, len(backups))
	for _, b := range backups {
		n, err := s.catalog.CountFiles(b.ID)
		if err != nil {
			return nil, fmt.Errorf("counting files of %d: %w", b.ID, err)
		}
		infos = append(infos, &BackupInfo{Backup: b, FileCount: n})
	}
	return infos, nil
}

// SoftDelete removes a backup from the catalog and leaves its replica on disk.
func (s *Service) SoftDelete(id uint64) error {
	ok, err := s.catalog.DeleteBackup(id)
	if err != nil {
		return fmt.Errorf("deleting backup %d: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrBackupNotFound, id)
	}
	s.logger.Info("backup removed from catalog", "id", id)
	return nil
}

// Delete removes the replica directory and then the catalog entry. The
// catalog entry is removed even if the directory could not be; both errors
// are reported.
func (s *Service) Delete(id uint64) (*Backup, error) {
	b, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	var fsErr error
	if err := os.RemoveAll(b.Dest); err != nil {
		fsErr = fmt.Errorf("removing %s: %w", b.Dest, err)
		s.logger.Error("removing replica failed", "id", id, "dest", b.Dest, "error", err)
	}
	if _, err := s.catalog.DeleteBackup(id); err != nil {
		return b, errors.Join(fsErr, fmt.Errorf("deleting backup %d: %w", id, err))
	}
	s.logger.Info("backup deleted", "id", id, "dest", b.Dest)
	return b, fsErr
}

// Verify re-hashes every replica of a backup, repairing missing or modified
// files from their source. Repaired records get the new digest.
func (s *Service) Verify(ctx context.Context, id uint64) (*VerifyResult, error) {
	start := s.clock.Now()
	if _, err := s.lookup(id); err != nil {
		return nil, err
	}

	records, err := s.catalog.ListFiles(id)
	if err != nil {
		return nil, fmt.Errorf("listing files of %d: %w", id, err)
	}
	s.logger.Info("verifying backup", "id", id, "files", len(records))

	c := NewConclusion()
	verified, repaired, err := s.verifyRecords(ctx, records, c)
	if err != nil {
		return nil, err
	}
	report := c.Report()
	result := &VerifyResult{
		BackupID: id,
		Total:    len(records),
		Verified: verified,
		Repaired: repaired,
		Elapsed:  s.clock.Now().Sub(start),
		Errors:   report.Errors,
	}
	s.logger.Info("verify finished", "id", id, "verified", verified,
		"repaired", repaired, "errors", result.ErrorCount())
	return result, nil
}

// Revert copies a replica back over the parent directory of its source, so
// the tree reappears at its original location. Restored files are checked
// against the catalogued digests; mismatches are reported, not repaired.
// The catalog is not modified.
func (s *Service) Revert(ctx context.Context, id uint64) (*Summary, error) {
	start := s.clock.Now()
	b, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := checkDir(b.Dest); err != nil {
		return nil, fmt.Errorf("opening replica: %w", err)
	}
	destRoot := filepath.Dir(b.Source)
	if err := os.MkdirAll(destRoot, 0755); err != nil {
		return nil, fmt.Errorf("creating restore target: %w", err)
	}

	plan := Plan{Source: b.Dest, SourceName: filepath.Base(b.Dest), DestRoot: destRoot}
	c := NewConclusion()
	if err := s.replicate(ctx, plan, c); err != nil {
		return nil, err
	}

	records, err := s.catalog.ListFiles(id)
	if err != nil {
		return nil, fmt.Errorf("listing files of %d: %w", id, err)
	}
	byReplica := make(map[string]*FileRecord, len(records))
	for _, rec := range records {
		byReplica[rec.Dest] = rec
	}

	report := c.Report()
	for _, p := range report.Paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, ok := byReplica[p.Source]
		if !ok {
			continue
		}
		match, err := s.verifier.Matches(p.Dest, rec.SHA256)
		if err != nil {
			c.AddError(fmt.Sprintf("couldn't hash %s: %v", p.Dest, err))
			continue
		}
		if !match {
			c.AddError(fmt.Sprintf("digest mismatch for %s", p.Dest))
			s.logger.Error("restored file does not match catalog", "path", p.Dest)
		}
	}

	report = c.Report()
	summary := &Summary{
		BackupID:   id,
		Source:     b.Dest,
		Dest:       filepath.Join(destRoot, plan.SourceName),
		Copied:     len(report.Paths),
		TotalCount: report.TotalCount,
		TotalSize:  report.TotalSize,
		Elapsed:    s.clock.Now().Sub(start),
		Errors:     report.Errors,
	}
	s.logger.Info("revert finished", "id", id, "copied", summary.Copied, "errors", summary.ErrorCount())
	return summary, nil
}

func (s *Service) lookup(id uint64) (*Backup, error) {
	b, err := s.catalog.GetBackup(id)
	if err != nil {
		return nil, fmt.Errorf("looking up backup %d: %w", id, err)
	}
	if b == nil {
		return nil, fmt.Errorf("%w: %d", ErrBackupNotFound, id)
	}
	return b, nil
}

func (s *Service) replicate(ctx context.Context, plan Plan, c *Conclusion) error {
	s.logger.Info("discovering files", "source", plan.Source, "strategy", s.strategy.Name())
	entries, err := s.strategy.Discover(ctx, plan, c)
	if err != nil {
		return fmt.Errorf("discovering files: %w", err)
	}
	s.logger.Info("copying files", "pending", len(entries))
	if err := s.strategy.Copy(ctx, entries, c); err != nil {
		return fmt.Errorf("copying files: %w", err)
	}
	c.Finish()
	return nil
}

// hashCopied digests the source of every copied file. Files that cannot be
// hashed are reported and left out of the catalog.
func (s *Service) hashCopied(ctx context.Context, id uint64, c *Conclusion) ([]*FileRecord, error) {
	paths := c.Report().Paths
	records := make([]*FileRecord, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := os.Stat(p.Source)
		if err != nil {
			c.AddError(fmt.Sprintf("couldn't stat %s: %v", p.Source, err))
			continue
		}
		sum, err := s.verifier.Digest(p.Source)
		if err != nil {
			c.AddError(fmt.Sprintf("couldn't hash %s: %v", p.Source, err))
			continue
		}
		records = append(records, &FileRecord{
			BackupID: id,
			Source:   p.Source,
			Dest:     p.Dest,
			SHA256:   sum,
			Size:     info.Size(),
		})
	}
	return records, nil
}

// verifyRecords verifies each record, storing the new digest of any replica
// whose content changed.
func (s *Service) verifyRecords(ctx context.Context, records []*FileRecord, c *Conclusion) (verified, repaired int, err error) {
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return verified, repaired, err
		}
		out, err := s.verifier.Verify(rec)
		if err != nil {
			c.AddError(fmt.Sprintf("couldn't verify %s: %v", rec.Dest, err))
			s.logger.Error("verification failed", "path", rec.Dest, "error", err)
			continue
		}
		verified++
		if out.Repaired {
			repaired++
			s.logger.Warn("replica repaired", "path", rec.Dest)
		}
		if out.Digest != rec.SHA256 {
			rec.SHA256 = out.Digest
			if err := s.catalog.PutFile(rec); err != nil {
				c.AddError(fmt.Sprintf("couldn't update record for %s: %v", rec.Dest, err))
			}
		}
	}
	return verified, repaired, nil
}

func (s *Service) matcher(root string) (Matcher, error) {
	patterns, err := ignore.ParseFile(filepath.Join(root, ignore.FileName))
	if err != nil {
		return nil, err
	}
	patterns = append(slices.Clone(s.ignore), patterns...)
	if len(patterns) == 0 {
		return nil, nil
	}
	return ignore.NewMatcher(patterns), nil
}

func checkDir(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}
