package replicate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/singleflight"

	"hardcpy/internal/hc"
)

// Copier writes replicas. It is safe for concurrent use; concurrent requests
// for the same parent directory share one MkdirAll.
type Copier struct {
	metrics Metrics
	mkdirs  singleflight.Group
}

func NewCopier(metrics Metrics) *Copier {
	if metrics == nil {
		metrics = &NoopMetrics{}
	}
	return &Copier{metrics: metrics}
}

// CopyEntry copies a discovered file to its rewritten destination and
// returns that destination.
func (c *Copier) CopyEntry(e hc.Entry) (string, error) {
	dest := RewritePath(e.Path, e.SourceName, e.DestRoot)
	if err := c.CopyFile(e.Path, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// CopyFile replaces dst with the content of src, creating missing parent
// directories. The replica is written to a temporary file in the target
// directory and renamed into place; it keeps the permission bits of src.
func (c *Copier) CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	dir := filepath.Dir(dst)
	if err := c.ensureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".hardcpy-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, in)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		tmp.Close()
		return fmt.Errorf("setting mode on %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("renaming into %s: %w", dst, err)
	}
	success = true

	c.metrics.AddFilesCopied(1)
	c.metrics.AddBytesCopied(written)
	return nil
}

func (c *Copier) ensureDir(dir string) error {
	_, err, _ := c.mkdirs.Do(dir, func() (any, error) {
		if _, err := os.Stat(dir); err == nil {
			return nil, nil
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", dir, err)
		}
		c.metrics.AddDirsCreated(1)
		return nil, nil
	})
	return err
}

// copyOne copies e and records the outcome in c.
func copyOne(copier *Copier, conclusion *hc.Conclusion, logger hc.Logger, e hc.Entry) {
	dest, err := copier.CopyEntry(e)
	recordCopy(conclusion, logger, e, dest, err)
}

func recordCopy(conclusion *hc.Conclusion, logger hc.Logger, e hc.Entry, dest string, err error) {
	if err != nil {
		conclusion.AddError(fmt.Sprintf("couldn't copy %s: %v", e.Path, err))
		logger.Error("copy failed", "path", e.Path, "error", err)
		return
	}
	conclusion.AddPath(e.Path, dest)
}

var _ hc.FileCopier = (*Copier)(nil)
