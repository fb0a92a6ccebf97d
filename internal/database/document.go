package database

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"hardcpy/internal/hc"
)

// documentSchemaVersion is written into every catalog document. Documents
// with a different version are rejected.
const documentSchemaVersion = 1

type document struct {
	SchemaVersion int              `toml:"schema_version"`
	Backups       []documentBackup `toml:"backups"`
}

type documentBackup struct {
	ID          string         `toml:"id"` // decimal; TOML integers cannot hold every uint64
	Source      string         `toml:"source"`
	Dest        string         `toml:"dest"`
	Compression string         `toml:"compression,omitempty"`
	CreatedAt   time.Time      `toml:"created_at"`
	UpdatedAt   time.Time      `toml:"updated_at"`
	Files       []documentFile `toml:"files"`
}

type documentFile struct {
	Source string `toml:"source"`
	Dest   string `toml:"dest"`
	SHA256 string `toml:"sha256"`
	Size   int64  `toml:"size"`
}

// DocumentCatalog implements hc.Catalog as a single TOML file. Every
// mutation rewrites the file atomically.
type DocumentCatalog struct {
	path string

	mu      sync.Mutex
	backups []*documentBackup
}

// NewDocumentCatalog loads the catalog at path. A missing file is an empty
// catalog; it is created on the first write.
func NewDocumentCatalog(path string) (*DocumentCatalog, error) {
	c := &DocumentCatalog{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	var doc document
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("decoding catalog %s: %w", path, err)
	}
	if doc.SchemaVersion != documentSchemaVersion {
		return nil, fmt.Errorf("catalog %s has schema version %d, want %d", path, doc.SchemaVersion, documentSchemaVersion)
	}
	for i := range doc.Backups {
		if _, err := strconv.ParseUint(doc.Backups[i].ID, 10, 64); err != nil {
			return nil, fmt.Errorf("catalog %s: invalid backup id %q", path, doc.Backups[i].ID)
		}
		c.backups = append(c.backups, &doc.Backups[i])
	}
	return c, nil
}

func (c *DocumentCatalog) PutBackup(b *hc.Backup) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := slices.Clone(c.backups)
	if i := c.index(b.ID); i >= 0 {
		updated := *next[i]
		updated.Source = b.Source
		updated.Dest = b.Dest
		updated.Compression = b.Compression
		updated.UpdatedAt = b.UpdatedAt
		next[i] = &updated
	} else {
		next = append(next, &documentBackup{
			ID:          strconv.FormatUint(b.ID, 10),
			Source:      b.Source,
			Dest:        b.Dest,
			Compression: b.Compression,
			CreatedAt:   b.CreatedAt,
			UpdatedAt:   b.UpdatedAt,
		})
	}
	return c.commit(next)
}

func (c *DocumentCatalog) GetBackup(id uint64) (*hc.Backup, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b := c.find(id)
	if b == nil {
		return nil, nil
	}
	return b.toBackup(id), nil
}

func (c *DocumentCatalog) ListBackups() ([]*hc.Backup, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	backups := make([]*hc.Backup, 0, len(c.backups))
	for _, b := range c.backups {
		id, _ := strconv.ParseUint(b.ID, 10, 64)
		backups = append(backups, b.toBackup(id))
	}
	return backups, nil
}

func (c *DocumentCatalog) DeleteBackup(id uint64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(id)
	if i < 0 {
		return false, nil
	}
	if err := c.commit(slices.Delete(slices.Clone(c.backups), i, i+1)); err != nil {
		return false, err
	}
	return true, nil
}

func (c *DocumentCatalog) PutFile(rec *hc.FileRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(rec.BackupID)
	if i < 0 {
		return fmt.Errorf("%w: %d", hc.ErrBackupNotFound, rec.BackupID)
	}
	updated := *c.backups[i]
	updated.Files = slices.Clone(updated.Files)
	f := documentFile{Source: rec.Source, Dest: rec.Dest, SHA256: rec.SHA256, Size: rec.Size}
	j := slices.IndexFunc(updated.Files, func(x documentFile) bool { return x.Source == rec.Source && x.Dest == rec.Dest })
	if j >= 0 {
		updated.Files[j] = f
	} else {
		updated.Files = append(updated.Files, f)
	}
	return c.commit(c.replacing(i, &updated))
}

func (c *DocumentCatalog) ReplaceFiles(backupID uint64, recs []*hc.FileRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(backupID)
	if i < 0 {
		return fmt.Errorf("%w: %d", hc.ErrBackupNotFound, backupID)
	}
	updated := *c.backups[i]
	updated.Files = make([]documentFile, 0, len(recs))
	for _, rec := range recs {
		updated.Files = append(updated.Files, documentFile{Source: rec.Source, Dest: rec.Dest, SHA256: rec.SHA256, Size: rec.Size})
	}
	return c.commit(c.replacing(i, &updated))
}

func (c *DocumentCatalog) ListFiles(backupID uint64) ([]*hc.FileRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b := c.find(backupID)
	if b == nil {
		return nil, nil
	}
	recs := make([]*hc.FileRecord, len(b.Files))
	for i, f := range b.Files {
		recs[i] = &hc.FileRecord{BackupID: backupID, Source: f.Source, Dest: f.Dest, SHA256: f.SHA256, Size: f.Size}
	}
	return recs, nil
}

func (c *DocumentCatalog) CountFiles(backupID uint64) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if b := c.find(backupID); b != nil {
		return len(b.Files), nil
	}
	return 0, nil
}

func (c *DocumentCatalog) Close() error { return nil }

func (c *DocumentCatalog) find(id uint64) *documentBackup {
	if i := c.index(id); i >= 0 {
		return c.backups[i]
	}
	return nil
}

func (c *DocumentCatalog) index(id uint64) int {
	key := strconv.FormatUint(id, 10)
	return slices.IndexFunc(c.backups, func(b *documentBackup) bool { return b.ID == key })
}

// replacing returns a copy of the backup list with entry i swapped for b.
func (c *DocumentCatalog) replacing(i int, b *documentBackup) []*documentBackup {
	next := slices.Clone(c.backups)
	next[i] = b
	return next
}

// commit writes backups to disk and adopts them only once the write
// succeeded, so a failed save leaves the catalog unchanged. c.mu must be held.
func (c *DocumentCatalog) commit(backups []*documentBackup) error {
	doc := document{SchemaVersion: documentSchemaVersion}
	for _, b := range backups {
		doc.Backups = append(doc.Backups, *b)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating catalog directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".catalog-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming catalog: %w", err)
	}
	c.backups = backups
	return nil
}

func (b *documentBackup) toBackup(id uint64) *hc.Backup {
	return &hc.Backup{
		ID:          id,
		Source:      b.Source,
		Dest:        b.Dest,
		Compression: b.Compression,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

var _ hc.Catalog = (*DocumentCatalog)(nil)
