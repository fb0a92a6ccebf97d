package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hardcpy/internal/database/migrations"
	"hardcpy/internal/hc"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteCatalog implements hc.Catalog on SQLite.
type SQLiteCatalog struct {
	db      *sql.DB
	queries *queries
	path    string
}

// NewSQLiteCatalog opens the catalog at path, or an in-memory catalog for
// ":memory:", and brings its schema up to date.
func NewSQLiteCatalog(path string) (*SQLiteCatalog, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating catalog: %w", err)
	}
	if err := migrations.CheckDBMigrationStatus(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("checking catalog schema: %w", err)
	}
	return NewSQLiteCatalogFromDB(db, path), nil
}

// NewSQLiteCatalogFromDB wraps an existing, already migrated connection.
func NewSQLiteCatalogFromDB(db *sql.DB, path string) *SQLiteCatalog {
	return &SQLiteCatalog{
		db:      db,
		queries: newQueries(db),
		path:    path,
	}
}

// OpenConnection opens and configures a SQLite connection.
// path can be a file path or ":memory:" for an in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Path returns the database path the catalog was opened with.
func (s *SQLiteCatalog) Path() string { return s.path }

func (s *SQLiteCatalog) PutBackup(b *hc.Backup) error {
	err := s.queries.upsertBackup(context.Background(), backupRow{
		ID:          int64(b.ID),
		Source:      b.Source,
		Dest:        b.Dest,
		Compression: sql.NullString{String: b.Compression, Valid: b.Compression != ""},
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("upserting backup %d: %w", b.ID, err)
	}
	return nil
}

func (s *SQLiteCatalog) GetBackup(id uint64) (*hc.Backup, error) {
	row, err := s.queries.getBackup(context.Background(), int64(id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("getting backup %d: %w", id, err)
	}
	return row.toBackup(), nil
}

func (s *SQLiteCatalog) ListBackups() ([]*hc.Backup, error) {
	rows, err := s.queries.listBackups(context.Background())
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	backups := make([]*hc.Backup, len(rows))
	for i := range rows {
		backups[i] = rows[i].toBackup()
	}
	return backups, nil
}

// DeleteBackup removes the backup and its file records in one transaction.
func (s *SQLiteCatalog) DeleteBackup(id uint64) (bool, error) {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.withTx(tx)
	if err := qtx.deleteFilesByBackup(ctx, int64(id)); err != nil {
		return false, fmt.Errorf("deleting files of backup %d: %w", id, err)
	}
	n, err := qtx.deleteBackup(ctx, int64(id))
	if err != nil {
		return false, fmt.Errorf("deleting backup %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing transaction: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteCatalog) PutFile(rec *hc.FileRecord) error {
	if err := s.queries.upsertFile(context.Background(), fileRowFrom(rec)); err != nil {
		return fmt.Errorf("upserting file %s: %w", rec.Dest, err)
	}
	return nil
}

func (s *SQLiteCatalog) ReplaceFiles(backupID uint64, recs []*hc.FileRecord) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.withTx(tx)
	if err := qtx.deleteFilesByBackup(ctx, int64(backupID)); err != nil {
		return fmt.Errorf("clearing files of backup %d: %w", backupID, err)
	}
	for _, rec := range recs {
		row := fileRowFrom(rec)
		row.BackupID = int64(backupID)
		if err := qtx.upsertFile(ctx, row); err != nil {
			return fmt.Errorf("inserting file %s: %w", rec.Dest, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteCatalog) ListFiles(backupID uint64) ([]*hc.FileRecord, error) {
	rows, err := s.queries.listFiles(context.Background(), int64(backupID))
	if err != nil {
		return nil, fmt.Errorf("listing files of backup %d: %w", backupID, err)
	}
	recs := make([]*hc.FileRecord, len(rows))
	for i, r := range rows {
		recs[i] = &hc.FileRecord{
			BackupID: uint64(r.BackupID),
			Source:   r.Source,
			Dest:     r.Dest,
			SHA256:   r.SHA256,
			Size:     r.Size,
		}
	}
	return recs, nil
}

func (s *SQLiteCatalog) CountFiles(backupID uint64) (int, error) {
	n, err := s.queries.countFiles(context.Background(), int64(backupID))
	if err != nil {
		return 0, fmt.Errorf("counting files of backup %d: %w", backupID, err)
	}
	return n, nil
}

func (s *SQLiteCatalog) Close() error {
	return s.db.Close()
}

func (r backupRow) toBackup() *hc.Backup {
	return &hc.Backup{
		ID:          uint64(r.ID),
		Source:      r.Source,
		Dest:        r.Dest,
		Compression: r.Compression.String,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func fileRowFrom(rec *hc.FileRecord) fileRow {
	return fileRow{
		BackupID: int64(rec.BackupID),
		Source:   rec.Source,
		Dest:     rec.Dest,
		SHA256:   rec.SHA256,
		Size:     rec.Size,
	}
}

var _ hc.Catalog = (*SQLiteCatalog)(nil)
