package database

import (
	"context"
	"database/sql"
	"time"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db dbtx
}

func newQueries(db dbtx) *queries {
	return &queries{db: db}
}

func (q *queries) withTx(tx *sql.Tx) *queries {
	return &queries{db: tx}
}

type backupRow struct {
	ID          int64
	Source      string
	Dest        string
	Compression sql.NullString
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type fileRow struct {
	BackupID int64
	Source   string
	Dest     string
	SHA256   string
	Size     int64
}

const upsertBackup = `
INSERT INTO backups (id, source, dest, compression, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    source = excluded.source,
    dest = excluded.dest,
    compression = excluded.compression,
    updated_at = excluded.updated_at`

func (q *queries) upsertBackup(ctx context.Context, r backupRow) error {
	_, err := q.db.ExecContext(ctx, upsertBackup, r.ID, r.Source, r.Dest, r.Compression, r.CreatedAt, r.UpdatedAt)
	return err
}

const getBackup = `
SELECT id, source, dest, compression, created_at, updated_at
FROM backups WHERE id = ?`

func (q *queries) getBackup(ctx context.Context, id int64) (backupRow, error) {
	var r backupRow
	err := q.db.QueryRowContext(ctx, getBackup, id).Scan(
		&r.ID, &r.Source, &r.Dest, &r.Compression, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

const listBackups = `
SELECT id, source, dest, compression, created_at, updated_at
FROM backups ORDER BY created_at, id`

func (q *queries) listBackups(ctx context.Context) ([]backupRow, error) {
	rows, err := q.db.QueryContext(ctx, listBackups)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []backupRow
	for rows.Next() {
		var r backupRow
		if err := rows.Scan(&r.ID, &r.Source, &r.Dest, &r.Compression, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const deleteFilesByBackup = `DELETE FROM files WHERE backup_id = ?`

func (q *queries) deleteFilesByBackup(ctx context.Context, backupID int64) error {
	_, err := q.db.ExecContext(ctx, deleteFilesByBackup, backupID)
	return err
}

const deleteBackup = `DELETE FROM backups WHERE id = ?`

func (q *queries) deleteBackup(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteBackup, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const upsertFile = `
INSERT INTO files (backup_id, source, dest, sha256, size)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (backup_id, source, dest) DO UPDATE SET
    sha256 = excluded.sha256,
    size = excluded.size`

func (q *queries) upsertFile(ctx context.Context, r fileRow) error {
	_, err := q.db.ExecContext(ctx, upsertFile, r.BackupID, r.Source, r.Dest, r.SHA256, r.Size)
	return err
}

const listFiles = `
SELECT backup_id, source, dest, sha256, size
FROM files WHERE backup_id = ? ORDER BY source`

func (q *queries) listFiles(ctx context.Context, backupID int64) ([]fileRow, error) {
	rows, err := q.db.QueryContext(ctx, listFiles, backupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []fileRow
	for rows.Next() {
		var r fileRow
		if err := rows.Scan(&r.BackupID, &r.Source, &r.Dest, &r.SHA256, &r.Size); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const countFiles = `SELECT COUNT(*) FROM files WHERE backup_id = ?`

func (q *queries) countFiles(ctx context.Context, backupID int64) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, countFiles, backupID).Scan(&n)
	return n, err
}
