package hc

import "errors"

// ErrBackupNotFound is returned by service operations addressing an id the
// catalog does not know.
var ErrBackupNotFound = errors.New("backup not found")

// Catalog is the durable record of backups and their files.
//
// GetBackup returns nil, nil when the id is unknown. DeleteBackup removes the
// backup together with its file records and reports whether a row existed.
type Catalog interface {
	PutBackup(b *Backup) error
	GetBackup(id uint64) (*Backup, error)
	ListBackups() ([]*Backup, error)
	DeleteBackup(id uint64) (bool, error)

	PutFile(rec *FileRecord) error
	// ReplaceFiles atomically swaps the full file list of a backup.
	ReplaceFiles(backupID uint64, recs []*FileRecord) error
	ListFiles(backupID uint64) ([]*FileRecord, error)
	CountFiles(backupID uint64) (int, error)

	Close() error
}
