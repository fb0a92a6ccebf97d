package hc

import (
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// idSeparator joins source and destination before hashing. It cannot appear
// in a path on any supported platform.
const idSeparator = "\x1f"

// Backup is one catalogued replication of a source tree.
type Backup struct {
	ID          uint64
	Source      string // absolute path of the replicated tree
	Dest        string // absolute path of the replica, <dest root>/<source name>
	Compression string // reserved, always empty
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FileRecord pairs a source file with its replica and the SHA-256 digest
// taken from the source at copy time.
type FileRecord struct {
	BackupID uint64
	Source   string
	Dest     string
	SHA256   string // lowercase hex
	Size     int64
}

// BackupInfo is a Backup annotated with the number of catalogued files.
type BackupInfo struct {
	*Backup
	FileCount int
}

// BackupID derives the catalog identifier of a backup from its endpoints.
// The same pair always maps to the same id, so re-running create on a pair
// updates the existing entry.
func BackupID(source, dest string) uint64 {
	return xxhash.Sum64String(source + idSeparator + dest)
}

// ParseBackupID parses the decimal form printed by the list command.
func ParseBackupID(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}
