package hc

import "context"

// Entry is a regular file found by discovery together with the information
// needed to place its replica.
type Entry struct {
	Path       string
	Size       int64
	SourceName string // final component of the source root
	DestRoot   string
}

// Matcher reports whether a path relative to the source root is excluded.
type Matcher interface {
	Match(relativePath string) bool
}

// Plan describes one replication: the tree under Source is reproduced at
// DestRoot/SourceName.
type Plan struct {
	Source     string
	SourceName string
	DestRoot   string
	Ignore     Matcher // optional
}

// Strategy walks a source tree and copies what it found.
//
// Discover returns the entries that still need copying. Entries copied early
// to relieve descriptor pressure are already recorded in the Conclusion and
// are not returned. Both methods record per-file failures in the Conclusion
// and only return an error when ctx is cancelled or the root cannot be read.
type Strategy interface {
	Name() string
	Discover(ctx context.Context, plan Plan, c *Conclusion) ([]Entry, error)
	Copy(ctx context.Context, entries []Entry, c *Conclusion) error
}

// FileCopier writes the content of src to dst, creating parent directories.
type FileCopier interface {
	CopyFile(src, dst string) error
}
