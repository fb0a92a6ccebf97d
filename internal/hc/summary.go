package hc

import (
	"fmt"
	"time"
)

// Summary is the outcome of a create or revert run.
type Summary struct {
	BackupID   uint64
	Source     string
	Dest       string
	Copied     int
	TotalCount int
	TotalSize  FileSize
	Repaired   int
	Elapsed    time.Duration
	Errors     []string
}

func (s *Summary) ErrorCount() int { return len(s.Errors) }

func (s *Summary) String() string {
	return fmt.Sprintf("Copied %d files (%s) in %s (%d errors)",
		s.Copied, s.TotalSize, FormatElapsed(s.Elapsed), s.ErrorCount())
}

// VerifyResult is the outcome of a verify run.
type VerifyResult struct {
	BackupID uint64
	Total    int
	Verified int
	Repaired int
	Elapsed  time.Duration
	Errors   []string
}

func (r *VerifyResult) ErrorCount() int { return len(r.Errors) }

// FormatElapsed renders d using its two most significant units.
func FormatElapsed(d time.Duration) string {
	switch {
	case d >= time.Hour:
		return fmt.Sprintf("%d Hours %d Minutes", int(d/time.Hour), int(d%time.Hour/time.Minute))
	case d >= time.Minute:
		return fmt.Sprintf("%d Minutes %d Seconds", int(d/time.Minute), int(d%time.Minute/time.Second))
	default:
		return fmt.Sprintf("%.2f Seconds", d.Seconds())
	}
}
