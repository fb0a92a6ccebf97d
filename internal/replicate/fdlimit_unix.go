//go:build linux || darwin

package replicate

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// RaiseFDLimit lifts the soft RLIMIT_NOFILE to the hard limit and returns
// the limits before and after.
func RaiseFDLimit() (before, after uint64, err error) {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return 0, 0, fmt.Errorf("reading fd limit: %w", err)
	}
	before = lim.Cur
	if lim.Cur >= lim.Max {
		return before, before, nil
	}
	lim.Cur = lim.Max
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return before, before, fmt.Errorf("raising fd limit to %d: %w", lim.Max, err)
	}
	return before, lim.Cur, nil
}
