//go:build unix

package replicate

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isFdExhausted reports whether err means the process or the system ran out
// of file descriptors.
func isFdExhausted(err error) bool {
	return errors.Is(err, unix.EMFILE) || errors.Is(err, unix.ENFILE)
}
