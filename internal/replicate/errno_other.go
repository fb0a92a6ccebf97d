//go:build !unix

package replicate

import (
	"errors"
	"syscall"
)

func isFdExhausted(err error) bool {
	return errors.Is(err, syscall.EMFILE) || errors.Is(err, syscall.ENFILE)
}
