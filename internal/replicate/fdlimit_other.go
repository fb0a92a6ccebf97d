//go:build !(linux || darwin)

package replicate

// RaiseFDLimit is a no-op on platforms without a settable RLIMIT_NOFILE.
func RaiseFDLimit() (before, after uint64, err error) {
	return 0, 0, nil
}
