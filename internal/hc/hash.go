package hc

import (
	_ "crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/opencontainers/go-digest"
)

const (
	DefaultMemoryCeiling = 64 << 20
	DefaultChunkSize     = 1 << 20
)

// VerifyOutcome describes what Verify did for one record.
type VerifyOutcome struct {
	Digest   string // digest of the replica after any repair
	Repaired bool
}

// HashVerifier computes SHA-256 digests and repairs replicas whose content
// no longer matches the catalogued digest.
//
// Files up to memCeiling bytes are read in one piece; larger files are
// streamed in chunkSize blocks from a shared buffer pool.
type HashVerifier struct {
	copier     FileCopier
	memCeiling int64
	chunkSize  int
	buffers    sync.Pool
}

// NewHashVerifier creates a HashVerifier. Non-positive sizes fall back to the
// defaults.
func NewHashVerifier(copier FileCopier, memCeiling int64, chunkSize int) *HashVerifier {
	if memCeiling <= 0 {
		memCeiling = DefaultMemoryCeiling
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	v := &HashVerifier{
		copier:     copier,
		memCeiling: memCeiling,
		chunkSize:  chunkSize,
	}
	v.buffers.New = func() any {
		b := make([]byte, v.chunkSize)
		return &b
	}
	return v
}

// Digest returns the lowercase hex SHA-256 of the file at path.
func (v *HashVerifier) Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	digester := digest.Canonical.Digester()
	if info.Size() <= v.memCeiling {
		data, err := io.ReadAll(f)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
		digester.Hash().Write(data)
	} else {
		buf := v.buffers.Get().(*[]byte)
		defer v.buffers.Put(buf)
		// Hide WriterTo so CopyBuffer reads through buf.
		if _, err := io.CopyBuffer(digester.Hash(), struct{ io.Reader }{f}, *buf); err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
	}
	return digester.Digest().Encoded(), nil
}

// Matches reports whether the file at path has the given hex digest.
// A malformed expected digest never matches.
func (v *HashVerifier) Matches(path, expected string) (bool, error) {
	got, err := v.Digest(path)
	if err != nil {
		return false, err
	}
	return sameDigest(got, expected), nil
}

func sameDigest(got, expected string) bool {
	want := digest.NewDigestFromEncoded(digest.SHA256, strings.ToLower(expected))
	if want.Validate() != nil {
		return false
	}
	return got == want.Encoded()
}

// Verify checks the replica of rec against rec.SHA256. A missing replica is
// copied again from the source before checking; a mismatching one is
// overwritten from the source. The returned digest is the replica's digest
// after any repair, which may differ from rec.SHA256 when the source changed.
func (v *HashVerifier) Verify(rec *FileRecord) (*VerifyOutcome, error) {
	out := &VerifyOutcome{}

	if _, err := os.Stat(rec.Dest); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", rec.Dest, err)
		}
		if err := v.copier.CopyFile(rec.Source, rec.Dest); err != nil {
			return nil, fmt.Errorf("restoring missing %s: %w", rec.Dest, err)
		}
		out.Repaired = true
	}

	sum, err := v.Digest(rec.Dest)
	if err != nil {
		return nil, err
	}
	if !sameDigest(sum, rec.SHA256) && !out.Repaired {
		if err := v.copier.CopyFile(rec.Source, rec.Dest); err != nil {
			return nil, fmt.Errorf("repairing %s: %w", rec.Dest, err)
		}
		out.Repaired = true
		if sum, err = v.Digest(rec.Dest); err != nil {
			return nil, err
		}
	}
	out.Digest = sum
	return out, nil
}
