package ignore

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the per-tree ignore file read from the root of a source tree.
const FileName = ".hardcpyignore"

type pattern struct {
	glob      string
	matchPath bool // match against the relative path instead of the basename
}

// Matcher checks paths against a set of glob patterns.
// Patterns without '/' match against the basename only.
// Patterns with '/' match against the full relative path from the tree root.
type Matcher struct {
	patterns []pattern
}

// NewMatcher creates a Matcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped.
func NewMatcher(raw []string) *Matcher {
	var patterns []pattern
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		patterns = append(patterns, pattern{
			glob:      strings.TrimSuffix(p, "/"),
			matchPath: strings.Contains(strings.TrimSuffix(p, "/"), "/"),
		})
	}
	return &Matcher{patterns: patterns}
}

// Len returns the number of active patterns.
func (m *Matcher) Len() int { return len(m.patterns) }

// Match reports whether relativePath should be skipped.
func (m *Matcher) Match(relativePath string) bool {
	if len(m.patterns) == 0 {
		return false
	}

	normalized := filepath.ToSlash(relativePath)
	basename := filepath.Base(relativePath)

	for _, p := range m.patterns {
		subject := basename
		if p.matchPath {
			subject = normalized
		}
		// filepath.Match only fails on malformed patterns; those never match.
		if ok, err := filepath.Match(p.glob, subject); err == nil && ok {
			return true
		}
	}
	return false
}

// ParseFile reads patterns from an ignore file, one per line.
// A missing file yields no patterns and no error.
func ParseFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
