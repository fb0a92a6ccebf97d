package replicate

import (
	"path/filepath"
	"strings"
)

// RewritePath maps a file under the source tree to its location under
// destRoot, keeping the sub-path that starts at the component equal to
// sourceName. Volume, root and "." components are dropped. When sourceName
// does not occur the file is placed directly in destRoot.
//
// A deeper directory sharing the source name cannot be told apart from the
// source root: the first matching component wins.
func RewritePath(path, sourceName, destRoot string) string {
	trimmed := filepath.ToSlash(path[len(filepath.VolumeName(path)):])

	rel := []string{destRoot}
	found := false
	for _, part := range strings.Split(trimmed, "/") {
		if part == "" || part == "." {
			continue
		}
		if part == sourceName {
			found = true
		}
		if found {
			rel = append(rel, part)
		}
	}
	if !found {
		rel = append(rel, filepath.Base(path))
	}
	return filepath.Join(rel...)
}
