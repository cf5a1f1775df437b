// Package workspace discovers source files under the workspace roots and
// watches them for changes.
package workspace

import (
	"io/fs"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("mplxls.workspace")

// Options bound a scan.
type Options struct {
	// MaxDepth is the number of directory levels listed, the root being
	// the first. Zero lists nothing.
	MaxDepth int
	// Extension selects source files, e.g. ".mplx".
	Extension string
	// Exclude holds directory names skipped at any level.
	Exclude []string
}

// Scan walks every root and returns the source files found, without
// duplicates. Unreadable directories and files are skipped. The order of
// the result is unspecified.
func Scan(roots []string, opts Options) []string {
	seen := make(map[string]struct{})
	for _, root := range roots {
		scanRoot(root, opts, func(path string) {
			seen[path] = struct{}{}
		})
	}

	files := make([]string, 0, len(seen))
	for path := range seen {
		files = append(files, path)
	}
	sort.Strings(files)
	return files
}

func scanRoot(root string, opts Options, found func(path string)) {
	if opts.MaxDepth <= 0 || root == "" {
		return
	}
	root = filepath.Clean(root)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Debugf("skipping %s: %s", path, err)
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}

		depth := Depth(root, path)
		if d.IsDir() {
			if path != root && (IsExcluded(d.Name(), opts.Exclude) || depth >= opts.MaxDepth) {
				return fs.SkipDir
			}
			return nil
		}

		if d.Type().IsRegular() && strings.HasSuffix(d.Name(), opts.Extension) {
			found(path)
		}
		return nil
	})
	if err != nil {
		log.Debugf("scan of %s ended early: %s", root, err)
	}
}

// Depth is the number of path elements of path below root.
func Depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return len(strings.Split(filepath.ToSlash(rel), "/"))
}

// IsExcluded reports whether a directory named name is never scanned.
func IsExcluded(name string, exclude []string) bool {
	return slices.Contains(exclude, name)
}
