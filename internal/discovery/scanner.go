package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Scanner finds spec files under a test directory
type Scanner struct {
	skipDirs map[string]bool
	patterns []string
}

// NewScanner creates a Scanner that skips the named directories. A file is a
// spec when its name ends in one of patterns (".spec.ts") or, for patterns with
// wildcards, matches it ("*.e2e.js").
func NewScanner(skipDirs, patterns []string) *Scanner {
	skip := make(map[string]bool, len(skipDirs))
	for _, dir := range skipDirs {
		skip[dir] = true
	}
	return &Scanner{skipDirs: skip, patterns: patterns}
}

// Scan returns the spec files below root sorted by path. root may also be a
// single spec file.
func (s *Scanner) Scan(root string) ([]string, error) {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("test path does not exist: %s", root)
	}
	if !info.IsDir() {
		if !s.matches(info.Name()) {
			return nil, fmt.Errorf("not a spec file: %s", root)
		}
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && (strings.HasPrefix(d.Name(), ".") || s.skipDirs[d.Name()]) {
				return filepath.SkipDir
			}
			return nil
		}
		if s.matches(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

func (s *Scanner) matches(name string) bool {
	for _, p := range s.patterns {
		if strings.ContainsAny(p, "*?[") {
			if ok, _ := filepath.Match(p, name); ok {
				return true
			}
			continue
		}
		if strings.HasSuffix(name, p) {
			return true
		}
	}
	return false
}
