package scanner

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// IgnoreMatcher matches file paths against .gitignore files found under the
// scan roots and against configured exclude patterns.
type IgnoreMatcher struct {
	roots    []string
	excludes *ignore.GitIgnore
	rules    []dirRules
}

// dirRules holds the patterns of one .gitignore, which apply below base.
type dirRules struct {
	base string
	gi   *ignore.GitIgnore
}

// NewIgnoreMatcher creates a matcher for the given roots. excludePatterns use
// gitignore syntax and apply relative to every root.
func NewIgnoreMatcher(roots, excludePatterns []string) *IgnoreMatcher {
	return &IgnoreMatcher{
		roots:    roots,
		excludes: ignore.CompileIgnoreLines(excludePatterns...),
	}
}

// LoadPatterns finds and compiles .gitignore files in the roots and their
// subdirectories. Unreadable files are skipped.
func (m *IgnoreMatcher) LoadPatterns() error {
	m.rules = nil
	for _, root := range m.roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if d.Name() == ".git" {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Name() != ".gitignore" {
				return nil
			}
			gi, err := ignore.CompileIgnoreFile(path)
			if err != nil {
				return nil
			}
			m.rules = append(m.rules, dirRules{base: filepath.Dir(path), gi: gi})
			return nil
		})
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Match returns true if path should be skipped. Directories always named
// .git are skipped too.
func (m *IgnoreMatcher) Match(path string, isDir bool) bool {
	if isDir && filepath.Base(path) == ".git" {
		return true
	}
	for _, root := range m.roots {
		if rel, ok := under(root, path); ok && rel != "." && matches(m.excludes, rel, isDir) {
			return true
		}
	}
	for _, r := range m.rules {
		rel, ok := under(r.base, path)
		if !ok || rel == "." {
			continue
		}
		if matches(r.gi, rel, isDir) {
			return true
		}
	}
	return false
}

func matches(gi *ignore.GitIgnore, rel string, isDir bool) bool {
	rel = filepath.ToSlash(rel)
	if gi.MatchesPath(rel) {
		return true
	}
	return isDir && gi.MatchesPath(rel+"/")
}

func under(base, path string) (string, bool) {
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}
