package indexer

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dshills/memindex/internal/parser"
)

// Directories never descended into regardless of globs
var skippedDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	"logs":         true,
}

// DiscoverFiles walks the project root and returns every parseable file,
// bounded by include/exclude globs. Globs match the path relative to the
// root using filepath.Match semantics; an empty include list means all.
// Hidden directories (including the state directory) are skipped.
func DiscoverFiles(root string, registry *parser.Registry, include, exclude []string) ([]string, error) {
	var files []string

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			name := info.Name()
			if path != root && (strings.HasPrefix(name, ".") || skippedDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}

		if !registry.Supports(path) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if !matchesGlobs(rel, include, true) || matchesGlobs(rel, exclude, false) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// matchesGlobs reports whether rel matches any pattern. Patterns match
// against the full relative path and against the base name, so "*.py"
// selects Python files at any depth. empty is the result for an empty
// pattern list.
func matchesGlobs(rel string, patterns []string, empty bool) bool {
	if len(patterns) == 0 {
		return empty
	}
	base := filepath.Base(rel)
	for _, pat := range patterns {
		if ok, _ := filepath.Match(pat, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pat, base); ok {
			return true
		}
		// directory prefix patterns like "src" or "src/*"
		if strings.HasPrefix(rel, strings.TrimSuffix(pat, "/*")+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
