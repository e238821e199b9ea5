package runner

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/gnana997/treeshake/pkg/parser"
)

// validatePatterns checks the glob syntax of a ScanConfig.
func validatePatterns(cfg ScanConfig) error {
	for _, pattern := range cfg.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid exclude pattern: %s", pattern)
		}
	}
	for _, pattern := range cfg.Include {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid include pattern: %s", pattern)
		}
	}
	return nil
}

// DiscoverFiles walks rootDir applying include/exclude globs from cfg.
// Only files the parser supports are returned. Returns a sorted slice of
// absolute file paths for deterministic output.
func DiscoverFiles(rootDir string, cfg ScanConfig) ([]string, error) {
	if err := validatePatterns(cfg); err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}

	var files []string

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Continue walking on errors.
		}

		relPath := relativeSlash(absRoot, path)

		if relPath != "." && isExcluded(cfg, relPath) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		if !parser.IsSupportedFile(path) || !isIncluded(cfg, relPath) {
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

func relativeSlash(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}

func isExcluded(cfg ScanConfig, relPath string) bool {
	for _, pattern := range cfg.Exclude {
		if matched, _ := doublestar.Match(pattern, relPath); matched {
			return true
		}
	}
	return false
}

func isIncluded(cfg ScanConfig, relPath string) bool {
	if len(cfg.Include) == 0 {
		return true
	}
	for _, pattern := range cfg.Include {
		if matched, _ := doublestar.Match(pattern, relPath); matched {
			return true
		}
	}
	return false
}

// excludedBelow reports whether any directory on the way from root to path,
// or path itself, is excluded.
func excludedBelow(cfg ScanConfig, root, path string) bool {
	rel := relativeSlash(root, path)
	if rel == "." || rel == ".." || len(rel) > 2 && rel[:3] == "../" {
		return false
	}
	for {
		if isExcluded(cfg, rel) {
			return true
		}
		parent := filepath.ToSlash(filepath.Dir(rel))
		if parent == "." || parent == rel {
			return false
		}
		rel = parent
	}
}
