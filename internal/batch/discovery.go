package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// discoverFiles expands args into the OCR documents to process. Files named
// directly are matched against the patterns like discovered ones. The result
// is sorted and free of duplicates.
func discoverFiles(args []string, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			found, err := discoverInDirectory(arg, recursive, includePatterns, excludePatterns)
			if err != nil {
				return nil, err
			}
			files = append(files, found...)
		} else if shouldIncludeFile(arg, includePatterns, excludePatterns) {
			files = append(files, arg)
		}
	}

	slices.Sort(files)
	return slices.Compact(files), nil
}

// discoverInDirectory walks dir, descending into subdirectories only when recursive is set.
func discoverInDirectory(dir string, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	var files []string

	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if !recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}

		if shouldIncludeFile(path, includePatterns, excludePatterns) {
			files = append(files, path)
		}
		return nil
	}

	if err := filepath.WalkDir(dir, walkFn); err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	return files, nil
}

// shouldIncludeFile applies exclude patterns first, then include patterns.
// With no include patterns every file that is not excluded is kept.
func shouldIncludeFile(path string, includePatterns, excludePatterns []string) bool {
	if matchesAnyPattern(path, excludePatterns) {
		return false
	}
	if len(includePatterns) == 0 {
		return true
	}
	return matchesAnyPattern(path, includePatterns)
}

// matchesAnyPattern matches the base name of path against shell patterns.
func matchesAnyPattern(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}
