package watcher

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultIgnorePatterns returns the patterns for partially written and
// editor scratch files that never reach the processor chain.
func DefaultIgnorePatterns() []string {
	return []string{
		"*.tmp",
		"*.part",
		"*.download",
		"*.crdownload", // Chrome partial downloads
		"*.partial",
		".~*", // office lock files
		"**/.git/**",
	}
}

// FileFilter decides which created paths are dropped before dispatch.
type FileFilter struct {
	patterns []string
	globs    []glob.Glob
}

// NewFileFilter compiles patterns. If patterns is nil or empty, the default
// patterns are used. Blank lines and lines starting with '#' are skipped.
//
// Patterns use '/' as separator: '*' stays inside one path element and '**'
// crosses elements. Each pattern is tried against the whole slash-normalised
// path and against the base name.
func NewFileFilter(patterns []string) (*FileFilter, error) {
	if len(patterns) == 0 {
		patterns = DefaultIgnorePatterns()
	}

	f := &FileFilter{}
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" || strings.HasPrefix(pattern, "#") {
			continue
		}
		pattern = filepath.ToSlash(pattern)

		// A bare extension such as ".tmp" matches any file ending with it.
		source := pattern
		if strings.HasPrefix(pattern, ".") && !strings.ContainsAny(pattern, "*?[{") {
			source = "*" + strings.ToLower(pattern)
		}

		g, err := glob.Compile(source, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		f.patterns = append(f.patterns, pattern)
		f.globs = append(f.globs, g)
	}
	return f, nil
}

// ShouldIgnore reports whether path matches any ignore pattern.
func (f *FileFilter) ShouldIgnore(path string) bool {
	normalized := filepath.ToSlash(path)
	base := filepath.Base(path)
	lowerBase := strings.ToLower(base)

	for i, g := range f.globs {
		if g.Match(normalized) || g.Match(base) {
			return true
		}
		if strings.HasPrefix(f.patterns[i], ".") && g.Match(lowerBase) {
			return true
		}
	}
	return false
}

// Patterns returns a copy of the active patterns.
func (f *FileFilter) Patterns() []string {
	result := make([]string, len(f.patterns))
	copy(result, f.patterns)
	return result
}
