package orchestrator

import (
	"path/filepath"
	"sort"

	"filewatch/internal/scanner"
	"filewatch/internal/watcher"
)

// StatusResult lists the files a sweep would dispatch, without touching them.
type StatusResult struct {
	Root        string
	ByDirectory map[string][]string // directory -> pending files, sorted
	Ignored     int                 // files the watcher's ignore patterns would drop
	Total       int
}

// Directories returns the directories holding pending files, sorted.
func (r *StatusResult) Directories() []string {
	dirs := make([]string, 0, len(r.ByDirectory))
	for dir := range r.ByDirectory {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}

// Status lists every file below the watch root grouped by its directory.
// Files matching the ignore patterns are counted but not listed.
func (o *Orchestrator) Status() (*StatusResult, error) {
	filter, err := watcher.NewFileFilter(o.config.IgnorePatterns)
	if err != nil {
		return nil, err
	}
	files, err := scanner.ListFiles(o.config.WatchRoot, true)
	if err != nil {
		return nil, err
	}

	result := &StatusResult{
		Root:        o.config.WatchRoot,
		ByDirectory: make(map[string][]string),
	}
	for _, file := range files {
		if filter.ShouldIgnore(file) {
			result.Ignored++
			continue
		}
		dir := filepath.Dir(file)
		result.ByDirectory[dir] = append(result.ByDirectory[dir], file)
		result.Total++
	}
	for _, list := range result.ByDirectory {
		sort.Strings(list)
	}
	return result, nil
}
