package organizer

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"filewatch/internal/scanner"
)

// RenameProcessor renames a file in place, giving it a timestamped name, when
// any of its duplicate-check directories already holds a file of the same name.
type RenameProcessor struct {
	dupPaths  []string
	recursive bool
	logger    *slog.Logger
}

// NewRenameProcessor creates a RenameProcessor checking dupPaths in order.
// recursive controls whether each directory is searched below its top level.
func NewRenameProcessor(dupPaths []string, recursive bool, logger *slog.Logger) *RenameProcessor {
	paths := make([]string, len(dupPaths))
	copy(paths, dupPaths)
	return &RenameProcessor{
		dupPaths:  paths,
		recursive: recursive,
		logger:    loggerOrDefault(logger),
	}
}

// Name returns "rename".
func (p *RenameProcessor) Name() string {
	return RenameName
}

// DupPaths returns a copy of the configured duplicate-check directories.
func (p *RenameProcessor) DupPaths() []string {
	result := make([]string, len(p.dupPaths))
	copy(result, p.dupPaths)
	return result
}

// Proceed renames path when a same-named file exists in a duplicate-check
// directory. The file never leaves its directory.
func (p *RenameProcessor) Proceed(path string) error {
	ok, err := inspect(path)
	if err != nil {
		return p.fail(IoFailure, path, err)
	}
	if !ok {
		p.logger.Debug("skipping missing or non-regular path", "processor", RenameName, "path", path)
		return nil
	}

	filename := filepath.Base(path)
	match, err := p.findDuplicate(filename, path)
	if err != nil {
		return p.fail(IoFailure, path, err)
	}
	if match == "" {
		return nil
	}

	newName, err := RenameWithTimestamp(filename)
	if err != nil {
		return p.fail(PreconditionViolation, path, err)
	}

	destination := filepath.Join(filepath.Dir(path), newName)
	if err := os.Rename(path, destination); err != nil {
		if vanished(path) {
			p.logger.Debug("file vanished before rename", "processor", RenameName, "path", path)
			return nil
		}
		return p.fail(IoFailure, path, err)
	}

	p.logger.Info("renamed duplicate file", "processor", RenameName, "path", path, "destination", destination, "duplicateIn", match)
	return nil
}

// findDuplicate returns the first duplicate-check directory holding a file
// named filename, or "" when there is none. The file's own parent directory
// is skipped, and the file itself never matches, so a file is not renamed
// against itself. Directories that do not exist are skipped; any other read
// failure ends the search with an error.
func (p *RenameProcessor) findDuplicate(filename, source string) (string, error) {
	parent := filepath.Dir(source)
	for _, dir := range p.dupPaths {
		if scanner.SamePath(dir, parent) {
			continue
		}
		found, err := scanner.Contains(dir, filename, p.recursive, source)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				p.logger.Debug("duplicate-check path does not exist", "processor", RenameName, "dir", dir)
				continue
			}
			return "", err
		}
		if found {
			return dir, nil
		}
	}
	return "", nil
}

func (p *RenameProcessor) fail(kind ProcessErrorType, path string, err error) error {
	return &ProcessError{Type: kind, Processor: RenameName, Path: path, Err: err}
}
