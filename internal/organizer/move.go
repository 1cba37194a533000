package organizer

import (
	"log/slog"
	"os"
	"path/filepath"

	"filewatch/internal/scanner"
)

// MoveProcessor relocates files into a single target folder. When a file of
// the same name is already there, the moved file gets a timestamped name.
type MoveProcessor struct {
	targetFolder string
	recursive    bool
	logger       *slog.Logger
}

// NewMoveProcessor creates a MoveProcessor for targetFolder. The collision check
// only looks at the direct children of targetFolder unless recursive is true,
// in which case a same-named file anywhere below it counts as a collision.
func NewMoveProcessor(targetFolder string, recursive bool, logger *slog.Logger) *MoveProcessor {
	return &MoveProcessor{
		targetFolder: targetFolder,
		recursive:    recursive,
		logger:       loggerOrDefault(logger),
	}
}

// Name returns "move".
func (p *MoveProcessor) Name() string {
	return MoveName
}

// TargetFolder returns the configured destination directory.
func (p *MoveProcessor) TargetFolder() string {
	return p.targetFolder
}

// Proceed moves path into the target folder.
func (p *MoveProcessor) Proceed(path string) error {
	ok, err := inspect(path)
	if err != nil {
		return p.fail(IoFailure, path, err)
	}
	if !ok {
		p.logger.Debug("skipping missing or non-regular path", "processor", MoveName, "path", path)
		return nil
	}

	// A file already in the target folder stays put, even when one of the two
	// paths reaches it through a symbolic link. Without this the move would see
	// itself as a collision and rename the file on every event.
	if scanner.SamePath(filepath.Dir(path), p.targetFolder) {
		p.logger.Debug("file already in target folder", "processor", MoveName, "path", path)
		return nil
	}

	filename := filepath.Base(path)
	collision, err := p.hasCollision(filename, path)
	if err != nil {
		return p.fail(IoFailure, path, err)
	}

	finalName := filename
	if collision {
		finalName, err = RenameWithTimestamp(filename)
		if err != nil {
			return p.fail(PreconditionViolation, path, err)
		}
	}

	destination := filepath.Join(p.targetFolder, finalName)
	if err := os.Rename(path, destination); err != nil {
		if vanished(path) {
			p.logger.Debug("file vanished before move", "processor", MoveName, "path", path)
			return nil
		}
		return p.fail(IoFailure, path, err)
	}

	p.logger.Info("moved file", "processor", MoveName, "path", path, "destination", destination, "renamed", collision)
	return nil
}

// hasCollision checks the target folder for an entry named filename. The
// source file itself is never a collision.
func (p *MoveProcessor) hasCollision(filename, source string) (bool, error) {
	if !p.recursive {
		candidate := filepath.Join(p.targetFolder, filename)
		return FileExists(candidate) && !scanner.SamePath(candidate, source), nil
	}
	return scanner.Contains(p.targetFolder, filename, true, source)
}

func (p *MoveProcessor) fail(kind ProcessErrorType, path string, err error) error {
	return &ProcessError{Type: kind, Processor: MoveName, Path: path, Err: err}
}
