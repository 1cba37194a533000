package organizer

import (
	"fmt"
	"log/slog"
	"os"

	"filewatch/internal/config"
)

// Processor is one link of the chain applied to every newly created file.
//
// Proceed must tolerate a path that no longer exists: that is a successful
// no-op. It performs at most one rename per call. Name is a stable identifier
// used for logging and reporting.
type Processor interface {
	Proceed(path string) error
	Name() string
}

// Processor names.
const (
	MoveName   = "move"
	RenameName = "rename"
)

var (
	_ Processor = (*MoveProcessor)(nil)
	_ Processor = (*RenameProcessor)(nil)
)

// NewChain builds the ordered processors described by cfgs.
func NewChain(cfgs []config.ProcessorConfig, logger *slog.Logger) ([]Processor, error) {
	chain := make([]Processor, 0, len(cfgs))
	for i, c := range cfgs {
		switch c.Type {
		case config.ProcessorMove:
			chain = append(chain, NewMoveProcessor(c.TargetFolder, c.Recursive, logger))
		case config.ProcessorRename:
			chain = append(chain, NewRenameProcessor(c.DupPaths, c.Recursive, logger))
		default:
			return nil, fmt.Errorf("processor %d: unknown type %q", i, c.Type)
		}
	}
	return chain, nil
}

// inspect reports whether path is an existing regular file. A missing path is
// not an error; it yields false so the caller can skip it.
func inspect(path string) (bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// vanished reports whether path is gone, used after a failed rename to tell a
// lost race apart from a real failure.
func vanished(path string) bool {
	_, err := os.Lstat(path)
	return os.IsNotExist(err)
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
