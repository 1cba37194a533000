// Package scanner enumerates the files below a directory.
package scanner

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// ScanErrorType represents the type of scanning error.
type ScanErrorType string

const (
	// DirectoryNotFound indicates the directory does not exist or is not a directory.
	DirectoryNotFound ScanErrorType = "DIRECTORY_NOT_FOUND"
	// PermissionDenied indicates insufficient permissions to read the directory.
	PermissionDenied ScanErrorType = "PERMISSION_DENIED"
	// ReadFailure covers every other I/O failure while reading a directory.
	ReadFailure ScanErrorType = "READ_FAILURE"
)

// ScanError represents an error that occurred during directory scanning.
type ScanError struct {
	Type ScanErrorType
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	if e.Err != nil {
		return string(e.Type) + ": " + e.Path + " (" + e.Err.Error() + ")"
	}
	return string(e.Type) + ": " + e.Path
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// ListFiles returns the regular files directly inside root. When recursive is
// true, sub-directories are descended depth-first and their files are included;
// otherwise sub-directories are left out of the result.
//
// A symbolic link to a regular file is reported under the link's own path.
// Links to directories are never followed, and broken links and other
// non-regular entries are left out. Any read failure, including one deep in the tree, aborts the whole
// listing: no partial result is returned alongside an error.
func ListFiles(root string, recursive bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, classify(root, err)
	}
	if !info.IsDir() {
		return nil, &ScanError{
			Type: DirectoryNotFound,
			Path: root,
			Err:  errors.New("path is not a directory"),
		}
	}

	var files []string
	if err := listDirectory(root, recursive, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// listDirectory appends the files of directory to files, descending when recursive.
func listDirectory(directory string, recursive bool, files *[]string) error {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return classify(directory, err)
	}

	for _, entry := range entries {
		fullPath := filepath.Join(directory, entry.Name())

		switch {
		case entry.IsDir():
			if !recursive {
				continue
			}
			if err := listDirectory(fullPath, recursive, files); err != nil {
				return err
			}
		case entry.Type().IsRegular():
			*files = append(*files, fullPath)
		case entry.Type()&fs.ModeSymlink != 0:
			if info, err := os.Stat(fullPath); err == nil && info.Mode().IsRegular() {
				*files = append(*files, fullPath)
			}
		}
	}

	return nil
}

// Contains reports whether a file named filename exists under root, searching
// sub-directories when recursive is true. exclude, when non-empty, is a path
// that never counts as a match.
func Contains(root, filename string, recursive bool, exclude string) (bool, error) {
	files, err := ListFiles(root, recursive)
	if err != nil {
		return false, err
	}
	for _, file := range files {
		if filepath.Base(file) != filename {
			continue
		}
		if exclude != "" && SamePath(file, exclude) {
			continue
		}
		return true, nil
	}
	return false, nil
}

// SamePath reports whether a and b name the same file or directory. Paths
// that both exist are compared by identity, so a symbolic link and its target
// are the same. Otherwise they are compared once made absolute and cleaned.
func SamePath(a, b string) bool {
	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	if errA == nil && errB == nil {
		return os.SameFile(infoA, infoB)
	}

	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

func classify(path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return &ScanError{Type: DirectoryNotFound, Path: path, Err: err}
	case os.IsPermission(err):
		return &ScanError{Type: PermissionDenied, Path: path, Err: err}
	default:
		return &ScanError{Type: ReadFailure, Path: path, Err: err}
	}
}
