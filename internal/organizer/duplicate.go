package organizer

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// TimestampLayout is the layout of the suffix added to colliding filenames.
const TimestampLayout = "20060102150405"

// FileExists checks if anything exists at the given path.
func FileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// RenameWithTimestamp returns filename with the current local time inserted
// between stem and extension, e.g. "report.csv" -> "report-20240115093000.csv".
//
// Two calls within the same second produce the same name.
func RenameWithTimestamp(filename string) (string, error) {
	return TimestampName(filename, time.Now())
}

// TimestampName is RenameWithTimestamp with an explicit clock reading.
// The extension is everything after the final dot. Names without one
// (including dot-files such as ".env" and names ending in a dot) are
// rejected with ErrNoExtension rather than guessed at.
func TimestampName(filename string, now time.Time) (string, error) {
	stem, ext, err := splitExtension(filename)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s.%s", stem, now.Format(TimestampLayout), ext), nil
}

func splitExtension(filename string) (stem, ext string, err error) {
	dot := strings.LastIndex(filename, ".")
	if dot <= 0 || dot == len(filename)-1 {
		return "", "", fmt.Errorf("%w: %q", ErrNoExtension, filename)
	}
	return filename[:dot], filename[dot+1:], nil
}
