package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ValidationSeverity represents the severity of a validation issue.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ConfigValidationError represents a single validation issue.
type ConfigValidationError struct {
	Field    string             // Config field with issue (e.g., "processors[0].targetFolder")
	Message  string             // Human-readable description
	Severity ValidationSeverity // "error" or "warning"
}

// ValidationResult contains all validation findings.
type ValidationResult struct {
	Errors   []ConfigValidationError
	Warnings []ConfigValidationError
	Valid    bool // True if no errors (warnings OK)
}

// ValidateConfig checks the configured paths against the filesystem and
// returns all findings. It complements Validate, which only looks at the
// configuration values themselves.
func ValidateConfig(cfg *Configuration) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ConfigValidationError{},
		Warnings: []ConfigValidationError{},
	}

	for _, err := range ValidatePaths(cfg) {
		if err.Severity == SeverityError {
			result.Errors = append(result.Errors, err)
		} else {
			result.Warnings = append(result.Warnings, err)
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// ValidatePaths checks the watch root, move targets and duplicate-check paths.
func ValidatePaths(cfg *Configuration) []ConfigValidationError {
	var errors []ConfigValidationError

	if issue := checkDirectory("watchRoot", cfg.WatchRoot, SeverityError); issue != nil {
		errors = append(errors, *issue)
	}

	for i, p := range cfg.Processors {
		switch p.Type {
		case ProcessorMove:
			field := formatField("processors", i) + ".targetFolder"
			if issue := checkDirectory(field, p.TargetFolder, SeverityError); issue != nil {
				errors = append(errors, *issue)
				continue
			}
			if isWithin(cfg.WatchRoot, p.TargetFolder) {
				errors = append(errors, ConfigValidationError{
					Field:    field,
					Message:  "target folder is inside the watch root, moved files will be processed again: " + p.TargetFolder,
					Severity: SeverityWarning,
				})
			}
		case ProcessorRename:
			for j, dup := range p.DupPaths {
				field := formatField("processors", i) + ".dupPaths" + "[" + strconv.Itoa(j) + "]"
				if issue := checkDirectory(field, dup, SeverityWarning); issue != nil {
					errors = append(errors, *issue)
				}
			}
		}
	}

	return errors
}

// checkDirectory reports a problem with dir at the given severity, or nil
// when dir is an accessible directory.
func checkDirectory(field, dir string, severity ValidationSeverity) *ConfigValidationError {
	info, err := os.Stat(dir)
	if err != nil {
		message := "error accessing directory: " + err.Error()
		if os.IsNotExist(err) {
			message = "directory does not exist: " + dir
		} else if os.IsPermission(err) {
			message = "directory is not accessible: " + dir
		}
		return &ConfigValidationError{Field: field, Message: message, Severity: severity}
	}

	if !info.IsDir() {
		return &ConfigValidationError{
			Field:    field,
			Message:  "path is not a directory: " + dir,
			Severity: severity,
		}
	}
	return nil
}

// formatField creates a field reference string for validation errors.
func formatField(name string, index int) string {
	return name + "[" + strconv.Itoa(index) + "]"
}

// isWithin reports whether dir is root or one of its descendants.
func isWithin(root, dir string) bool {
	cleanRoot := filepath.Clean(root)
	cleanDir := filepath.Clean(dir)
	if absRoot, err := filepath.Abs(cleanRoot); err == nil {
		cleanRoot = absRoot
	}
	if absDir, err := filepath.Abs(cleanDir); err == nil {
		cleanDir = absDir
	}

	if cleanRoot == cleanDir {
		return true
	}
	return strings.HasPrefix(cleanDir, cleanRoot+string(filepath.Separator))
}
