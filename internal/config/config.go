// Package config handles configuration loading and validation for filewatch.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override values from the configuration file.
const (
	EnvConfigPath = "FILEWATCH_CONFIG"
	EnvWatchRoot  = "FILEWATCH_ROOT"
	EnvLogLevel   = "FILEWATCH_LOG_LEVEL"
	EnvLogFile    = "FILEWATCH_LOG_FILE"
	EnvAuditPath  = "FILEWATCH_AUDIT_PATH"
)

// ConfigErrorType represents the type of configuration error.
type ConfigErrorType string

const (
	FileNotFound    ConfigErrorType = "FILE_NOT_FOUND"
	InvalidJSON     ConfigErrorType = "INVALID_JSON"
	ValidationError ConfigErrorType = "VALIDATION_ERROR"
)

// ConfigError represents an error that occurred during configuration loading.
type ConfigError struct {
	Type    ConfigErrorType
	Path    string
	Message string
}

func (e *ConfigError) Error() string {
	switch e.Type {
	case FileNotFound:
		if e.Message != "" {
			return fmt.Sprintf("configuration file not found: %s (%s)", e.Path, e.Message)
		}
		return fmt.Sprintf("configuration file not found: %s", e.Path)
	case InvalidJSON:
		return fmt.Sprintf("invalid JSON in configuration file: %s", e.Message)
	case ValidationError:
		return fmt.Sprintf("configuration validation error: %s", e.Message)
	default:
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
}

// ProcessorType names a processor variant.
type ProcessorType string

const (
	ProcessorMove   ProcessorType = "move"
	ProcessorRename ProcessorType = "rename"
)

// ProcessorConfig configures one link of the processor chain.
type ProcessorConfig struct {
	Type ProcessorType `json:"type"`
	// TargetFolder is the destination of a move processor.
	TargetFolder string `json:"targetFolder,omitempty"`
	// DupPaths are the directories a rename processor checks for collisions.
	DupPaths []string `json:"dupPaths,omitempty"`
	// Recursive makes collision checks descend into sub-directories.
	Recursive bool `json:"recursive,omitempty"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level      string `json:"level,omitempty"`  // debug, info, warn, error
	Format     string `json:"format,omitempty"` // text or json
	File       string `json:"file,omitempty"`   // empty: stderr only
	MaxSizeMB  int    `json:"maxSizeMB,omitempty"`
	MaxBackups int    `json:"maxBackups,omitempty"`
	MaxAgeDays int    `json:"maxAgeDays,omitempty"`
}

// AuditConfig configures the optional JSON Lines record of processor outcomes.
type AuditConfig struct {
	Path       string `json:"path,omitempty"` // empty disables the audit log
	MaxSizeMB  int    `json:"maxSizeMB,omitempty"`
	MaxBackups int    `json:"maxBackups,omitempty"`
}

// Configuration holds all settings for filewatch.
type Configuration struct {
	WatchRoot         string            `json:"watchRoot"`
	Processors        []ProcessorConfig `json:"processors"`
	IgnorePatterns    []string          `json:"ignorePatterns,omitempty"`
	StableThresholdMs int               `json:"stableThresholdMs,omitempty"`
	Log               LogConfig         `json:"log"`
	Audit             AuditConfig       `json:"audit"`
}

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate checks that the configuration has all required fields.
func (c *Configuration) Validate() error {
	if strings.TrimSpace(c.WatchRoot) == "" {
		return &ConfigError{
			Type:    ValidationError,
			Message: "watchRoot cannot be empty",
		}
	}

	if len(c.Processors) == 0 {
		return &ConfigError{
			Type:    ValidationError,
			Message: "processors must contain at least one processor",
		}
	}

	for i, p := range c.Processors {
		switch p.Type {
		case ProcessorMove:
			if p.TargetFolder == "" {
				return &ConfigError{
					Type:    ValidationError,
					Message: fmt.Sprintf("processors[%d].targetFolder cannot be empty", i),
				}
			}
		case ProcessorRename:
			if len(p.DupPaths) == 0 {
				return &ConfigError{
					Type:    ValidationError,
					Message: fmt.Sprintf("processors[%d].dupPaths must contain at least one directory", i),
				}
			}
			for j, dup := range p.DupPaths {
				if dup == "" {
					return &ConfigError{
						Type:    ValidationError,
						Message: fmt.Sprintf("processors[%d].dupPaths[%d] cannot be empty", i, j),
					}
				}
			}
		default:
			return &ConfigError{
				Type:    ValidationError,
				Message: fmt.Sprintf("processors[%d].type %q is not one of %q, %q", i, p.Type, ProcessorMove, ProcessorRename),
			}
		}
	}

	if c.StableThresholdMs < 0 {
		return &ConfigError{
			Type:    ValidationError,
			Message: "stableThresholdMs cannot be negative",
		}
	}

	if c.Log.Level != "" && !contains(logLevels, strings.ToLower(c.Log.Level)) {
		return &ConfigError{
			Type:    ValidationError,
			Message: fmt.Sprintf("log.level %q is not one of %s", c.Log.Level, strings.Join(logLevels, ", ")),
		}
	}

	if c.Log.Format != "" && c.Log.Format != "text" && c.Log.Format != "json" {
		return &ConfigError{
			Type:    ValidationError,
			Message: fmt.Sprintf("log.format %q must be text or json", c.Log.Format),
		}
	}

	return nil
}

// ApplyDefaults fills zero values with their defaults.
func (c *Configuration) ApplyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
	if c.Audit.MaxSizeMB == 0 {
		c.Audit.MaxSizeMB = 10
	}
	if c.Audit.MaxBackups == 0 {
		c.Audit.MaxBackups = 5
	}
}

// ApplyEnv overrides file values with any FILEWATCH_* environment variables.
func (c *Configuration) ApplyEnv() {
	if v := os.Getenv(EnvWatchRoot); v != "" {
		c.WatchRoot = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv(EnvAuditPath); v != "" {
		c.Audit.Path = v
	}
}

// LoadDotEnv loads a .env file from the working directory into the process
// environment. A missing file is not an error.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// ResolvePath picks the configuration file: the explicit argument when given,
// otherwise FILEWATCH_CONFIG.
func ResolvePath(arg string) (string, error) {
	if arg != "" {
		return arg, nil
	}
	if v := os.Getenv(EnvConfigPath); v != "" {
		return v, nil
	}
	return "", &ConfigError{
		Type:    FileNotFound,
		Message: "no configuration file given and " + EnvConfigPath + " is not set",
	}
}

// Load reads and parses a configuration file from the given path, applies
// environment overrides and defaults, and validates the result.
func Load(filePath string) (*Configuration, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ConfigError{
				Type: FileNotFound,
				Path: filePath,
			}
		}
		return nil, &ConfigError{
			Type:    FileNotFound,
			Path:    filePath,
			Message: err.Error(),
		}
	}

	var config Configuration
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, &ConfigError{
			Type:    InvalidJSON,
			Message: err.Error(),
		}
	}

	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	config.ApplyDefaults()

	return &config, nil
}

// Save serializes and writes a configuration to the given path.
func Save(config *Configuration, filePath string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return &ConfigError{
			Type:    InvalidJSON,
			Message: err.Error(),
		}
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return &ConfigError{
			Type:    ValidationError,
			Message: fmt.Sprintf("failed to write configuration file: %s", err.Error()),
		}
	}

	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
