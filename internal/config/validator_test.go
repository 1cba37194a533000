package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateConfig_AllPathsPresent(t *testing.T) {
	root := t.TempDir()
	target := t.TempDir()
	dup := t.TempDir()

	cfg := &Configuration{
		WatchRoot: root,
		Processors: []ProcessorConfig{
			{Type: ProcessorMove, TargetFolder: target},
			{Type: ProcessorRename, DupPaths: []string{dup}},
		},
	}

	result := ValidateConfig(cfg)
	if !result.Valid {
		t.Fatalf("Expected valid configuration, got errors: %+v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %+v", result.Warnings)
	}
}

func TestValidateConfig_ReportsAllProblems(t *testing.T) {
	base := t.TempDir()
	notADir := filepath.Join(base, "file.txt")
	if err := os.WriteFile(notADir, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	cfg := &Configuration{
		WatchRoot: filepath.Join(base, "missing-root"),
		Processors: []ProcessorConfig{
			{Type: ProcessorMove, TargetFolder: notADir},
			{Type: ProcessorRename, DupPaths: []string{filepath.Join(base, "missing-dup")}},
		},
	}

	result := ValidateConfig(cfg)
	if result.Valid {
		t.Fatal("Expected invalid configuration")
	}
	if len(result.Errors) != 2 {
		t.Fatalf("Expected 2 errors, got %d: %+v", len(result.Errors), result.Errors)
	}
	if result.Errors[0].Field != "watchRoot" {
		t.Errorf("First error field = %q, want watchRoot", result.Errors[0].Field)
	}
	if result.Errors[1].Field != "processors[0].targetFolder" || !strings.Contains(result.Errors[1].Message, "not a directory") {
		t.Errorf("Unexpected second error: %+v", result.Errors[1])
	}

	// A missing duplicate-check path is only a warning.
	if len(result.Warnings) != 1 || result.Warnings[0].Field != "processors[1].dupPaths[0]" {
		t.Errorf("Unexpected warnings: %+v", result.Warnings)
	}
}

func TestValidateConfig_TargetInsideWatchRoot(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "sorted")
	if err := os.Mkdir(target, 0755); err != nil {
		t.Fatalf("Failed to create target: %v", err)
	}

	cfg := &Configuration{
		WatchRoot:  root,
		Processors: []ProcessorConfig{{Type: ProcessorMove, TargetFolder: target}},
	}

	result := ValidateConfig(cfg)
	if !result.Valid {
		t.Fatalf("Expected valid configuration, got %+v", result.Errors)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0].Message, "inside the watch root") {
		t.Errorf("Expected warning about target inside watch root, got %+v", result.Warnings)
	}
}

func TestIsWithin(t *testing.T) {
	tests := []struct {
		root, dir string
		expected  bool
	}{
		{"/a", "/a", true},
		{"/a", "/a/b", true},
		{"/a/", "/a/b/c", true},
		{"/a", "/ab", false},
		{"/a/b", "/a", false},
	}
	for _, tt := range tests {
		if got := isWithin(tt.root, tt.dir); got != tt.expected {
			t.Errorf("isWithin(%q, %q) = %v, want %v", tt.root, tt.dir, got, tt.expected)
		}
	}
}
