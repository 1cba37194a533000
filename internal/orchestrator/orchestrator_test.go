package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"filewatch/internal/audit"
	"filewatch/internal/config"
)

func createFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func waitFor(t *testing.T, path string) bool {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}

// moveConfig returns a configuration moving files from root to target, with
// an audit log outside both.
func moveConfig(t *testing.T) (root, target string, cfg *config.Configuration) {
	t.Helper()
	base := t.TempDir()
	root = filepath.Join(base, "incoming")
	target = filepath.Join(base, "inbox")
	for _, dir := range []string{root, target} {
		if err := os.Mkdir(dir, 0755); err != nil {
			t.Fatalf("Mkdir failed: %v", err)
		}
	}
	cfg = &config.Configuration{
		WatchRoot:  root,
		Processors: []config.ProcessorConfig{{Type: config.ProcessorMove, TargetFolder: target}},
		Audit:      config.AuditConfig{Path: filepath.Join(base, "audit", "audit.jsonl"), MaxSizeMB: 1, MaxBackups: 1},
	}
	return root, target, cfg
}

func newQuiet(t *testing.T, cfg *config.Configuration) *Orchestrator {
	t.Helper()
	o, err := NewWithLogger(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	if err != nil {
		t.Fatalf("NewWithLogger failed: %v", err)
	}
	t.Cleanup(func() { o.Close() })
	return o
}

func runs(t *testing.T, cfg *config.Configuration) []audit.RunInfo {
	t.Helper()
	list, err := audit.NewReader(cfg.Audit.Path).ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	return list
}

func TestNew_UnknownProcessor(t *testing.T) {
	cfg := &config.Configuration{
		WatchRoot:  t.TempDir(),
		Processors: []config.ProcessorConfig{{Type: "copy"}},
	}
	if _, err := NewWithLogger(cfg, nil, nil); err == nil {
		t.Error("Expected error for unknown processor type")
	}
}

func TestNew_WithLogConfig(t *testing.T) {
	_, _, cfg := moveConfig(t)
	cfg.Log = config.LogConfig{Level: "error", File: filepath.Join(t.TempDir(), "filewatch.log"), MaxSizeMB: 1}

	o, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if o.Logger() == nil {
		t.Error("Logger should be set")
	}
	if err := o.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestWatchSession(t *testing.T) {
	root, target, cfg := moveConfig(t)
	o := newQuiet(t, cfg)

	p, err := o.StartWatch()
	if err != nil {
		t.Fatalf("StartWatch failed: %v", err)
	}

	createFile(t, filepath.Join(root, "b.txt"))
	if !waitFor(t, filepath.Join(target, "b.txt")) {
		o.StopWatch(p)
		t.Fatal("File was not moved while watching")
	}

	summary := o.StopWatch(p)
	if summary.Notifications < 1 || summary.HasErrors() {
		t.Errorf("Unexpected summary %+v", summary)
	}

	list := runs(t, cfg)
	if len(list) != 1 || list[0].RunType != audit.RunTypeWatch || list[0].Status != audit.RunStatusCompleted {
		t.Errorf("Unexpected runs %+v", list)
	}
	if list[0].Events < 1 {
		t.Errorf("Expected PROCESS events in the run, got %d", list[0].Events)
	}
}

func TestWatch_StopsOnCancel(t *testing.T) {
	_, _, cfg := moveConfig(t)
	o := newQuiet(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := o.Watch(ctx)
		done <- err
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestStartWatch_FailureRecordsFailedRun(t *testing.T) {
	root, _, cfg := moveConfig(t)
	o := newQuiet(t, cfg)

	if err := os.Remove(root); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := o.StartWatch(); err == nil {
		t.Fatal("Expected error for a missing watch root")
	}

	list := runs(t, cfg)
	if len(list) != 1 || list[0].Status != audit.RunStatusFailed {
		t.Errorf("Unexpected runs %+v", list)
	}
}

func TestSweep_SkipsIgnoredFiles(t *testing.T) {
	root, target, cfg := moveConfig(t)
	createFile(t, filepath.Join(root, "a.txt"))
	createFile(t, filepath.Join(root, "b.part"))
	o := newQuiet(t, cfg)

	summary, err := o.Sweep()
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if summary.Notifications != 1 || summary.HasErrors() {
		t.Errorf("Unexpected summary %+v", summary)
	}
	if _, err := os.Stat(filepath.Join(target, "a.txt")); err != nil {
		t.Errorf("a.txt was not moved: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "b.part")); err != nil {
		t.Errorf("b.part should stay in place: %v", err)
	}

	list := runs(t, cfg)
	if len(list) != 1 || list[0].RunType != audit.RunTypeSweep || list[0].Summary.Notifications != 1 {
		t.Errorf("Unexpected runs %+v", list)
	}
}

func TestSweep_WithoutAudit(t *testing.T) {
	root, target, cfg := moveConfig(t)
	cfg.Audit.Path = ""
	createFile(t, filepath.Join(root, "sub", "c.txt"))
	o := newQuiet(t, cfg)

	if _, err := o.Sweep(); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(target, "c.txt")); err != nil {
		t.Errorf("Nested file was not moved: %v", err)
	}
}
