package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kardianos/service"

	"filewatch/internal/audit"
	"filewatch/internal/config"
	"filewatch/internal/orchestrator"
)

func writeConfig(t *testing.T, cfg *config.Configuration) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "filewatch.json")
	if err := config.Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return path
}

func createFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func moveSetup(t *testing.T) (root, target string, cfg *config.Configuration) {
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
		Log:        config.LogConfig{Level: "error"},
		Audit:      config.AuditConfig{Path: filepath.Join(base, "audit", "audit.jsonl")},
	}
	return root, target, cfg
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		args    []string
		want    invocation
		wantErr bool
	}{
		{[]string{"watch"}, invocation{command: "watch"}, false},
		{[]string{"run", "cfg.json"}, invocation{command: "run", configPath: "cfg.json"}, false},
		{[]string{"-v", "history", "cfg.json"}, invocation{command: "history", configPath: "cfg.json", verbose: true}, false},
		{[]string{"run", "--verbose"}, invocation{command: "run", verbose: true}, false},
		{[]string{"init", "-i", "cfg.json"}, invocation{command: "init", configPath: "cfg.json", interactive: true}, false},
		{[]string{"--help"}, invocation{command: "help"}, false},
		{nil, invocation{}, true},
		{[]string{"run", "a", "b"}, invocation{}, true},
	}
	for _, tt := range tests {
		got, err := parseArgs(tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseArgs(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseArgs(%v) = %+v, want %+v", tt.args, got, tt.want)
		}
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"explode"}, strings.NewReader(""), &stdout, &stderr); code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "unknown command") {
		t.Errorf("Unexpected stderr %q", stderr.String())
	}
}

func TestRun_MissingConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"run", filepath.Join(t.TempDir(), "none.json")}, strings.NewReader(""), &stdout, &stderr)
	if code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "configuration file not found") {
		t.Errorf("Unexpected stderr %q", stderr.String())
	}
}

func TestRun_InvalidPaths(t *testing.T) {
	_, target, cfg := moveSetup(t)
	if err := os.Remove(target); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	path := writeConfig(t, cfg)

	var stdout, stderr bytes.Buffer
	if code := run([]string{"run", path}, strings.NewReader(""), &stdout, &stderr); code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "processors[0].targetFolder") {
		t.Errorf("Expected the failing field in stderr, got %q", stderr.String())
	}
}

func TestRun_SweepAndHistory(t *testing.T) {
	root, target, cfg := moveSetup(t)
	createFile(t, filepath.Join(root, "a.txt"))
	path := writeConfig(t, cfg)

	var stdout, stderr bytes.Buffer
	if code := run([]string{"run", path}, strings.NewReader(""), &stdout, &stderr); code != 0 {
		t.Fatalf("run exited %d: %s", code, stderr.String())
	}
	if _, err := os.Stat(filepath.Join(target, "a.txt")); err != nil {
		t.Errorf("File was not moved: %v", err)
	}
	if !strings.Contains(stdout.String(), "Dispatched 1 files: 1 processor runs, 0 failures") {
		t.Errorf("Unexpected summary %q", stdout.String())
	}

	stdout.Reset()
	if code := run([]string{"history", path}, strings.NewReader(""), &stdout, &stderr); code != 0 {
		t.Fatalf("history exited %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "SWEEP") || !strings.Contains(stdout.String(), "1 files") {
		t.Errorf("Unexpected history %q", stdout.String())
	}
}

func TestRun_FailuresExitNonZero(t *testing.T) {
	root, target, cfg := moveSetup(t)
	// A collision on a name without an extension cannot be resolved.
	createFile(t, filepath.Join(root, "README"))
	createFile(t, filepath.Join(target, "README"))
	path := writeConfig(t, cfg)

	var stdout, stderr bytes.Buffer
	if code := run([]string{"run", path}, strings.NewReader(""), &stdout, &stderr); code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "1 processor failures") {
		t.Errorf("Unexpected stderr %q", stderr.String())
	}
}

func TestRun_HistoryWithoutAudit(t *testing.T) {
	_, _, cfg := moveSetup(t)
	cfg.Audit.Path = ""
	path := writeConfig(t, cfg)

	var stdout, stderr bytes.Buffer
	if code := run([]string{"history", path}, strings.NewReader(""), &stdout, &stderr); code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
}

func TestRun_Init(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(t.TempDir(), "filewatch.json")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"init", path}, strings.NewReader(""), &stdout, &stderr); code != 0 {
		t.Fatalf("init exited %d: %s", code, stderr.String())
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Sample configuration does not load: %v", err)
	}
	if cfg.WatchRoot != filepath.Join(home, "Downloads") || len(cfg.Processors) != 2 {
		t.Errorf("Unexpected sample %+v", cfg)
	}

	stderr.Reset()
	if code := run([]string{"init", path}, strings.NewReader(""), &stdout, &stderr); code != 1 {
		t.Errorf("Second init should refuse to overwrite, exit %d", code)
	}
	if !strings.Contains(stderr.String(), "already exists") {
		t.Errorf("Unexpected stderr %q", stderr.String())
	}
}

func TestRun_InitInteractive(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "filewatch.json")
	answers := strings.NewReader("/srv/drop\n/srv/archive, /srv/old\n-\nn\n")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"init", "-i", path}, answers, &stdout, &stderr); code != 0 {
		t.Fatalf("init exited %d: %s", code, stderr.String())
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Configuration does not load: %v", err)
	}
	if cfg.WatchRoot != "/srv/drop" || cfg.Audit.Path != "" {
		t.Errorf("Unexpected configuration %+v", cfg)
	}
	if len(cfg.Processors) != 1 || cfg.Processors[0].Type != config.ProcessorRename ||
		len(cfg.Processors[0].DupPaths) != 2 || cfg.Processors[0].DupPaths[1] != "/srv/old" {
		t.Errorf("Unexpected processors %+v", cfg.Processors)
	}
}

func TestRun_InitInteractiveNoProcessors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "filewatch.json")
	answers := strings.NewReader("\n-\n-\n\n")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"init", "-i", path}, answers, &stdout, &stderr); code != 1 {
		t.Errorf("Expected exit code 1 for an empty chain, got %d", code)
	}
	if _, err := os.Stat(path); err == nil {
		t.Error("No configuration should be written")
	}
}

func TestSampleConfig_Valid(t *testing.T) {
	if err := sampleConfig("/home/user").Validate(); err != nil {
		t.Errorf("Sample configuration is invalid: %v", err)
	}
}

func TestRun_Status(t *testing.T) {
	root, _, cfg := moveSetup(t)
	createFile(t, filepath.Join(root, "a.txt"))
	path := writeConfig(t, cfg)

	var stdout, stderr bytes.Buffer
	if code := run([]string{"status", "-v", path}, strings.NewReader(""), &stdout, &stderr); code != 0 {
		t.Fatalf("status exited %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "1 pending files") || !strings.Contains(stdout.String(), "a.txt") {
		t.Errorf("Unexpected status %q", stdout.String())
	}
	if _, err := os.Stat(filepath.Join(root, "a.txt")); err != nil {
		t.Errorf("status must not move files: %v", err)
	}
}

// fakeService stands in for the OS service manager.
type fakeService struct {
	service.Service
}

func (fakeService) String() string   { return serviceName }
func (fakeService) Platform() string { return "test" }

func TestDaemon_StartStop(t *testing.T) {
	root, target, cfg := moveSetup(t)
	o, err := orchestrator.New(cfg)
	if err != nil {
		t.Fatalf("orchestrator.New failed: %v", err)
	}
	defer o.Close()

	d := newDaemon(o)
	if err := d.Start(fakeService{}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	createFile(t, filepath.Join(root, "b.txt"))
	moved := filepath.Join(target, "b.txt")
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(moved); err == nil {
			break
		}
		if time.Now().After(deadline) {
			d.Stop(fakeService{})
			t.Fatal("File was not moved while the service was running")
		}
		time.Sleep(20 * time.Millisecond)
	}

	if err := d.Stop(fakeService{}); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	// A second stop is a no-op.
	if err := d.Stop(fakeService{}); err != nil {
		t.Errorf("Second Stop failed: %v", err)
	}

	runs, err := audit.NewReader(cfg.Audit.Path).ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != audit.RunStatusCompleted {
		t.Errorf("Unexpected runs %+v", runs)
	}
}

func TestDaemon_StartFailure(t *testing.T) {
	root, _, cfg := moveSetup(t)
	o, err := orchestrator.New(cfg)
	if err != nil {
		t.Fatalf("orchestrator.New failed: %v", err)
	}
	defer o.Close()

	if err := os.Remove(root); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	d := newDaemon(o)
	if err := d.Start(fakeService{}); err == nil {
		t.Error("Expected Start to report a missing watch root")
	}
	if err := d.Stop(fakeService{}); err != nil {
		t.Errorf("Stop after a failed start should succeed: %v", err)
	}
}
