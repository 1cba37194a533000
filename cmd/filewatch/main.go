// Package main provides the CLI entry point for filewatch.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"filewatch/internal/audit"
	"filewatch/internal/config"
	"filewatch/internal/orchestrator"
	"filewatch/internal/output"
	"filewatch/internal/prompt"
)

const usage = `Usage: filewatch <command> [-v] [-i] [config-file]

Commands:
  watch      watch the configured directory until interrupted
  run        process every file already in the directory once
  status     list the files a run would process
  history    list recorded runs from the audit log
  init       write a sample configuration file (-i asks for each setting)
  install    install filewatch as an OS service
  uninstall  remove the OS service
  service    run under the OS service manager

The configuration file defaults to $FILEWATCH_CONFIG.
-v prints more detail.`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// invocation is a parsed command line.
type invocation struct {
	command     string
	configPath  string
	verbose     bool
	interactive bool
}

func parseArgs(args []string) (invocation, error) {
	var inv invocation
	var positional []string
	for _, arg := range args {
		switch arg {
		case "-v", "--verbose":
			inv.verbose = true
		case "-i", "--interactive":
			inv.interactive = true
		case "-h", "--help", "help":
			return invocation{command: "help"}, nil
		default:
			positional = append(positional, arg)
		}
	}
	if len(positional) == 0 {
		return inv, errors.New("missing command")
	}
	if len(positional) > 2 {
		return inv, fmt.Errorf("unexpected arguments: %v", positional[2:])
	}
	inv.command = positional[0]
	if len(positional) == 2 {
		inv.configPath = positional[1]
	}
	return inv, nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	inv, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n\n%s\n", err, usage)
		return 1
	}
	if inv.command == "help" {
		fmt.Fprintln(stdout, usage)
		return 0
	}

	outCfg := output.DefaultConfig()
	if stdout != os.Stdout {
		outCfg.IsTTY = false
	}
	outCfg.Writer = stdout
	outCfg.ErrWriter = stderr
	outCfg.Verbose = inv.verbose
	out := output.New(outCfg)

	config.LoadDotEnv()

	switch inv.command {
	case "watch":
		err = cmdWatch(inv, out)
	case "run":
		err = cmdRun(inv, out)
	case "status":
		err = cmdStatus(inv, out)
	case "history":
		err = cmdHistory(inv, out)
	case "init":
		err = cmdInit(inv, out, prompt.New(stdin, stdout))
	case "install", "uninstall":
		err = cmdInstall(inv, out)
	case "service":
		err = cmdService(inv, out)
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n%s\n", inv.command, usage)
		return 1
	}

	if err != nil {
		if !errors.Is(err, errFailures) {
			out.Error("Error: %v", err)
		}
		return 1
	}
	return 0
}

// errFailures signals that processing finished but some processors failed.
var errFailures = errors.New("processor failures")

// loadConfig resolves, loads and checks the configuration. Path problems are
// errors only when checkPaths is set; warnings are always printed.
func loadConfig(inv invocation, out *output.Output, checkPaths bool) (*config.Configuration, string, error) {
	path, err := config.ResolvePath(inv.configPath)
	if err != nil {
		return nil, "", err
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	out.Verbose("Loaded configuration %s", path)

	if !checkPaths {
		return cfg, path, nil
	}
	result := config.ValidateConfig(cfg)
	for _, w := range result.Warnings {
		out.Warning("Warning: %s: %s", w.Field, w.Message)
	}
	if !result.Valid {
		for _, e := range result.Errors {
			out.Error("%s: %s", e.Field, e.Message)
		}
		return nil, "", fmt.Errorf("configuration %s has %d invalid paths", path, len(result.Errors))
	}
	return cfg, path, nil
}

func cmdWatch(inv invocation, out *output.Output) error {
	cfg, _, err := loadConfig(inv, out, true)
	if err != nil {
		return err
	}
	o, err := orchestrator.New(cfg)
	if err != nil {
		return err
	}
	defer o.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out.Info("Watching %s (Ctrl+C to stop)", cfg.WatchRoot)
	summary, err := o.Watch(ctx)
	if err != nil {
		return err
	}
	out.Summary("Watch", summary)
	if summary.HasErrors() {
		return errFailures
	}
	return nil
}

func cmdRun(inv invocation, out *output.Output) error {
	cfg, _, err := loadConfig(inv, out, true)
	if err != nil {
		return err
	}
	o, err := orchestrator.New(cfg)
	if err != nil {
		return err
	}
	defer o.Close()

	summary, err := o.Sweep()
	if err != nil {
		return err
	}
	out.Summary("Run", summary)
	if summary.HasErrors() {
		return errFailures
	}
	return nil
}

func cmdStatus(inv invocation, out *output.Output) error {
	cfg, _, err := loadConfig(inv, out, true)
	if err != nil {
		return err
	}
	o, err := orchestrator.NewWithLogger(cfg, nil, nil)
	if err != nil {
		return err
	}
	defer o.Close()

	result, err := o.Status()
	if err != nil {
		return err
	}
	out.Status(result)
	return nil
}

func cmdHistory(inv invocation, out *output.Output) error {
	cfg, _, err := loadConfig(inv, out, false)
	if err != nil {
		return err
	}
	if cfg.Audit.Path == "" {
		return errors.New("audit log is disabled; set audit.path in the configuration")
	}

	runs, err := audit.NewReader(cfg.Audit.Path).ListRuns()
	if err != nil {
		return err
	}
	out.Runs(runs)
	return nil
}

func cmdInit(inv invocation, out *output.Output, p *prompt.Prompter) error {
	path, err := config.ResolvePath(inv.configPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	cfg := sampleConfig(home)
	if inv.interactive {
		if cfg, err = askConfig(p, cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	if err := config.Save(cfg, path); err != nil {
		return err
	}
	out.Success("Wrote configuration to %s", path)
	return nil
}

// askConfig walks through the settings of def and returns the answers as a
// new configuration.
func askConfig(p *prompt.Prompter, def *config.Configuration) (*config.Configuration, error) {
	var target string
	var dupPaths []string
	for _, proc := range def.Processors {
		switch proc.Type {
		case config.ProcessorMove:
			target = proc.TargetFolder
		case config.ProcessorRename:
			dupPaths = proc.DupPaths
		}
	}

	root, err := p.Ask("Directory to watch", def.WatchRoot)
	if err != nil {
		return nil, err
	}
	dupPaths, err = p.AskList("Directories to check for duplicates (comma-separated, - for none)", dupPaths)
	if err != nil {
		return nil, err
	}
	target, err = p.Ask("Move new files to (- for none)", target)
	if err != nil {
		return nil, err
	}
	auditLog, err := p.Confirm("Record processed files in an audit log?", def.Audit.Path != "")
	if err != nil {
		return nil, err
	}

	cfg := &config.Configuration{WatchRoot: root, Log: def.Log}
	if len(dupPaths) > 0 {
		cfg.Processors = append(cfg.Processors, config.ProcessorConfig{
			Type: config.ProcessorRename, DupPaths: dupPaths, Recursive: true,
		})
	}
	if target != "-" && target != "" {
		cfg.Processors = append(cfg.Processors, config.ProcessorConfig{
			Type: config.ProcessorMove, TargetFolder: target,
		})
	}
	if auditLog {
		cfg.Audit = def.Audit
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func cmdInstall(inv invocation, out *output.Output) error {
	_, path, err := loadConfig(inv, out, inv.command == "install")
	if err != nil {
		return err
	}
	s, err := newService(newDaemon(nil), path)
	if err != nil {
		return err
	}

	if inv.command == "uninstall" {
		if err := uninstallService(s); err != nil {
			return err
		}
		out.Success("Service %s removed", serviceName)
		return nil
	}
	if err := installService(s); err != nil {
		return err
	}
	out.Success("Service %s installed with configuration %s", serviceName, path)
	return nil
}

func cmdService(inv invocation, out *output.Output) error {
	cfg, path, err := loadConfig(inv, out, true)
	if err != nil {
		return err
	}
	o, err := orchestrator.New(cfg)
	if err != nil {
		return err
	}
	defer o.Close()

	s, err := newService(newDaemon(o), path)
	if err != nil {
		return err
	}
	return s.Run()
}

// sampleConfig returns a starting configuration below home.
func sampleConfig(home string) *config.Configuration {
	cfg := &config.Configuration{
		WatchRoot: filepath.Join(home, "Downloads"),
		Processors: []config.ProcessorConfig{
			{Type: config.ProcessorRename, DupPaths: []string{filepath.Join(home, "Archive")}, Recursive: true},
			{Type: config.ProcessorMove, TargetFolder: filepath.Join(home, "Inbox")},
		},
		Audit: config.AuditConfig{Path: filepath.Join(home, ".filewatch", "audit.jsonl")},
	}
	cfg.ApplyDefaults()
	return cfg
}
