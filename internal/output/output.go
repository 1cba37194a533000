// Package output handles human-facing CLI output: status lines, run
// summaries and audit history.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"

	"filewatch/internal/audit"
	"filewatch/internal/orchestrator"
	"filewatch/internal/pipeline"
)

// Config holds output configuration.
type Config struct {
	Verbose   bool      // Enable verbose output
	Writer    io.Writer // Output destination (default: os.Stdout)
	ErrWriter io.Writer // Error output destination (default: os.Stderr)
	IsTTY     bool      // Whether output is a terminal; colour is used only then
}

// Output handles formatted output with verbose and colour support.
type Output struct {
	config  Config
	success *color.Color
	warning *color.Color
	failure *color.Color
	faint   *color.Color
}

// New creates a new Output instance with the given configuration.
func New(config Config) *Output {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	if config.ErrWriter == nil {
		config.ErrWriter = os.Stderr
	}
	o := &Output{
		config:  config,
		success: color.New(color.FgGreen),
		warning: color.New(color.FgYellow),
		failure: color.New(color.FgRed, color.Bold),
		faint:   color.New(color.Faint),
	}
	for _, c := range []*color.Color{o.success, o.warning, o.failure, o.faint} {
		if config.IsTTY {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return o
}

// DefaultConfig returns a Config with sensible defaults and TTY detection.
func DefaultConfig() Config {
	return Config{
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		IsTTY:     term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// Verbose prints a message only when verbose mode is enabled.
func (o *Output) Verbose(format string, args ...interface{}) {
	if !o.config.Verbose {
		return
	}
	fmt.Fprint(o.config.Writer, line(format, args...))
}

// Info prints an informational message (always shown).
func (o *Output) Info(format string, args ...interface{}) {
	fmt.Fprint(o.config.Writer, line(format, args...))
}

// Success prints a message in green.
func (o *Output) Success(format string, args ...interface{}) {
	o.success.Fprint(o.config.Writer, line(format, args...))
}

// Warning prints a message in yellow to stderr.
func (o *Output) Warning(format string, args ...interface{}) {
	o.warning.Fprint(o.config.ErrWriter, line(format, args...))
}

// Error prints an error message to stderr.
func (o *Output) Error(format string, args ...interface{}) {
	o.failure.Fprint(o.config.ErrWriter, line(format, args...))
}

// Summary prints a pipeline summary; each failure is listed in verbose mode.
func (o *Output) Summary(title string, s *pipeline.Summary) {
	o.Info("%s: %s (%s)", title, s.String(), s.Duration.Round(time.Millisecond))
	if s.Vanished > 0 {
		o.Info("  %d files vanished before processing", s.Vanished)
	}
	if s.Skipped > 0 {
		o.Info("  %d paths matched ignore patterns", s.Skipped)
	}
	if !s.HasErrors() {
		o.Success("  no failures")
		return
	}
	o.Error("  %d processor failures", s.Failures)
	if !o.config.Verbose {
		return
	}
	for _, r := range s.Failed {
		o.Error("    [%s] %s: %v", r.Processor, r.Path, r.Err)
	}
}

// Runs prints one line per audit run, newest last.
func (o *Output) Runs(runs []audit.RunInfo) {
	if len(runs) == 0 {
		o.Info("No runs recorded.")
		return
	}
	for _, run := range runs {
		head := fmt.Sprintf("%s  %-5s %s  %s",
			run.StartTime.Local().Format("2006-01-02 15:04:05"),
			run.RunType, run.RunID, run.Root)

		switch run.Status {
		case audit.RunStatusCompleted:
			if run.Summary.Failures > 0 {
				o.warning.Fprint(o.config.Writer, line("%s  %d files, %d failures", head, run.Summary.Notifications, run.Summary.Failures))
			} else {
				o.success.Fprint(o.config.Writer, line("%s  %d files", head, run.Summary.Notifications))
			}
		case audit.RunStatusInProgress:
			o.faint.Fprint(o.config.Writer, line("%s  in progress (%d events)", head, run.Events))
		default:
			o.failure.Fprint(o.config.Writer, line("%s  %s", head, strings.ToLower(string(run.Status))))
		}
	}
}

// Status prints the pending files below the watch root: per-directory counts,
// and every file in verbose mode.
func (o *Output) Status(r *orchestrator.StatusResult) {
	if r.Total == 0 {
		o.Success("No pending files in %s", r.Root)
	} else {
		o.Info("%d pending files in %s", r.Total, r.Root)
	}
	for _, dir := range r.Directories() {
		files := r.ByDirectory[dir]
		o.Info("  %s: %d", dir, len(files))
		if !o.config.Verbose {
			continue
		}
		for _, file := range files {
			o.faint.Fprint(o.config.Writer, line("    %s", file))
		}
	}
	if r.Ignored > 0 {
		o.Info("  %d files match ignore patterns", r.Ignored)
	}
}

// IsVerbose returns whether verbose mode is enabled.
func (o *Output) IsVerbose() bool {
	return o.config.Verbose
}

// IsTTY returns whether the output is a terminal.
func (o *Output) IsTTY() bool {
	return o.config.IsTTY
}

func line(format string, args ...interface{}) string {
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	return msg
}
