// Package orchestrator builds the filewatch components from a configuration
// and runs them as watch sessions or one-shot sweeps.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"filewatch/internal/audit"
	"filewatch/internal/config"
	"filewatch/internal/logging"
	"filewatch/internal/organizer"
	"filewatch/internal/pipeline"
	"filewatch/internal/watcher"
)

// Orchestrator holds everything built from one configuration: the logger,
// the processor chain and the optional audit writer.
type Orchestrator struct {
	config     *config.Configuration
	logger     *slog.Logger
	logCloser  io.Closer
	processors []organizer.Processor
	audit      *audit.Writer
}

// New creates an Orchestrator with the logger described by cfg.Log.
func New(cfg *config.Configuration) (*Orchestrator, error) {
	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	return NewWithLogger(cfg, logger, closer)
}

// NewWithLogger creates an Orchestrator that logs to logger. closer is
// released by Close; it may be nil.
func NewWithLogger(cfg *config.Configuration, logger *slog.Logger, closer io.Closer) (*Orchestrator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	processors, err := organizer.NewChain(cfg.Processors, logger)
	if err != nil {
		closeQuietly(closer)
		return nil, err
	}

	o := &Orchestrator{
		config:     cfg,
		logger:     logger,
		logCloser:  closer,
		processors: processors,
	}

	if cfg.Audit.Path != "" {
		w, err := audit.NewWriter(audit.Config{
			Path:       cfg.Audit.Path,
			MaxSizeMB:  cfg.Audit.MaxSizeMB,
			MaxBackups: cfg.Audit.MaxBackups,
		}, logger)
		if err != nil {
			closeQuietly(closer)
			return nil, err
		}
		o.audit = w
	}
	return o, nil
}

// Logger returns the orchestrator's logger.
func (o *Orchestrator) Logger() *slog.Logger {
	return o.logger
}

// newPipeline builds a pipeline over a fresh fsnotify watcher; a watcher
// attaches only once, so every watch session gets its own.
func (o *Orchestrator) newPipeline() (*pipeline.Pipeline, error) {
	w, err := watcher.New(&watcher.WatchConfig{IgnorePatterns: o.config.IgnorePatterns}, o.logger)
	if err != nil {
		return nil, err
	}

	filter, err := watcher.NewFileFilter(o.config.IgnorePatterns)
	if err != nil {
		return nil, err
	}

	opts := []pipeline.Option{pipeline.WithLogger(o.logger), pipeline.WithFilter(filter)}
	if o.audit != nil {
		opts = append(opts, pipeline.WithRecorder(o.audit))
	}
	if o.config.StableThresholdMs > 0 {
		threshold := time.Duration(o.config.StableThresholdMs) * time.Millisecond
		opts = append(opts, pipeline.WithStability(watcher.NewStabilityChecker(threshold)))
	}
	return pipeline.New(o.config.WatchRoot, o.processors, w, opts...), nil
}

// Watch runs a watch session until ctx is cancelled.
func (o *Orchestrator) Watch(ctx context.Context) (*pipeline.Summary, error) {
	p, err := o.StartWatch()
	if err != nil {
		return nil, err
	}
	<-ctx.Done()
	return o.StopWatch(p), nil
}

// StartWatch attaches a new pipeline to the watch root and opens its audit run.
func (o *Orchestrator) StartWatch() (*pipeline.Pipeline, error) {
	p, err := o.newPipeline()
	if err != nil {
		return nil, err
	}
	o.startRun(audit.RunTypeWatch)

	if err := p.Start(); err != nil {
		o.endRun(audit.RunStatusFailed, &pipeline.Summary{})
		return nil, err
	}
	return p, nil
}

// StopWatch detaches p and closes its audit run.
func (o *Orchestrator) StopWatch(p *pipeline.Pipeline) *pipeline.Summary {
	summary := p.Stop()
	o.endRun(audit.RunStatusCompleted, summary)
	return summary
}

// Sweep dispatches every file already under the watch root once.
func (o *Orchestrator) Sweep() (*pipeline.Summary, error) {
	p, err := o.newPipeline()
	if err != nil {
		return nil, err
	}
	o.startRun(audit.RunTypeSweep)

	summary, err := p.Sweep()
	if err != nil {
		o.endRun(audit.RunStatusFailed, &pipeline.Summary{})
		return nil, err
	}
	o.endRun(audit.RunStatusCompleted, summary)
	return summary, nil
}

func (o *Orchestrator) startRun(runType audit.RunType) {
	if o.audit == nil {
		return
	}
	if _, err := o.audit.StartRun(runType, o.config.WatchRoot); err != nil {
		o.logger.Error("failed to start audit run", "err", err)
	}
}

func (o *Orchestrator) endRun(status audit.RunStatus, s *pipeline.Summary) {
	if o.audit == nil {
		return
	}
	err := o.audit.EndRun(status, audit.RunSummary{
		Notifications: s.Notifications,
		Runs:          s.Runs,
		Failures:      s.Failures,
		Vanished:      s.Vanished,
		Skipped:       s.Skipped,
	})
	if err != nil && !errors.Is(err, audit.ErrNoActiveRun) {
		o.logger.Error("failed to end audit run", "err", err)
	}
}

// Close releases the audit log and the log file.
func (o *Orchestrator) Close() error {
	var errs []error
	if o.audit != nil {
		if err := o.audit.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if o.logCloser != nil {
		if err := o.logCloser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close log file: %w", err))
		}
	}
	return errors.Join(errs...)
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
