// Package pipeline ties a watch source to an ordered chain of processors.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"filewatch/internal/organizer"
	"filewatch/internal/scanner"
)

// ErrAlreadyWatching is returned by Start when the pipeline is already watching.
var ErrAlreadyWatching = errors.New("pipeline already watching")

// State is the pipeline lifecycle state.
type State int

const (
	Stopped State = iota
	Watching
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Watching:
		return "watching"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Source delivers one path per creation event below root. Watch is called
// once per Start; Close ends delivery and closes the channel.
type Source interface {
	Watch(root string) (<-chan string, error)
	Close() error
}

// skipCounter is implemented by sources that drop ignored paths themselves.
type skipCounter interface {
	Skipped() int
}

// Recorder receives the outcome of every processor invocation.
type Recorder interface {
	RecordProcess(processor, path string, err error)
}

// Waiter blocks until a freshly created file is ready to be processed.
type Waiter interface {
	Wait(ctx context.Context, path string) error
}

// Filter reports paths a sweep should leave alone.
type Filter interface {
	ShouldIgnore(path string) bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithRecorder sends every processor outcome to r.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// WithStability makes the pipeline wait on w before running the chain for a
// notified regular file.
func WithStability(w Waiter) Option {
	return func(p *Pipeline) {
		p.waiter = w
	}
}

// WithFilter makes Sweep skip the paths f ignores. Watch notifications are
// filtered by the source.
func WithFilter(f Filter) Option {
	return func(p *Pipeline) {
		p.filter = f
	}
}

// Pipeline owns the processors and the watch root. Notifications are handled
// one at a time: a path's whole chain finishes before the next path starts.
type Pipeline struct {
	root       string
	processors []organizer.Processor
	source     Source
	logger     *slog.Logger
	recorder   Recorder
	waiter     Waiter
	filter     Filter

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	wg     sync.WaitGroup
	stats  *tally
}

// New creates a stopped Pipeline running processors, in order, on every path
// source reports below root.
func New(root string, processors []organizer.Processor, source Source, opts ...Option) *Pipeline {
	chain := make([]organizer.Processor, len(processors))
	copy(chain, processors)

	p := &Pipeline{
		root:       root,
		processors: chain,
		source:     source,
		logger:     slog.Default(),
		stats:      newTally(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "pipeline")
	return p
}

// Root returns the watch root.
func (p *Pipeline) Root() string {
	return p.root
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start attaches to the watch source and begins dispatching. On failure the
// pipeline stays Stopped and the error is returned.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Watching {
		return ErrAlreadyWatching
	}
	if p.source == nil {
		return errors.New("pipeline has no watch source")
	}

	events, err := p.source.Watch(p.root)
	if err != nil {
		p.logger.Error("failed to start watching", "root", p.root, "err", err)
		return fmt.Errorf("start watching %s: %w", p.root, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.stats = newTally()
	p.state = Watching

	p.wg.Add(1)
	go p.run(ctx, events, p.stats)

	p.logger.Info("pipeline started", "root", p.root, "processors", len(p.processors))
	return nil
}

// Stop stops dispatching and detaches from the watch source. A chain already
// running completes first; no path is dispatched after Stop returns. Stop on
// a stopped pipeline returns the summary of the last session.
func (p *Pipeline) Stop() *Summary {
	p.mu.Lock()
	if p.state != Watching {
		stats := p.stats
		p.mu.Unlock()
		return stats.snapshot()
	}
	p.state = Stopped
	cancel := p.cancel
	p.cancel = nil
	stats := p.stats
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
	if err := p.source.Close(); err != nil {
		p.logger.Warn("closing watch source", "err", err)
	}
	if sc, ok := p.source.(skipCounter); ok {
		stats.skip(sc.Skipped())
	}

	summary := stats.snapshot()
	p.logger.Info("pipeline stopped",
		"notifications", summary.Notifications,
		"runs", summary.Runs,
		"failures", summary.Failures,
		"skipped", summary.Skipped,
		"duration", summary.Duration)
	return summary
}

// Dispatch runs every processor on path in configured order and returns one
// Result per processor. A failing processor never stops the ones after it.
func (p *Pipeline) Dispatch(path string) []Result {
	results := make([]Result, 0, len(p.processors))
	for _, proc := range p.processors {
		err := proc.Proceed(path)
		if err != nil {
			p.logger.Error("processor failed", "processor", proc.Name(), "path", path, "err", err)
		}
		if p.recorder != nil {
			p.recorder.RecordProcess(proc.Name(), path, err)
		}
		results = append(results, Result{Path: path, Processor: proc.Name(), Err: err})
	}
	return results
}

// Sweep dispatches every file already present below the watch root once.
// It does not depend on the watch source and may run in either state.
func (p *Pipeline) Sweep() (*Summary, error) {
	files, err := scanner.ListFiles(p.root, true)
	if err != nil {
		return nil, err
	}

	t := newTally()
	for _, file := range files {
		if p.filter != nil && p.filter.ShouldIgnore(file) {
			t.skip(1)
			continue
		}
		t.add(p.Dispatch(file))
	}
	summary := t.snapshot()
	p.logger.Info("sweep finished", "root", p.root, "files", len(files), "failures", summary.Failures)
	return summary, nil
}

func (p *Pipeline) run(ctx context.Context, events <-chan string, stats *tally) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-events:
			if !ok {
				p.logger.Warn("watch source closed", "root", p.root)
				return
			}
			// Stop may have raced with the receive.
			if ctx.Err() != nil {
				return
			}
			p.handle(ctx, path, stats)
		}
	}
}

func (p *Pipeline) handle(ctx context.Context, path string, stats *tally) {
	if p.waiter != nil && isRegular(path) {
		if err := p.waiter.Wait(ctx, path); err != nil {
			if ctx.Err() != nil {
				return
			}
			if _, statErr := os.Lstat(path); os.IsNotExist(statErr) {
				p.logger.Debug("file vanished before dispatch", "path", path)
				stats.vanished()
				return
			}
			p.logger.Warn("file did not settle, dispatching anyway", "path", path, "err", err)
		}
	}

	p.logger.Debug("dispatching", "path", path)
	stats.add(p.Dispatch(path))
}

func isRegular(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode().IsRegular()
}
