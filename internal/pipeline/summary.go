package pipeline

import (
	"fmt"
	"sync"
	"time"
)

// Result represents the outcome of one processor on one path.
type Result struct {
	Path      string
	Processor string
	Err       error
}

// Success reports whether the processor completed without error.
func (r Result) Success() bool {
	return r.Err == nil
}

// Summary represents the overall results of a watch session or sweep.
type Summary struct {
	Notifications int           // Paths dispatched through the chain
	Runs          int           // Individual processor invocations
	Failures      int           // Invocations that returned an error
	Vanished      int           // Paths gone before their chain started
	Skipped       int           // Paths dropped by the ignore patterns
	Duration      time.Duration // Time between start and stop
	Failed        []Result      // Every failed invocation, in order
}

// HasErrors returns true if any processor failed.
func (s *Summary) HasErrors() bool {
	return s.Failures > 0
}

// String returns a one-line summary.
func (s *Summary) String() string {
	return fmt.Sprintf("Dispatched %d files: %d processor runs, %d failures",
		s.Notifications, s.Runs, s.Failures)
}

// tally accumulates a Summary while the pipeline is running.
type tally struct {
	mu      sync.Mutex
	started time.Time
	summary Summary
}

func newTally() *tally {
	return &tally{started: time.Now()}
}

func (t *tally) add(results []Result) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.summary.Notifications++
	for _, r := range results {
		t.summary.Runs++
		if !r.Success() {
			t.summary.Failures++
			t.summary.Failed = append(t.summary.Failed, r)
		}
	}
}

func (t *tally) skip(n int) {
	t.mu.Lock()
	t.summary.Skipped += n
	t.mu.Unlock()
}

func (t *tally) vanished() {
	t.mu.Lock()
	t.summary.Vanished++
	t.mu.Unlock()
}

// snapshot returns a copy of the current Summary with Duration filled in.
func (t *tally) snapshot() *Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.summary
	s.Failed = append([]Result(nil), t.summary.Failed...)
	s.Duration = time.Since(t.started)
	return &s
}
