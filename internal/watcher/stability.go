package watcher

import (
	"context"
	"errors"
	"os"
	"time"
)

var (
	// ErrFileVanished is returned by Wait when the file is removed or renamed
	// away before it settles.
	ErrFileVanished = errors.New("file vanished")
	// ErrFileUnstable is returned by Wait when the file is still changing when
	// the settle timeout expires.
	ErrFileUnstable = errors.New("file did not stabilize within timeout")
)

const (
	defaultSettleTimeout = 30 * time.Second
	minPollInterval      = 50 * time.Millisecond
)

// StabilityChecker holds back a freshly created file until its writer is
// done with it: the file counts as settled once neither its size nor its
// modification time has changed for the threshold.
type StabilityChecker struct {
	threshold time.Duration
	timeout   time.Duration
	interval  time.Duration
}

// StabilityOption tunes a StabilityChecker.
type StabilityOption func(*StabilityChecker)

// WithSettleTimeout bounds how long Wait keeps sampling a changing file.
func WithSettleTimeout(d time.Duration) StabilityOption {
	return func(s *StabilityChecker) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithPollInterval sets how often Wait samples the file.
func WithPollInterval(d time.Duration) StabilityOption {
	return func(s *StabilityChecker) {
		if d > 0 {
			s.interval = d
		}
	}
}

// NewStabilityChecker creates a StabilityChecker for threshold. Unless
// overridden, Wait gives up after 30s and samples every threshold/4, but no
// more often than every 50ms.
func NewStabilityChecker(threshold time.Duration, opts ...StabilityOption) *StabilityChecker {
	s := &StabilityChecker{
		threshold: threshold,
		timeout:   defaultSettleTimeout,
		interval:  max(threshold/4, minPollInterval),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Threshold returns how long a file must stay unchanged.
func (s *StabilityChecker) Threshold() time.Duration {
	return s.threshold
}

// Wait blocks until path has settled. It fails with ErrFileVanished,
// ErrFileUnstable, or the error of ctx when ctx ends first.
func (s *StabilityChecker) Wait(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	last, err := sample(path)
	if err != nil {
		return err
	}
	quietSince := time.Now()

	poll := time.NewTimer(s.interval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrFileUnstable
			}
			return ctx.Err()
		case <-poll.C:
		}

		current, err := sample(path)
		if err != nil {
			return err
		}
		if !current.equal(last) {
			last, quietSince = current, time.Now()
		} else if time.Since(quietSince) >= s.threshold {
			return nil
		}
		poll.Reset(s.interval)
	}
}

// fileState is what Wait compares between two samples.
type fileState struct {
	size    int64
	modTime time.Time
}

func (f fileState) equal(other fileState) bool {
	return f.size == other.size && f.modTime.Equal(other.modTime)
}

func sample(path string) (fileState, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fileState{}, ErrFileVanished
	}
	if err != nil {
		return fileState{}, err
	}
	return fileState{size: info.Size(), modTime: info.ModTime()}, nil
}
