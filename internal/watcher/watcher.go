// Package watcher turns filesystem creation events below a directory into a
// stream of path notifications.
package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"filewatch/internal/scanner"
)

// ErrAlreadyWatching is returned by Watch when the watcher is already attached.
var ErrAlreadyWatching = errors.New("watcher already attached")

// ErrClosed is returned by Watch after Close.
var ErrClosed = errors.New("watcher closed")

// WatchConfig contains watcher settings.
type WatchConfig struct {
	IgnorePatterns []string // Glob patterns to drop (e.g., "*.tmp", "*.part")
	Buffer         int      // Notification channel capacity (default: 64)
}

// DefaultWatchConfig returns a WatchConfig with sensible defaults.
func DefaultWatchConfig() *WatchConfig {
	return &WatchConfig{
		IgnorePatterns: DefaultIgnorePatterns(),
		Buffer:         64,
	}
}

// Watcher delivers one notification per file or directory created anywhere
// below its root. Directories created after attach are watched as well, and
// the files already inside them are reported, so files moved in together
// with their directory are not missed.
type Watcher struct {
	config    *WatchConfig
	filter    *FileFilter
	logger    *slog.Logger
	fsWatcher *fsnotify.Watcher

	events chan string
	done   chan struct{}
	wg     sync.WaitGroup

	mu       sync.Mutex
	root     string
	watching map[string]bool
	closed   bool

	closeOnce sync.Once
	skipped   atomic.Int64
}

// New creates a Watcher. If config is nil, default configuration is used.
func New(config *WatchConfig, logger *slog.Logger) (*Watcher, error) {
	if config == nil {
		config = DefaultWatchConfig()
	}
	filter, err := NewFileFilter(config.IgnorePatterns)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	buffer := config.Buffer
	if buffer <= 0 {
		buffer = DefaultWatchConfig().Buffer
	}
	return &Watcher{
		config:   config,
		filter:   filter,
		logger:   logger.With("component", "watcher"),
		events:   make(chan string, buffer),
		done:     make(chan struct{}),
		watching: make(map[string]bool),
	}, nil
}

// Watch attaches to root and every directory below it and returns the
// notification channel. The channel is closed by Close. A Watcher attaches
// once; a failed attach leaves it unattached and may be retried.
func (w *Watcher) Watch(root string) (<-chan string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrClosed
	}
	if w.fsWatcher != nil {
		return nil, ErrAlreadyWatching
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("watch root %s: %w", absRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch root %s: not a directory", absRoot)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w.fsWatcher = fsw
	w.root = absRoot

	if err := w.addRecursive(absRoot); err != nil {
		fsw.Close()
		w.fsWatcher = nil
		w.watching = make(map[string]bool)
		return nil, err
	}

	w.logger.Info("watching", "root", absRoot, "directories", len(w.watching))

	w.wg.Add(1)
	go w.processEvents(fsw)

	return w.events, nil
}

// Close detaches from the filesystem and closes the notification channel.
// It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		fsw := w.fsWatcher
		w.mu.Unlock()

		close(w.done)
		if fsw != nil {
			err = fsw.Close()
		}
		w.wg.Wait()
		close(w.events)
	})
	return err
}

// Skipped returns the number of created paths dropped by the ignore filter.
func (w *Watcher) Skipped() int {
	return int(w.skipped.Load())
}

// addRecursive adds dir and every sub-directory not matched by the ignore
// filter. The caller holds w.mu.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			w.logger.Warn("cannot descend into directory", "path", path, "err", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.filter.ShouldIgnore(path) {
			return filepath.SkipDir
		}
		if w.watching[path] {
			return nil
		}
		if err := w.fsWatcher.Add(path); err != nil {
			if path == dir {
				return err
			}
			w.logger.Warn("cannot watch directory", "path", path, "err", err)
			return nil
		}
		w.watching[path] = true
		return nil
	})
}

func (w *Watcher) processEvents(fsw *fsnotify.Watcher) {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if !w.handleCreate(event.Name) {
					return
				}
			} else if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.forget(event.Name)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", "err", err)
		}
	}
}

// handleCreate emits path and, for a new directory, starts watching it and
// emits the files already inside. It returns false once the watcher is closing.
func (w *Watcher) handleCreate(path string) bool {
	if w.filter.ShouldIgnore(path) {
		w.skipped.Add(1)
		w.logger.Debug("ignoring path", "path", path)
		return true
	}

	if !w.send(path) {
		return false
	}

	info, err := os.Lstat(path)
	if err != nil || !info.IsDir() {
		return true
	}

	w.mu.Lock()
	err = w.addRecursive(path)
	w.mu.Unlock()
	if err != nil {
		w.logger.Warn("cannot watch new directory", "path", path, "err", err)
		return true
	}

	files, err := scanner.ListFiles(path, true)
	if err != nil {
		w.logger.Warn("cannot list new directory", "path", path, "err", err)
		return true
	}
	for _, file := range files {
		if w.filter.ShouldIgnore(file) {
			w.skipped.Add(1)
			continue
		}
		if !w.send(file) {
			return false
		}
	}
	return true
}

// send blocks until the consumer takes path or the watcher closes.
func (w *Watcher) send(path string) bool {
	select {
	case w.events <- path:
		return true
	case <-w.done:
		return false
	}
}

// forget drops a removed or renamed directory and everything below it from
// the bookkeeping; fsnotify already stopped watching it.
func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	prefix := path + string(filepath.Separator)
	for dir := range w.watching {
		if dir == path || (len(dir) > len(prefix) && dir[:len(prefix)] == prefix) {
			delete(w.watching, dir)
		}
	}
}
