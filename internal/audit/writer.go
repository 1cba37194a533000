package audit

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"

	"filewatch/internal/organizer"
)

// ErrNoActiveRun is returned by EndRun when no run was started.
var ErrNoActiveRun = errors.New("no active run")

// Writer appends audit events to a size-rotated JSON Lines file.
type Writer struct {
	mu         sync.Mutex
	out        *lumberjack.Logger
	logger     *slog.Logger
	currentRun *RunID
}

// NewWriter creates the log directory if needed and opens the audit log for
// appending.
func NewWriter(config Config, logger *slog.Logger) (*Writer, error) {
	if config.Path == "" {
		return nil, errors.New("audit log path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Writer{
		out: &lumberjack.Logger{
			Filename:   config.Path,
			MaxSize:    config.MaxSizeMB,
			MaxBackups: config.MaxBackups,
		},
		logger: logger.With("component", "audit"),
	}, nil
}

// GenerateRunID returns a new UUID v4 run identifier.
func GenerateRunID() RunID {
	return RunID(uuid.New().String())
}

// StartRun begins a run and writes its RUN_START event.
func (w *Writer) StartRun(runType RunType, root string) (RunID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	runID := GenerateRunID()
	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		EventType: EventRunStart,
		Status:    StatusSuccess,
		Metadata: map[string]string{
			"runType": string(runType),
			"root":    root,
		},
	}
	if err := w.writeEventLocked(event); err != nil {
		return "", fmt.Errorf("failed to write RUN_START event: %w", err)
	}

	w.currentRun = &runID
	return runID, nil
}

// RecordProcess writes a PROCESS event for one processor invocation. A write
// failure is logged rather than returned so that auditing never interrupts
// processing.
func (w *Writer) RecordProcess(processor, path string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventProcess,
		Status:    StatusSuccess,
		Processor: processor,
		Path:      path,
	}
	if w.currentRun != nil {
		event.RunID = *w.currentRun
	}
	if err != nil {
		event.Status = StatusFailure
		event.ErrorDetails = &ErrorDetails{
			ErrorType:    errorType(err),
			ErrorMessage: err.Error(),
		}
	}

	if werr := w.writeEventLocked(event); werr != nil {
		w.logger.Error("failed to record audit event", "processor", processor, "path", path, "err", werr)
	}
}

func (w *Writer) writeEventLocked(event AuditEvent) error {
	data, err := event.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	data = append(data, '\n')

	// One Write per event keeps lines whole across rotation.
	if _, err := w.out.Write(data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

// EndRun records the run completion status and summary.
func (w *Writer) EndRun(status RunStatus, summary RunSummary) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentRun == nil {
		return ErrNoActiveRun
	}

	opStatus := StatusSuccess
	if status != RunStatusCompleted {
		opStatus = StatusFailure
	}
	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		RunID:     *w.currentRun,
		EventType: EventRunEnd,
		Status:    opStatus,
		Metadata: map[string]string{
			"status":        string(status),
			"notifications": strconv.Itoa(summary.Notifications),
			"runs":          strconv.Itoa(summary.Runs),
			"failures":      strconv.Itoa(summary.Failures),
			"vanished":      strconv.Itoa(summary.Vanished),
			"skipped":       strconv.Itoa(summary.Skipped),
		},
	}
	if err := w.writeEventLocked(event); err != nil {
		return fmt.Errorf("failed to write RUN_END event: %w", err)
	}

	w.currentRun = nil
	return nil
}

// Close closes the audit log file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.out.Close(); err != nil {
		return fmt.Errorf("failed to close audit log: %w", err)
	}
	return nil
}

// CurrentRunID returns the current run ID, or nil if no run is active.
func (w *Writer) CurrentRunID() *RunID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentRun
}

// errorType names the failure class of err for the audit record.
func errorType(err error) string {
	var procErr *organizer.ProcessError
	if errors.As(err, &procErr) {
		return string(procErr.Type)
	}
	return "ERROR"
}
