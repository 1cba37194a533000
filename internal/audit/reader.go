package audit

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Reader reads audit events from the active log and its rotated segments.
type Reader struct {
	logPath string
}

// NewReader creates a Reader for the audit log at logPath.
func NewReader(logPath string) *Reader {
	return &Reader{logPath: logPath}
}

// Segments returns the rotated segments, oldest first, followed by the active
// log. Files that do not exist are left out.
func (r *Reader) Segments() ([]string, error) {
	dir := filepath.Dir(r.logPath)
	base := filepath.Base(r.logPath)
	ext := filepath.Ext(base)
	prefix := strings.TrimSuffix(base, ext) + "-"

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read audit directory: %w", err)
	}

	// Rotated names embed a sortable timestamp: name-2006-01-02T15-04-05.000.ext
	var segments []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == base {
			continue
		}
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ext) {
			segments = append(segments, filepath.Join(dir, name))
		}
	}
	sort.Strings(segments)

	if _, err := os.Stat(r.logPath); err == nil {
		segments = append(segments, r.logPath)
	}
	return segments, nil
}

// ReadEvents returns every event across all segments in write order.
func (r *Reader) ReadEvents() ([]AuditEvent, error) {
	segments, err := r.Segments()
	if err != nil {
		return nil, err
	}

	var all []AuditEvent
	for _, segment := range segments {
		events, err := readEventsFromFile(segment)
		if err != nil {
			return nil, fmt.Errorf("failed to read events from %s: %w", segment, err)
		}
		all = append(all, events...)
	}
	return all, nil
}

// ListRuns returns one RunInfo per run, in start order.
func (r *Reader) ListRuns() ([]RunInfo, error) {
	events, err := r.ReadEvents()
	if err != nil {
		return nil, err
	}
	return BuildRuns(events), nil
}

// GetRun returns the events of one run.
func (r *Reader) GetRun(runID RunID) ([]AuditEvent, error) {
	events, err := r.ReadEvents()
	if err != nil {
		return nil, err
	}

	var result []AuditEvent
	for _, e := range events {
		if e.RunID == runID {
			result = append(result, e)
		}
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	return result, nil
}

// BuildRuns groups events into runs. A run without RUN_END stays IN_PROGRESS.
func BuildRuns(events []AuditEvent) []RunInfo {
	index := make(map[RunID]int)
	var runs []RunInfo

	for _, e := range events {
		if e.RunID == "" {
			continue
		}
		i, ok := index[e.RunID]
		if !ok {
			i = len(runs)
			index[e.RunID] = i
			runs = append(runs, RunInfo{RunID: e.RunID, Status: RunStatusInProgress, StartTime: e.Timestamp})
		}
		run := &runs[i]

		switch e.EventType {
		case EventRunStart:
			run.StartTime = e.Timestamp
			run.RunType = RunType(e.Metadata["runType"])
			run.Root = e.Metadata["root"]
		case EventProcess:
			run.Events++
		case EventRunEnd:
			end := e.Timestamp
			run.EndTime = &end
			run.Status = RunStatus(e.Metadata["status"])
			run.Summary = parseSummary(e.Metadata)
		}
	}
	return runs
}

func parseSummary(metadata map[string]string) RunSummary {
	atoi := func(key string) int {
		n, _ := strconv.Atoi(metadata[key])
		return n
	}
	return RunSummary{
		Notifications: atoi("notifications"),
		Runs:          atoi("runs"),
		Failures:      atoi("failures"),
		Vanished:      atoi("vanished"),
		Skipped:       atoi("skipped"),
	}
}

func readEventsFromFile(filePath string) ([]AuditEvent, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	var events []AuditEvent
	scanner := bufio.NewScanner(file)

	const maxScanTokenSize = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxScanTokenSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		event, err := UnmarshalJSONLine(line)
		if err != nil {
			return nil, fmt.Errorf("failed to parse line %d: %w", lineNum, err)
		}
		events = append(events, *event)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading log file: %w", err)
	}
	return events, nil
}
