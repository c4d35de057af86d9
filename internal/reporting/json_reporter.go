package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"specrun/internal/results"
	"specrun/pkg/logging"
)

// JSONReporter emits the final run summary as indented JSON for machine
// consumption once the run finishes.
type JSONReporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewJSONReporter creates a reporter that writes the summary to w.
func NewJSONReporter(w io.Writer) *JSONReporter {
	return &JSONReporter{w: w}
}

// Attach subscribes the reporter to the bus.
func (r *JSONReporter) Attach(bus EventBus) *EventSubscription {
	return bus.Subscribe(FilterByType(EventTypeRunFinished), r.Handle)
}

// Handle processes a single event.
func (r *JSONReporter) Handle(event Event) {
	e, ok := event.(RunFinishedEvent)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(e.Summary, "", "  ")
	if err != nil {
		fmt.Fprintf(r.w, `{"error": %q}`+"\n", err.Error())
		return
	}
	fmt.Fprintln(r.w, string(data))
}

// WriteReportFile saves the summary as an indented JSON file under dir,
// creating the directory if needed and naming the file with a timestamp.
// It returns the full path of the written report.
func WriteReportFile(dir string, summary *results.RunSummary) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	fullPath := filepath.Join(dir, fmt.Sprintf("specrun-report-%s.json", timestamp))

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report to JSON: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}

	logging.Debug("Reporter", "Saved JSON report to %s", fullPath)
	return fullPath, nil
}
