// Package report writes run results as JSON lines: one object per
// processed PID plus a final summary object, distinguished by a "type"
// field so downstream tooling can stream-parse the output.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/scieloorg/doaj-exporter/internal/core/domain"
	"github.com/scieloorg/doaj-exporter/internal/core/ports/driven"
)

// Ensure Writer implements the interface.
var _ driven.ResultWriter = (*Writer)(nil)

// Writer is a goroutine-safe JSONL result writer. Dispatch workers write
// results concurrently; the encoder is guarded so lines never interleave.
type Writer struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
}

// NewWriter wraps an open stream. The stream is not closed by Close.
func NewWriter(out io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(out)}
}

// Open creates a writer on the named file, truncating it. An empty path or
// "-" selects standard output.
func Open(path string) (*Writer, error) {
	if path == "" || path == "-" {
		return NewWriter(os.Stdout), nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: creating output file %s: %v", domain.ErrConfig, path, err)
	}
	w := NewWriter(f)
	w.closer = f
	return w, nil
}

type resultLine struct {
	Type string `json:"type"`
	domain.Result
}

type summaryLine struct {
	Type       string             `json:"type"`
	RunID      string             `json:"run_id"`
	Succeeded  int                `json:"succeeded"`
	Failed     int                `json:"failed"`
	Skipped    int                `json:"skipped"`
	FailedPIDs []domain.FailedPID `json:"failed_pids,omitempty"`
}

// Write records one per-PID result.
func (w *Writer) Write(result domain.Result) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.enc.Encode(resultLine{Type: "result", Result: result}); err != nil {
		return fmt.Errorf("encoding result for %s: %w", result.PID, err)
	}
	return nil
}

// WriteSummary records the final run summary.
func (w *Writer) WriteSummary(summary *domain.RunSummary) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	succeeded, failed, skipped := summary.Counts()
	line := summaryLine{
		Type:       "summary",
		RunID:      summary.RunID,
		Succeeded:  succeeded,
		Failed:     failed,
		Skipped:    skipped,
		FailedPIDs: summary.FailedPIDs,
	}
	if err := w.enc.Encode(line); err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	return nil
}

// Close releases the underlying file, if the writer owns one.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}
