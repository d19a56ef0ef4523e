package domain

import (
	"sync"
	"time"
)

// OutcomeKind tags the per-PID result of a dispatched action.
type OutcomeKind string

// Outcome kinds.
const (
	OutcomeSucceeded OutcomeKind = "succeeded"
	OutcomeFailed    OutcomeKind = "failed"
	OutcomeSkipped   OutcomeKind = "skipped"
)

// Outcome is the result of dispatching one SyncAction.
type Outcome struct {
	Kind OutcomeKind

	// Retries counts how many times the operation was retried before this
	// outcome was reached. Zero for non-retried operations.
	Retries int

	// Err is the final error for failed outcomes.
	Err error
}

// Result ties a PID to its decided action and dispatch outcome. One Result
// is recorded per processed PID.
type Result struct {
	PID           string      `json:"pid"`
	Action        ActionKind  `json:"action,omitempty"`
	Outcome       OutcomeKind `json:"outcome"`
	DestinationID string      `json:"destination_id,omitempty"`
	SkipReason    SkipReason  `json:"skip_reason,omitempty"`
	Retries       int         `json:"retries,omitempty"`
	Error         string      `json:"error,omitempty"`

	// Record carries the fetched destination record for the get verb.
	Record *Article `json:"record,omitempty"`

	ProcessedAt time.Time `json:"processed_at"`
}

// RunSummary aggregates the outcomes of one invocation. It is safe for
// concurrent use by dispatch workers.
type RunSummary struct {
	mu sync.Mutex

	// RunID identifies this invocation in the result output.
	RunID string

	Succeeded int
	Failed    int
	Skipped   int

	// FailedPIDs lists every failed PID with its error detail.
	FailedPIDs []FailedPID
}

// FailedPID is one failed item with its reason.
type FailedPID struct {
	PID    string `json:"pid"`
	Detail string `json:"detail"`
}

// NewRunSummary creates a summary for the given run ID.
func NewRunSummary(runID string) *RunSummary {
	return &RunSummary{RunID: runID}
}

// Record folds one result into the summary and returns how many results
// have been recorded so far.
func (s *RunSummary) Record(res Result) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch res.Outcome {
	case OutcomeSucceeded:
		s.Succeeded++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
		s.FailedPIDs = append(s.FailedPIDs, FailedPID{PID: res.PID, Detail: res.Error})
	}
	return s.Succeeded + s.Failed + s.Skipped
}

// HasFailures reports whether any item failed. The process exits non-zero
// when true.
func (s *RunSummary) HasFailures() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Failed > 0
}

// Counts returns the aggregated counters.
func (s *RunSummary) Counts() (succeeded, failed, skipped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Succeeded, s.Failed, s.Skipped
}
