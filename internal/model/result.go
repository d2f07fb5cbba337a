package model

import "sync"

// AggregateResult collects the outcome of one deployment invocation. It is
// created fresh per run and discarded after reporting. Record is safe for
// concurrent use so cluster workers can share one accumulator.
type AggregateResult struct {
	RunID string

	mu      sync.Mutex
	success bool
	errors  []string
}

func NewAggregateResult(runID string) *AggregateResult {
	return &AggregateResult{RunID: runID, success: true}
}

// Record appends a failure reason and flips the overall outcome.
func (r *AggregateResult) Record(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
	r.success = false
}

func (r *AggregateResult) Success() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.success
}

// Errors returns the recorded failure reasons in order of occurrence.
func (r *AggregateResult) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.errors))
	copy(out, r.errors)
	return out
}
