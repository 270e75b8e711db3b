// ============================================================================
// Batch Tracker - Completion Tracking and Fail-Fast Control
// ============================================================================
//
// Package: internal/batch
// File: tracker.go
// Purpose: Owns the single piece of mutable shared state in the core
//
// State:
//   {total, completed, firstFailure, aborted} guarded by one mutex.
//   - completed is monotonically non-decreasing from 0 to total
//   - firstFailure is set at most once, by whichever Record call first
//     observes a failing outcome (first-writer-wins), and is immutable
//     thereafter
//   - the abort channel is closed exactly once, when firstFailure is set
//
// Record serializes all outcome-arrival mutations, so no two outcomes race
// on the count or on the first-failure slot regardless of how workers
// interleave.
//
// Fail-fast deliberately does not cancel jobs already dispatched: the remote
// cluster has accepted those triggers, and the source behavior this follows
// leaves in-flight continuous setups in place rather than rolling them back.
// Outcomes arriving after the abort are still counted, just no longer
// reported.
//
// ============================================================================

package batch

import (
	"sync"

	"github.com/ChuLiYu/couch-replicate/pkg/types"
)

// Tracker observes job outcomes, maintains the running completion count and
// records the first failure for the whole batch.
type Tracker struct {
	mu           sync.Mutex
	total        int
	completed    int
	firstFailure *types.Outcome
	aborted      bool
	abortCh      chan struct{}
}

// NewTracker creates a tracker for a batch of total jobs.
func NewTracker(total int) *Tracker {
	return &Tracker{
		total:   total,
		abortCh: make(chan struct{}),
	}
}

// Record consumes one job outcome. It returns the updated completion count
// and whether this outcome is the batch's first failure. The count never
// exceeds the batch total.
func (t *Tracker) Record(outcome types.Outcome) (completed int, firstFailure bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.completed < t.total {
		t.completed++
	}

	if outcome.Failed() && t.firstFailure == nil {
		o := outcome
		t.firstFailure = &o
		t.aborted = true
		close(t.abortCh)
		return t.completed, true
	}

	return t.completed, false
}

// Progress returns the current (completed, total) snapshot.
func (t *Tracker) Progress() (completed, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed, t.total
}

// Done reports whether every job in the batch has produced an outcome.
func (t *Tracker) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed == t.total
}

// Aborted returns a channel that is closed when the first failure is
// recorded.
func (t *Tracker) Aborted() <-chan struct{} {
	return t.abortCh
}

// IsAborted reports whether a failure has been recorded.
func (t *Tracker) IsAborted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.aborted
}

// FirstFailure returns a copy of the first failing outcome, or nil.
func (t *Tracker) FirstFailure() *types.Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.firstFailure == nil {
		return nil
	}
	o := *t.firstFailure
	return &o
}

// Result builds the batch's final result from the recorded state.
func (t *Tracker) Result() types.BatchResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	res := types.BatchResult{
		Total:     t.total,
		Completed: t.completed,
	}
	if t.firstFailure != nil {
		o := *t.firstFailure
		res.Failure = &o
	}
	return res
}
