package batch

// ============================================================================
// Batch Tracker Test File
// Purpose: Verify completion counting, first-failure selection and the
//          abort signal under serial and concurrent recording
// ============================================================================

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChuLiYu/couch-replicate/pkg/types"
)

func failedOutcome(db string) types.Outcome {
	return types.FailedRemote(db, types.PhaseInitial,
		fmt.Sprintf("initial replication failed for %s", db))
}

// ============================================================================
// Counting Tests
// ============================================================================

// TestTrackerCounting tests the completion count against successive outcomes
func TestTrackerCounting(t *testing.T) {
	tracker := NewTracker(3)

	completed, total := tracker.Progress()
	assert.Equal(t, 0, completed)
	assert.Equal(t, 3, total)
	assert.False(t, tracker.Done())

	completed, firstFailure := tracker.Record(types.Succeeded("a"))
	assert.Equal(t, 1, completed)
	assert.False(t, firstFailure)

	completed, _ = tracker.Record(types.Succeeded("b"))
	assert.Equal(t, 2, completed)
	assert.False(t, tracker.Done())

	completed, _ = tracker.Record(types.Succeeded("c"))
	assert.Equal(t, 3, completed)
	assert.True(t, tracker.Done())
}

// TestTrackerCountCappedAtTotal tests that extra outcomes never push the
// count past the batch size
func TestTrackerCountCappedAtTotal(t *testing.T) {
	tracker := NewTracker(2)

	tracker.Record(types.Succeeded("a"))
	tracker.Record(types.Succeeded("b"))
	completed, _ := tracker.Record(types.Succeeded("stray"))

	assert.Equal(t, 2, completed)
}

// TestTrackerEmptyBatch tests a zero-job batch
func TestTrackerEmptyBatch(t *testing.T) {
	tracker := NewTracker(0)

	assert.True(t, tracker.Done())
	assert.False(t, tracker.IsAborted())

	result := tracker.Result()
	assert.Equal(t, 0, result.Total)
	assert.True(t, result.Succeeded())
}

// ============================================================================
// Failure Tests
// ============================================================================

// TestTrackerFirstFailureWins tests that only the first failing outcome is
// kept
func TestTrackerFirstFailureWins(t *testing.T) {
	tracker := NewTracker(4)

	tracker.Record(types.Succeeded("a"))

	_, firstFailure := tracker.Record(failedOutcome("b"))
	assert.True(t, firstFailure)

	_, firstFailure = tracker.Record(failedOutcome("c"))
	assert.False(t, firstFailure, "second failure must not be reported as first")

	failure := tracker.FirstFailure()
	require.NotNil(t, failure)
	assert.Equal(t, "b", failure.Database)
}

// TestTrackerAbortSignal tests that the abort channel closes on first failure
func TestTrackerAbortSignal(t *testing.T) {
	tracker := NewTracker(3)

	select {
	case <-tracker.Aborted():
		t.Fatal("abort channel closed before any failure")
	default:
	}

	tracker.Record(failedOutcome("a"))

	select {
	case <-tracker.Aborted():
	default:
		t.Fatal("abort channel not closed after failure")
	}
	assert.True(t, tracker.IsAborted())

	// A later failure must not close the channel again (it would panic).
	assert.NotPanics(t, func() {
		tracker.Record(failedOutcome("b"))
	})
}

// TestTrackerFailuresStillCounted tests that post-abort outcomes advance
// the count
func TestTrackerFailuresStillCounted(t *testing.T) {
	tracker := NewTracker(3)

	tracker.Record(failedOutcome("a"))
	tracker.Record(types.Succeeded("b"))
	completed, _ := tracker.Record(types.Succeeded("c"))

	assert.Equal(t, 3, completed)
	assert.True(t, tracker.Done())
}

// TestTrackerResult tests the final result snapshot
func TestTrackerResult(t *testing.T) {
	tracker := NewTracker(2)
	tracker.Record(types.Succeeded("a"))
	tracker.Record(failedOutcome("b"))

	result := tracker.Result()
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Completed)
	assert.False(t, result.Succeeded())
	require.NotNil(t, result.Failure)
	assert.Equal(t, "b", result.Failure.Database)

	// The snapshot is a copy; mutating it does not touch the tracker.
	result.Failure.Database = "mutated"
	assert.Equal(t, "b", tracker.FirstFailure().Database)
}

// ============================================================================
// Concurrency Tests
// ============================================================================

// TestTrackerConcurrentRecord tests recording outcomes from many goroutines
func TestTrackerConcurrentRecord(t *testing.T) {
	total := 100
	tracker := NewTracker(total)

	var wg sync.WaitGroup
	wg.Add(total)
	for i := 0; i < total; i++ {
		go func(index int) {
			defer wg.Done()
			if index%10 == 0 {
				tracker.Record(failedOutcome(fmt.Sprintf("db-%d", index)))
			} else {
				tracker.Record(types.Succeeded(fmt.Sprintf("db-%d", index)))
			}
		}(i)
	}
	wg.Wait()

	completed, _ := tracker.Progress()
	assert.Equal(t, total, completed)
	assert.True(t, tracker.Done())
	assert.True(t, tracker.IsAborted())
	require.NotNil(t, tracker.FirstFailure())
	assert.True(t, tracker.FirstFailure().Failed())
}
