package types

// ============================================================================
// Domain Types Test File
// Purpose: Verify outcome constructors, failure classification and messages
// ============================================================================

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestOutcomeConstructors tests the three outcome shapes
func TestOutcomeConstructors(t *testing.T) {
	ok := Succeeded("accounts")
	assert.Equal(t, OutcomeSucceeded, ok.Kind)
	assert.Equal(t, "accounts", ok.Database)
	assert.False(t, ok.Failed())

	remote := FailedRemote("accounts", PhaseInitial, "initial replication failed for accounts")
	assert.Equal(t, OutcomeFailedRemote, remote.Kind)
	assert.Equal(t, PhaseInitial, remote.Phase)
	assert.True(t, remote.Failed())

	cause := errors.New("boom")
	failed := FailedError("accounts", PhaseContinuous, cause)
	assert.Equal(t, OutcomeFailedError, failed.Kind)
	assert.Equal(t, PhaseContinuous, failed.Phase)
	assert.ErrorIs(t, failed.Err, cause)
	assert.True(t, failed.Failed())
}

// TestOutcomeMessage tests the human-readable descriptions
func TestOutcomeMessage(t *testing.T) {
	assert.Equal(t, "database accounts replicated",
		Succeeded("accounts").Message())

	assert.Equal(t, "initial replication failed for accounts",
		FailedRemote("accounts", PhaseInitial, "initial replication failed for accounts").Message())

	msg := FailedError("accounts", PhaseContinuous, errors.New("connection refused")).Message()
	assert.Contains(t, msg, "continuous")
	assert.Contains(t, msg, "accounts")
	assert.Contains(t, msg, "connection refused")
}

// TestBatchResultSucceeded tests success classification
func TestBatchResultSucceeded(t *testing.T) {
	assert.True(t, BatchResult{Total: 3, Completed: 3}.Succeeded())

	failure := FailedRemote("a", PhaseInitial, "initial replication failed for a")
	assert.False(t, BatchResult{Total: 3, Completed: 1, Failure: &failure}.Succeeded())
}
