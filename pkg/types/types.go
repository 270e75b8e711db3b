// Package types defines the core domain model shared by the replication
// orchestrator packages.
package types

import "fmt"

// Phase identifies which replication trigger a job was executing when an
// outcome was produced.
type Phase string

const (
	// PhaseInitial is the one-shot replicate-with-create_target trigger.
	PhaseInitial Phase = "initial"
	// PhaseContinuous is the follow-up continuous replication trigger.
	PhaseContinuous Phase = "continuous"
)

// Descriptor describes one replication job. It is built once per eligible
// database before dispatch and never mutated.
type Descriptor struct {
	// Source is the base URL of the cluster being replicated from.
	Source string
	// Target is the base URL of the cluster being replicated to.
	Target string
	// Database is the URL-encoded database name.
	Database string
	// Continuous requests a second, open-ended replication after the
	// initial one-shot copy succeeds.
	Continuous bool
	// UseTargetAsTrigger selects the target's _replicate API instead of
	// the source's.
	UseTargetAsTrigger bool
}

// OutcomeKind tags the terminal result of a replication job.
type OutcomeKind int

const (
	// OutcomeSucceeded means every requested phase completed with ok=true.
	OutcomeSucceeded OutcomeKind = iota
	// OutcomeFailedRemote means the control plane explicitly reported
	// ok=false for one of the phases.
	OutcomeFailedRemote
	// OutcomeFailedError means a transport or protocol error occurred
	// while calling the control plane.
	OutcomeFailedError
)

// Outcome is the tagged result of a single replication job. Exactly one
// Outcome is produced per submitted job, by exactly one worker.
type Outcome struct {
	Kind     OutcomeKind
	Database string
	Phase    Phase
	Reason   string // set for OutcomeFailedRemote
	Err      error  // set for OutcomeFailedError
}

// Succeeded builds a successful outcome for a database.
func Succeeded(database string) Outcome {
	return Outcome{Kind: OutcomeSucceeded, Database: database}
}

// FailedRemote builds an outcome for a trigger the control plane rejected.
func FailedRemote(database string, phase Phase, reason string) Outcome {
	return Outcome{Kind: OutcomeFailedRemote, Database: database, Phase: phase, Reason: reason}
}

// FailedError builds an outcome for a transport or protocol failure.
func FailedError(database string, phase Phase, err error) Outcome {
	return Outcome{Kind: OutcomeFailedError, Database: database, Phase: phase, Err: err}
}

// Failed reports whether the outcome is a failure of either kind.
func (o Outcome) Failed() bool {
	return o.Kind != OutcomeSucceeded
}

// Message returns a human-readable description of the outcome with enough
// context (database, phase, cause) to diagnose a failure.
func (o Outcome) Message() string {
	switch o.Kind {
	case OutcomeFailedRemote:
		return o.Reason
	case OutcomeFailedError:
		return fmt.Sprintf("%s replication of database %s: %v", o.Phase, o.Database, o.Err)
	default:
		return fmt.Sprintf("database %s replicated", o.Database)
	}
}

// BatchResult is the final result of one batch run, surfaced to the process
// boundary by the orchestrator.
type BatchResult struct {
	// Total is the number of jobs submitted in the batch.
	Total int
	// Completed is the number of outcomes observed before the orchestrator
	// returned. Equals Total unless the batch aborted early.
	Completed int
	// Failure is the first failing outcome, or nil if the batch succeeded.
	Failure *Outcome
}

// Succeeded reports whether the batch completed without any failure.
func (r BatchResult) Succeeded() bool {
	return r.Failure == nil
}
