// ============================================================================
// Replication Job Runner
// ============================================================================
//
// Package: internal/worker
// File: runner.go
// Purpose: Runs the two-phase replicate-then-optionally-continuous sequence
//          for one database against the control-plane collaborator
//
// Algorithm:
//   1. Issue the one-shot trigger (create_target=true, continuous=false)
//      against the endpoint selected by UseTargetAsTrigger.
//   2. ok=false -> FailedRemote for the initial phase; the continuous phase
//      is never attempted.
//   3. Continuous not requested -> Succeeded.
//   4. Otherwise issue the continuous trigger against the same endpoint;
//      ok=false -> FailedRemote for the continuous phase, else Succeeded.
//
// Any transport or protocol error from the collaborator surfaces as
// FailedError with the underlying cause. There are no retries.
//
// ============================================================================

package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ChuLiYu/couch-replicate/pkg/types"
)

// Trigger is the remote control-plane call contract. Implementations issue a
// single replication trigger and report whether the cluster accepted it.
type Trigger interface {
	Trigger(ctx context.Context, endpoint, source, target string, continuous bool) (bool, error)
}

// Runner executes replication jobs against a Trigger collaborator. It is
// safe for use by multiple workers at once.
type Runner struct {
	remote Trigger
	log    *slog.Logger
}

// NewRunner wires a runner to the control-plane collaborator. A nil logger
// falls back to slog.Default().
func NewRunner(remote Trigger, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{remote: remote, log: logger}
}

// Run performs the two-phase sequence for one descriptor and returns its
// terminal outcome.
func (r *Runner) Run(ctx context.Context, desc types.Descriptor) types.Outcome {
	endpoint := desc.Source
	if desc.UseTargetAsTrigger {
		endpoint = desc.Target
	}
	source := fmt.Sprintf("%s/%s", desc.Source, desc.Database)
	target := fmt.Sprintf("%s/%s", desc.Target, desc.Database)

	r.log.Info("Starting replication of database", "database", desc.Database)

	ok, err := r.remote.Trigger(ctx, endpoint, source, target, false)
	if err != nil {
		return types.FailedError(desc.Database, types.PhaseInitial, err)
	}
	if !ok {
		return types.FailedRemote(desc.Database, types.PhaseInitial,
			fmt.Sprintf("initial replication failed for %s", desc.Database))
	}

	r.log.Info("Replication of database successful", "database", desc.Database)

	if !desc.Continuous {
		return types.Succeeded(desc.Database)
	}

	r.log.Info("Setting up continuous replication of database", "database", desc.Database)

	ok, err = r.remote.Trigger(ctx, endpoint, source, target, true)
	if err != nil {
		return types.FailedError(desc.Database, types.PhaseContinuous, err)
	}
	if !ok {
		return types.FailedRemote(desc.Database, types.PhaseContinuous,
			fmt.Sprintf("continuous replication setup failed for %s", desc.Database))
	}

	r.log.Info("Continuous replication of database successfully setup", "database", desc.Database)

	return types.Succeeded(desc.Database)
}
