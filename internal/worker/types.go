package worker

import (
	"context"
	"time"

	"github.com/ChuLiYu/couch-replicate/pkg/types"
)

// JobRunner executes a single replication job to completion and yields its
// terminal outcome. The pool never retries a job and never calls Run twice
// for the same descriptor.
type JobRunner interface {
	Run(ctx context.Context, desc types.Descriptor) types.Outcome
}

// Task is one unit of work submitted to the pool.
type Task struct {
	Descriptor types.Descriptor
}

// Result carries a job's terminal outcome back to the orchestrator.
type Result struct {
	Outcome  types.Outcome // terminal outcome of the job
	Duration time.Duration // wall time the job spent executing
	WorkerID int           // worker that ran the job, for logging
}
