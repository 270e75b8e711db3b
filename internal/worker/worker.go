// ============================================================================
// Worker - Job Execution Unit
// ============================================================================
//
// Package: internal/worker
// File: worker.go
// Purpose: Executes replication jobs one at a time, each worker in its own
//          goroutine
//
// How it works:
//   Each worker loops over the shared task channel:
//   1. Receive a descriptor from taskCh (blocking wait)
//   2. Run the job through the JobRunner collaborator
//   3. Send the outcome to resultCh
//   4. Repeat until taskCh is closed
//
// Cancellation:
//   Jobs run under context.Background() on purpose: once a replication
//   trigger has been sent, the remote cluster has already accepted it, so
//   an abort does not interrupt in-flight calls. The collaborator's own
//   request timeout bounds how long a call can block.
//
// ============================================================================

package worker

import (
	"context"
	"time"
)

// Worker executes jobs pulled from the shared task channel.
type Worker struct {
	id       int
	runner   JobRunner
	taskCh   <-chan Task
	resultCh chan<- Result
	stopCh   <-chan struct{}
}

func newWorker(id int, runner JobRunner, taskCh <-chan Task, resultCh chan<- Result, stopCh <-chan struct{}) *Worker {
	return &Worker{
		id:       id,
		runner:   runner,
		taskCh:   taskCh,
		resultCh: resultCh,
		stopCh:   stopCh,
	}
}

// Run is the worker's main loop. It produces exactly one Result per task it
// receives and exits when the task channel is closed.
func (w *Worker) Run() {
	for task := range w.taskCh {
		start := time.Now()

		outcome := w.runner.Run(context.Background(), task.Descriptor)

		result := Result{
			Outcome:  outcome,
			Duration: time.Since(start),
			WorkerID: w.id,
		}

		// The result buffer is sized to the batch, so the first send always
		// has room and every outcome is delivered even mid-shutdown. The
		// guarded fallback keeps an undersized pool from wedging a worker
		// if the orchestrator has already gone away.
		select {
		case w.resultCh <- result:
		default:
			select {
			case w.resultCh <- result:
			case <-w.stopCh:
				return
			}
		}
	}
}
