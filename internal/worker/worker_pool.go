// ============================================================================
// Worker Pool - Bounded-Concurrency Job Executor
// ============================================================================
//
// Package: internal/worker
// File: worker_pool.go
// Purpose: Runs replication jobs with at most N in flight at once
//
// Design:
//   Worker Pool pattern:
//   1. A fixed number of worker goroutines run for the life of the batch
//   2. Jobs are distributed over a shared task channel
//   3. Outcomes are collected over a shared result channel
//   4. Each worker runs one job to completion before taking the next, so
//      the number of in-flight jobs never exceeds the worker count
//
// Lifecycle:
//   1. NewPool() - create the pool and its channels
//   2. Start(n, runner) - launch n workers (n < 1 is clamped to 1)
//   3. Submit(desc) - hand a job to the pool
//   4. ReceiveResult() - read outcomes as jobs finish, in completion order
//   5. Stop() - close the task channel, wait for workers to drain
//
// Shutdown:
//   Stop() closes stopCh first so a Submit racing with shutdown returns
//   ErrPoolClosed instead of sending on a closed channel. Submission after
//   Stop is therefore a safe no-op from the caller's point of view, which
//   is what fail-fast early termination relies on.
//
// ============================================================================

package worker

import (
	"errors"
	"sync"
)

var (
	// ErrPoolClosed means the pool has stopped accepting work.
	ErrPoolClosed = errors.New("worker pool is closed")
	// ErrPoolNotStarted means Submit was called before Start.
	ErrPoolNotStarted = errors.New("worker pool not started")
)

// Pool manages a fixed set of concurrent workers.
type Pool struct {
	workers  []*Worker
	taskCh   chan Task
	resultCh chan Result
	stopCh   chan struct{}
	wg       sync.WaitGroup
	started  bool
	stopped  bool
	mu       sync.Mutex
}

// NewPool creates a pool whose task and result channels hold bufferSize
// entries. The orchestrator sizes the buffers to the batch total so that
// neither submission nor outcome delivery ever blocks a worker.
func NewPool(bufferSize int) *Pool {
	return &Pool{
		workers:  make([]*Worker, 0),
		taskCh:   make(chan Task, bufferSize),
		resultCh: make(chan Result, bufferSize),
		stopCh:   make(chan struct{}),
	}
}

// Start launches workerCount workers, each executing jobs through runner.
// Values below 1 are clamped to 1. Returns an error if already started.
func (p *Pool) Start(workerCount int, runner JobRunner) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return errors.New("pool already started")
	}
	if workerCount < 1 {
		workerCount = 1
	}

	for i := 0; i < workerCount; i++ {
		w := newWorker(i, runner, p.taskCh, p.resultCh, p.stopCh)
		p.workers = append(p.workers, w)

		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run()
		}(w)
	}

	p.started = true
	return nil
}

// Submit hands a job to the pool. Returns ErrPoolNotStarted before Start and
// ErrPoolClosed after Stop.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return ErrPoolNotStarted
	}
	if p.stopped {
		p.mu.Unlock()
		return ErrPoolClosed
	}

	taskCh := p.taskCh
	stopCh := p.stopCh
	p.mu.Unlock()

	// stopCh is closed before taskCh during Stop, so this select cannot
	// send on a closed channel.
	select {
	case taskCh <- task:
		return nil
	case <-stopCh:
		return ErrPoolClosed
	}
}

// ReceiveResult blocks until the next job outcome arrives. Returns
// ErrPoolClosed once the pool has stopped and the result channel is drained.
func (p *Pool) ReceiveResult() (Result, error) {
	result, ok := <-p.resultCh
	if !ok {
		return Result{}, ErrPoolClosed
	}
	return result, nil
}

// Stop shuts the pool down: no new submissions are accepted, workers finish
// the job they are on and exit, then the result channel is closed.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	close(p.stopCh)
	close(p.taskCh)

	p.wg.Wait()

	close(p.resultCh)
}

// WorkerCount returns the number of workers the pool started.
func (p *Pool) WorkerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// IsStarted reports whether Start has been called.
func (p *Pool) IsStarted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}
