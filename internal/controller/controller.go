// ============================================================================
// Controller - Batch Replication Orchestrator
// ============================================================================
//
// Package: internal/controller
// File: controller.go
// Purpose: Wires the worker pool, batch tracker, progress reporter and
//          replication runner into one batch run
//
// Flow:
//   1. Build one descriptor per database name
//   2. Start the worker pool at the configured concurrency
//   3. Dispatch goroutine submits descriptors until done or aborted
//   4. Result loop drains outcomes through the tracker, driving the
//      progress reporter at a bounded rate (final snapshot always emitted)
//   5. Return Success(total) on completion, or the first failure
//      immediately on abort
//
// Fail-fast:
//   The first failing outcome closes the tracker's abort channel. The
//   dispatcher stops submitting, the result loop stops waiting, and Run
//   returns with the recorded failure. Jobs already dispatched are allowed
//   to finish naturally in the background; their outcomes are still
//   recorded (counts and metrics stay truthful) but no longer reported.
//
// The waits here are event-driven - a blocking receive on the outcome
// stream - with the reporter rate-limited separately, so progress updates
// stay at roughly one per interval without any sleep polling.
//
// ============================================================================

package controller

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ChuLiYu/couch-replicate/internal/batch"
	"github.com/ChuLiYu/couch-replicate/internal/metrics"
	"github.com/ChuLiYu/couch-replicate/internal/progress"
	"github.com/ChuLiYu/couch-replicate/internal/worker"
	"github.com/ChuLiYu/couch-replicate/pkg/types"
)

var log = slog.Default()

// DefaultConcurrency is the worker count used when the config does not set
// one.
const DefaultConcurrency = 5

// DefaultProgressInterval bounds how often progress snapshots are reported.
const DefaultProgressInterval = 1 * time.Second

// Config holds everything one batch run needs.
type Config struct {
	Source             string        // source cluster base URL
	Target             string        // target cluster base URL
	Concurrency        int           // maximum simultaneous replications
	Continuous         bool          // add continuous replication after the initial copy
	UseTargetAsTrigger bool          // use the target's _replicate API
	ProgressInterval   time.Duration // minimum time between progress reports
}

// Controller orchestrates one batch of replication jobs.
type Controller struct {
	config    Config
	runner    worker.JobRunner
	reporter  progress.Reporter
	collector *metrics.Collector // optional, may be nil
}

// New creates a controller. Zero-value concurrency and progress interval
// fall back to the defaults; a nil reporter falls back to the no-op one.
func New(config Config, runner worker.JobRunner, reporter progress.Reporter, collector *metrics.Collector) *Controller {
	if config.Concurrency < 1 {
		config.Concurrency = DefaultConcurrency
	}
	if config.ProgressInterval <= 0 {
		config.ProgressInterval = DefaultProgressInterval
	}
	if reporter == nil {
		reporter = progress.NullReporter{}
	}
	return &Controller{
		config:    config,
		runner:    runner,
		reporter:  reporter,
		collector: collector,
	}
}

// Run replicates the given databases (already filtered and URL-encoded) and
// returns the batch result. It blocks until every job has produced an
// outcome or the first failure aborts the wait.
func (c *Controller) Run(databases []string) types.BatchResult {
	descriptors := c.buildDescriptors(databases)
	total := len(descriptors)
	tracker := batch.NewTracker(total)

	if c.collector != nil {
		c.collector.SetBatchTotal(total)
	}

	if total == 0 {
		c.reporter.Report(0, 0)
		c.reporter.Finish()
		return tracker.Result()
	}

	// Buffers sized to the batch: submission never blocks the dispatcher
	// and outcome delivery never blocks a worker, so an abort cannot wedge
	// either side.
	pool := worker.NewPool(total)
	if err := pool.Start(c.config.Concurrency, c.runner); err != nil {
		failure := types.FailedError("", "", err)
		return types.BatchResult{Total: total, Failure: &failure}
	}

	log.Info("Batch started",
		"databases", total,
		"concurrency", c.config.Concurrency,
		"continuous", c.config.Continuous)

	var dispatchWg sync.WaitGroup
	dispatchWg.Add(1)
	go func() {
		defer dispatchWg.Done()
		for _, desc := range descriptors {
			select {
			case <-tracker.Aborted():
				// Fail-fast: no new jobs once a failure is recorded.
				return
			default:
			}
			if c.collector != nil {
				c.collector.RecordDispatch()
			}
			if err := pool.Submit(worker.Task{Descriptor: desc}); err != nil {
				return
			}
		}
	}()

	c.reporter.Report(0, total)
	lastReport := time.Now()

	aborted := false
	for {
		result, err := pool.ReceiveResult()
		if err != nil {
			break
		}

		completed, firstFailure := tracker.Record(result.Outcome)
		if c.collector != nil {
			c.collector.RecordOutcome(result.Outcome.Failed(), result.Duration.Seconds())
		}

		if result.Outcome.Failed() {
			log.Error("Replication job failed",
				"database", result.Outcome.Database,
				"phase", result.Outcome.Phase,
				"reason", result.Outcome.Message())
		} else {
			log.Debug("Replication job completed",
				"database", result.Outcome.Database,
				"duration", result.Duration,
				"worker", result.WorkerID)
		}

		if firstFailure {
			aborted = true
			break
		}

		if completed == total {
			c.reporter.Report(completed, total)
			c.reporter.Finish()
			break
		}

		if time.Since(lastReport) >= c.config.ProgressInterval {
			c.reporter.Report(completed, total)
			lastReport = time.Now()
		}
	}

	// Snapshot the result before the background drain records any
	// still-outstanding outcomes.
	result := tracker.Result()

	if aborted {
		go c.drain(pool, tracker, &dispatchWg)
	} else {
		dispatchWg.Wait()
		pool.Stop()
	}

	log.Info("Batch finished",
		"completed", result.Completed,
		"total", result.Total,
		"success", result.Succeeded())

	return result
}

// drain lets already-dispatched jobs run to their natural completion after
// an abort, recording their outcomes without reporting them.
func (c *Controller) drain(pool *worker.Pool, tracker *batch.Tracker, dispatchWg *sync.WaitGroup) {
	dispatchWg.Wait()
	pool.Stop()
	for {
		result, err := pool.ReceiveResult()
		if err != nil {
			return
		}
		tracker.Record(result.Outcome)
		if c.collector != nil {
			c.collector.RecordOutcome(result.Outcome.Failed(), result.Duration.Seconds())
		}
	}
}

// buildDescriptors creates one immutable job descriptor per database name.
func (c *Controller) buildDescriptors(databases []string) []types.Descriptor {
	descriptors := make([]types.Descriptor, 0, len(databases))
	for _, db := range databases {
		descriptors = append(descriptors, types.Descriptor{
			Source:             c.config.Source,
			Target:             c.config.Target,
			Database:           db,
			Continuous:         c.config.Continuous,
			UseTargetAsTrigger: c.config.UseTargetAsTrigger,
		})
	}
	return descriptors
}
