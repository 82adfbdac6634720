// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package parallel runs independent jobs on a fixed number of goroutines.
package parallel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pdf-toolbox/internal/observability"
	"pdf-toolbox/internal/resilience"
)

// WorkerFunc processes one input. workerID is in [0, workers) and stays the
// same for every job a worker runs, so callers can keep per-worker state.
type WorkerFunc[T, R any] func(ctx context.Context, workerID int, input T) (R, error)

// Job is one queued input
type Job[T any] struct {
	ID    int
	Input T
}

// Result is the outcome of one job
type Result[R any] struct {
	JobID    int
	Output   R
	Err      error
	Duration time.Duration
}

// WorkerPool manages parallel processing of jobs
type WorkerPool[T, R any] struct {
	workers   int
	component string
	fn        WorkerFunc[T, R]
	jobs      chan Job[T]
	results   chan Result[R]
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	observer  *observability.StandardObserver
	closeOnce sync.Once
}

// NewWorkerPool creates a pool of workers running fn. component names the
// pool in timing records.
func NewWorkerPool[T, R any](ctx context.Context, component string, workers int, fn WorkerFunc[T, R], observer *observability.StandardObserver) *WorkerPool[T, R] {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &WorkerPool[T, R]{
		workers:   workers,
		component: component,
		fn:        fn,
		jobs:      make(chan Job[T], workers*2),
		results:   make(chan Result[R], workers*2),
		ctx:       ctx,
		cancel:    cancel,
		observer:  observer,
	}
}

// Start initializes worker goroutines
func (wp *WorkerPool[T, R]) Start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Submit queues a job. It reports false once the pool is stopped.
func (wp *WorkerPool[T, R]) Submit(job Job[T]) bool {
	select {
	case wp.jobs <- job:
		return true
	case <-wp.ctx.Done():
		return false
	}
}

// CloseJobs signals that no more jobs will be submitted
func (wp *WorkerPool[T, R]) CloseJobs() {
	wp.closeOnce.Do(func() { close(wp.jobs) })
}

// Results returns the results channel
func (wp *WorkerPool[T, R]) Results() <-chan Result[R] {
	return wp.results
}

// Done is closed when the pool is stopped or its parent context ends
func (wp *WorkerPool[T, R]) Done() <-chan struct{} {
	return wp.ctx.Done()
}

// Stop cancels outstanding work and waits for the workers to exit
func (wp *WorkerPool[T, R]) Stop() {
	wp.cancel()
	wp.wg.Wait()
	close(wp.results)
}

// worker processes jobs from the queue
func (wp *WorkerPool[T, R]) worker(id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-wp.ctx.Done():
			return
		case job, ok := <-wp.jobs:
			if !ok {
				return
			}
			result := wp.processJob(job, id)
			select {
			case wp.results <- result:
			case <-wp.ctx.Done():
				return
			}
		}
	}
}

// processJob runs one job, turning a panic into a permanent error
func (wp *WorkerPool[T, R]) processJob(job Job[T], workerID int) (result Result[R]) {
	start := time.Now()
	result.JobID = job.ID

	var finishTiming func(bool, map[string]interface{})
	if wp.observer != nil {
		finishTiming = wp.observer.StartTiming(wp.component, "process_job", fmt.Sprintf("job_%d", job.ID))
	}

	defer func() {
		if r := recover(); r != nil {
			result.Err = resilience.NewPermanentError(fmt.Sprintf("job %d panicked: %v", job.ID, r), nil)
		}
		result.Duration = time.Since(start)
		if finishTiming != nil {
			finishTiming(result.Err == nil, map[string]interface{}{
				"worker_id":   workerID,
				"duration_ms": result.Duration.Milliseconds(),
			})
		}
	}()

	result.Output, result.Err = wp.fn(wp.ctx, workerID, job.Input)
	return result
}

// Process runs fn over inputs on up to workers goroutines and returns the
// outputs in input order. The first error stops the remaining jobs.
func Process[T, R any](ctx context.Context, component string, workers int, inputs []T, fn WorkerFunc[T, R], observer *observability.StandardObserver) ([]R, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}

	wp := NewWorkerPool(ctx, component, workers, fn, observer)
	wp.Start()
	defer wp.Stop()

	go func() {
		defer wp.CloseJobs()
		for i, in := range inputs {
			if !wp.Submit(Job[T]{ID: i, Input: in}) {
				return
			}
		}
	}()

	out := make([]R, len(inputs))
	for range inputs {
		select {
		case res := <-wp.Results():
			if res.Err != nil {
				return nil, res.Err
			}
			out[res.JobID] = res.Output
		case <-wp.Done():
			return nil, ctx.Err()
		}
	}
	return out, nil
}
