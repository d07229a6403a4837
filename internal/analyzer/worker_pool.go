package analyzer

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool runs batches of jobs on a fixed set of goroutines shared by
// every caller.
type WorkerPool struct {
	workers  int
	jobQueue chan func()
	once     sync.Once
	stop     sync.Once

	totalJobs     atomic.Int64
	completedJobs atomic.Int64
	activeWorkers atomic.Int64
}

// PoolStats is a point-in-time view of pool activity.
type PoolStats struct {
	TotalJobs     int64
	CompletedJobs int64
	ActiveWorkers int64
}

// NewWorkerPool creates a new worker pool with the specified number of workers
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &WorkerPool{
		workers:  workers,
		jobQueue: make(chan func(), workers*2),
	}
}

// Start initializes and starts all workers in the pool
func (wp *WorkerPool) Start() {
	wp.once.Do(func() {
		for i := 0; i < wp.workers; i++ {
			go wp.worker()
		}
	})
}

func (wp *WorkerPool) worker() {
	for job := range wp.jobQueue {
		wp.activeWorkers.Add(1)
		job()
		wp.activeWorkers.Add(-1)
		wp.completedJobs.Add(1)
	}
}

// Workers returns the number of goroutines in the pool.
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// Run submits jobs and blocks until every one of them has returned. Jobs
// must not call Run on the same pool. A panicking job is recovered and Run
// reports the first panic as an error.
func (wp *WorkerPool) Run(jobs ...func()) error {
	wp.Start()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		panicErr error
	)
	wg.Add(len(jobs))
	for _, job := range jobs {
		job := job
		wp.totalJobs.Add(1)
		wp.jobQueue <- func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					once.Do(func() {
						panicErr = fmt.Errorf("worker job panicked: %v", r)
					})
				}
			}()
			job()
		}
	}
	wg.Wait()
	return panicErr
}

// GetStats returns the current counters.
func (wp *WorkerPool) GetStats() PoolStats {
	return PoolStats{
		TotalJobs:     wp.totalJobs.Load(),
		CompletedJobs: wp.completedJobs.Load(),
		ActiveWorkers: wp.activeWorkers.Load(),
	}
}

// Close stops the workers. Run must not be called afterwards.
func (wp *WorkerPool) Close() {
	wp.stop.Do(func() {
		close(wp.jobQueue)
	})
}
