// Package workers provides a bounded goroutine pool for running batches of
// independent jobs in parallel.
package workers

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrPoolClosed is returned for every job submitted after Close.
var ErrPoolClosed = errors.New("workers: pool is closed")

// Job is a unit of work in a batch. Jobs must be independent of each other;
// each job produces its own output and returns an error for its slot.
type Job func() error

// Pool runs batches of jobs across a fixed number of worker goroutines.
type Pool struct {
	numWorkers int
	closed     atomic.Bool
}

// NewPool creates a worker pool. Sizes at or below zero default to the
// number of logical CPUs.
func NewPool(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Pool{numWorkers: numWorkers}
}

// Size returns the configured worker count.
func (p *Pool) Size() int {
	return p.numWorkers
}

// Close marks the pool closed. Batches already running are unaffected;
// every later Run call fails each job with ErrPoolClosed.
func (p *Pool) Close() {
	p.closed.Store(true)
}

// Run executes all jobs and returns their errors in input order. It blocks
// until every job has finished.
func (p *Pool) Run(jobs []Job) []error {
	numJobs := len(jobs)
	if p.closed.Load() {
		errs := make([]error, numJobs)
		for i := range errs {
			errs[i] = ErrPoolClosed
		}
		return errs
	}
	if numJobs == 0 {
		return []error{}
	}

	work := make(chan jobItem, numJobs)
	results := make(chan resultItem, numJobs)

	// Don't spawn more workers than jobs
	var wg sync.WaitGroup
	numActualWorkers := p.numWorkers
	if numJobs < numActualWorkers {
		numActualWorkers = numJobs
	}

	for i := 0; i < numActualWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(work, results)
		}()
	}

	for idx, job := range jobs {
		work <- jobItem{index: idx, job: job}
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	errs := make([]error, numJobs)
	for result := range results {
		errs[result.index] = result.err
	}
	return errs
}

// jobItem carries one job and its batch position to a worker
type jobItem struct {
	index int
	job   Job
}

// resultItem carries a job's error back with its batch position
type resultItem struct {
	index int
	err   error
}

func worker(jobs <-chan jobItem, results chan<- resultItem) {
	for item := range jobs {
		results <- resultItem{index: item.index, err: item.job()}
	}
}
