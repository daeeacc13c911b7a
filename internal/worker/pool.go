// Package worker provides the bounded background dispatcher used for batch
// evaluation runs.
package worker

import (
	"sync"

	"github.com/rs/zerolog"
)

// Pool runs jobs on background goroutines with bounded concurrency. Jobs for
// different batches may run concurrently; a single job runs to completion
// without cancellation.
type Pool struct {
	sem    chan struct{}
	wg     sync.WaitGroup
	logger zerolog.Logger
}

// NewPool creates a pool allowing at most size concurrent jobs.
func NewPool(size int, logger zerolog.Logger) *Pool {
	if size <= 0 {
		size = 4
	}

	return &Pool{
		sem:    make(chan struct{}, size),
		logger: logger.With().Str("component", "worker_pool").Logger(),
	}
}

// Go schedules the job and returns immediately. The job waits for a free
// slot before running, so callers are never blocked by a saturated pool.
func (p *Pool) Go(job func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.sem <- struct{}{}
		defer func() { <-p.sem }()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error().Interface("panic", r).Msg("background job panicked")
			}
		}()
		job()
	}()
}

// Wait blocks until every scheduled job has finished. Used on shutdown so an
// in-flight batch is not abandoned mid-run.
func (p *Pool) Wait() {
	p.wg.Wait()
}
