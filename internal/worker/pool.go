// Package worker runs alignment jobs concurrently.
package worker

import (
	"context"
	"sync"
)

// Job is a unit of work executed by the pool.
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of one job.
type Result interface {
	GetError() error
}

// Pool executes jobs on a fixed number of workers. Results land in a
// collector as they arrive, so workers never stall on a full channel
// no matter how many jobs are queued.
type Pool struct {
	workers   int
	jobQueue  chan Job
	collector *ResultCollector
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewPool builds a pool driven by ctx; canceling ctx stops the workers.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool{
		workers:   workers,
		jobQueue:  make(chan Job, workers*2),
		collector: NewResultCollector(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.collector.Add(job.Execute(p.ctx))
		}
	}
}

// Submit queues a job. Submissions after cancellation are dropped.
func (p *Pool) Submit(job Job) {
	select {
	case <-p.ctx.Done():
	case p.jobQueue <- job:
	}
}

// Wait closes the queue, waits for the workers to drain it and returns
// every collected result.
func (p *Pool) Wait() []Result {
	close(p.jobQueue)
	p.wg.Wait()
	return p.collector.Results()
}

// Shutdown cancels outstanding work immediately.
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
}

// ResultCollector accumulates results as they arrive.
type ResultCollector struct {
	results []Result
	mu      sync.Mutex
}

// NewResultCollector creates an empty collector.
func NewResultCollector() *ResultCollector {
	return &ResultCollector{results: make([]Result, 0)}
}

// Add appends a result. Safe for concurrent use.
func (c *ResultCollector) Add(result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
}

// Results returns all collected results.
func (c *ResultCollector) Results() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results
}
