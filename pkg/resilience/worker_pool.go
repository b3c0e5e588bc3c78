package resilience

import (
	"context"
	"errors"
	"sync"
)

// ErrWorkerPoolClosed is returned by Submit once the pool has been closed.
var ErrWorkerPoolClosed = errors.New("worker pool is closed")

// WorkerPool runs submitted jobs on a fixed set of goroutines behind a
// bounded queue. When the queue is full, Submit blocks until a worker
// frees a slot or the caller's context ends, so producers are throttled
// by consumers rather than queueing without bound.
type WorkerPool struct {
	jobs chan func()
	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// NewWorkerPool starts workers goroutines draining a queue that holds up
// to queueSize pending jobs. Non-positive arguments fall back to one
// worker and a queue as deep as the worker count.
func NewWorkerPool(workers, queueSize int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = workers
	}

	p := &WorkerPool{
		jobs: make(chan func(), queueSize),
		stop: make(chan struct{}),
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	return p
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.jobs:
			if job != nil {
				job()
			}
		case <-p.stop:
			p.drain()
			return
		}
	}
}

// drain runs whatever was queued before Close, so accepted jobs are not
// dropped on shutdown.
func (p *WorkerPool) drain() {
	for {
		select {
		case job := <-p.jobs:
			if job != nil {
				job()
			}
		default:
			return
		}
	}
}

// Submit enqueues a job. It blocks while the queue is full and returns
// ctx.Err if the context ends first, or ErrWorkerPoolClosed once the
// pool has been closed.
func (p *WorkerPool) Submit(ctx context.Context, job func()) error {
	if job == nil {
		return nil
	}

	select {
	case <-p.stop:
		return ErrWorkerPoolClosed
	default:
	}

	select {
	case <-p.stop:
		return ErrWorkerPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	case p.jobs <- job:
		return nil
	}
}

// QueueDepth reports how many submitted jobs are waiting for a worker.
func (p *WorkerPool) QueueDepth() int {
	return len(p.jobs)
}

// Close stops the pool. Workers finish the job they are on, drain the
// queue, and exit. Close is idempotent and does not wait; call Wait to
// block until the workers are gone.
func (p *WorkerPool) Close() {
	p.once.Do(func() {
		close(p.stop)
	})
}

// Wait blocks until every worker has exited.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}
