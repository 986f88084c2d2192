// Package pool provides the bounded worker pool shared by all outbound
// scrape work. Submission blocks when the queue is full; that blocking
// is the pipeline's backpressure against the external scraper.
package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrStopped is returned by Submit after Stop has been observed.
var ErrStopped = errors.New("worker pool stopped")

// Pool runs submitted tasks on a fixed number of workers over a bounded
// queue. No submission is ever rejected while running; callers block
// until a queue slot frees. Every task accepted by Submit runs, even
// when Stop arrives while it is still queued.
type Pool struct {
	tasks    chan func()
	mu       sync.RWMutex
	stopped  bool
	wg       sync.WaitGroup
	stopOnce sync.Once
	inFlight atomic.Int64
}

// New starts a pool with the given worker count and queue depth.
func New(workers, depth int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if depth < workers {
		depth = 2 * workers
	}
	p := &Pool{
		tasks: make(chan func(), depth),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.inFlight.Add(1)
		task()
		p.inFlight.Add(-1)
	}
}

// Submit enqueues a task, blocking while the queue is full. It returns
// the context error when the submitter is cancelled first, or ErrStopped
// once the pool is shutting down. A nil return means the task will run:
// the queue is closed only under the write lock, so a send that won the
// race against Stop is still drained by the workers.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	if task == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InFlight reports how many tasks are currently executing.
func (p *Pool) InFlight() int {
	return int(p.inFlight.Load())
}

// Stop closes the queue and waits up to grace for the workers to drain
// it. Accepted tasks are never dropped; when the grace period elapses
// first Stop returns false and the remaining tasks finish in the
// background.
func (p *Pool) Stop(grace time.Duration) bool {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.tasks)
		p.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	if grace <= 0 {
		<-done
		return true
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
