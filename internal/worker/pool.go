// Package worker runs word validations concurrently and paces oracle calls.
package worker

import (
	"context"
	"sync"
)

// Task is one unit of work
type Task[R any] func(ctx context.Context) R

type queued[R any] struct {
	index int
	run   Task[R]
}

// Pool runs tasks on a fixed number of goroutines. Workers store results
// themselves, so Submit only waits for a free queue slot.
type Pool[R any] struct {
	ctx    context.Context
	cancel context.CancelFunc
	queue  chan queued[R]
	wg     sync.WaitGroup

	mu        sync.Mutex
	submitted int
	results   map[int]R

	// sendMu guards queue: Submit sends under RLock, Wait closes under Lock
	sendMu sync.RWMutex
	closed bool
}

// NewPool starts workers goroutines whose tasks observe ctx
func NewPool[R any](ctx context.Context, workers int) *Pool[R] {
	if workers <= 0 {
		workers = 1
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)

	p := &Pool[R]{
		ctx:     ctx,
		cancel:  cancel,
		queue:   make(chan queued[R], workers),
		results: make(map[int]R),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

func (p *Pool[R]) work() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.queue:
			if !ok {
				return
			}
			if p.ctx.Err() != nil {
				return
			}
			result := task.run(p.ctx)
			p.mu.Lock()
			p.results[task.index] = result
			p.mu.Unlock()
		}
	}
}

// Submit queues task and returns its index. It reports false once the
// pool's context has ended or Wait has been called.
func (p *Pool[R]) Submit(task Task[R]) (int, bool) {
	p.sendMu.RLock()
	defer p.sendMu.RUnlock()

	if p.closed || p.ctx.Err() != nil {
		return 0, false
	}

	p.mu.Lock()
	index := p.submitted
	p.submitted++
	p.mu.Unlock()

	select {
	case <-p.ctx.Done():
		return 0, false
	case p.queue <- queued[R]{index: index, run: task}:
		return index, true
	}
}

// Wait closes the queue, waits for the workers and returns results by
// submission index. Tasks dropped after cancellation have no entry.
func (p *Pool[R]) Wait() map[int]R {
	p.sendMu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.sendMu.Unlock()

	p.wg.Wait()
	p.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[int]R, len(p.results))
	for i, r := range p.results {
		out[i] = r
	}
	return out
}

// Shutdown cancels running tasks and drops queued ones
func (p *Pool[R]) Shutdown() {
	p.cancel()
	p.wg.Wait()
}
