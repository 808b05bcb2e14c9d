package parallel

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Result is the outcome of one submitted function.
type Result struct {
	Key      string
	Err      error
	Duration time.Duration
	// Skipped is set when the context was done before fn started.
	Skipped bool
}

// KeyError is a failure of the function submitted under Key.
type KeyError struct {
	Key string
	Err error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Key, e.Err)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

// WorkerPool runs submitted functions with bounded concurrency.
type WorkerPool struct {
	maxWorkers int
	semaphore  chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	results    []Result
	errors     []error
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewWorkerPool returns a pool running at most maxWorkers functions at a
// time; 0 means unbounded. Functions still waiting for a slot when ctx is
// done are skipped.
func NewWorkerPool(ctx context.Context, maxWorkers int) *WorkerPool {
	if maxWorkers < 0 {
		maxWorkers = 0
	}
	ctx, cancel := context.WithCancel(ctx)
	return &WorkerPool{
		maxWorkers: maxWorkers,
		semaphore:  make(chan struct{}, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Submit schedules fn. It never blocks; every submitted function produces
// exactly one Result, including functions skipped after cancellation.
func (p *WorkerPool) Submit(key string, fn func(ctx context.Context) error) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		if p.maxWorkers > 0 {
			select {
			case p.semaphore <- struct{}{}:
				defer func() { <-p.semaphore }()
			case <-p.ctx.Done():
				p.record(Result{Key: key, Err: p.ctx.Err(), Skipped: true})
				return
			}
		}

		if err := p.ctx.Err(); err != nil {
			p.record(Result{Key: key, Err: err, Skipped: true})
			return
		}

		start := time.Now()
		err := fn(p.ctx)
		p.record(Result{Key: key, Err: err, Duration: time.Since(start)})
	}()
}

func (p *WorkerPool) record(r Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.results = append(p.results, r)
	if r.Err != nil {
		p.errors = append(p.errors, &KeyError{Key: r.Key, Err: r.Err})
	}
}

// Wait blocks until every submitted function has a result, then releases
// the pool context. Results and errors are in completion order; every error
// is a *KeyError.
func (p *WorkerPool) Wait() ([]Result, []error) {
	p.wg.Wait()
	p.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	results := make([]Result, len(p.results))
	copy(results, p.results)
	errs := make([]error, len(p.errors))
	copy(errs, p.errors)
	return results, errs
}
