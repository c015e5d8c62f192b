package dispatch

import (
	"context"
	"errors"
	"sync"

	"skincare-backend/internal/shared/telemetry"
)

// Processor runs one analysis request to a terminal state.
type Processor interface {
	Process(ctx context.Context, requestID string) error
}

// Pool executes dispatched requests on a bounded set of in-process
// workers. It stands in for the queue in deployments without one;
// completion is communicated only through the persisted ledger, never
// through channels, so callers poll exactly as they would against the
// split deployment. Single attempt, no retry.
type Pool struct {
	proc Processor
	sem  chan struct{}
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPool constructs a pool with the given concurrency.
func NewPool(proc Processor, size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		proc: proc,
		sem:  make(chan struct{}, size),
	}
}

// ErrClosed is returned when dispatching after Shutdown.
var ErrClosed = errors.New("dispatch pool closed")

// Dispatch hands the request to a worker goroutine and returns
// immediately. The job runs on a detached context: the HTTP caller has
// already moved on by the time the engine executes.
func (p *Pool) Dispatch(ctx context.Context, requestID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		p.sem <- struct{}{}
		defer func() { <-p.sem }()

		if err := p.proc.Process(context.Background(), requestID); err != nil {
			telemetry.Error("dispatch.process_failed", map[string]any{
				"analysis_request_id": requestID,
				"error":               err.Error(),
			})
		}
	}()
	return nil
}

// Shutdown stops accepting work and waits for in-flight jobs, bounded
// by the context deadline.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
