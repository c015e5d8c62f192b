package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingProcessor struct {
	mu       sync.Mutex
	inFlight int32
	peak     int32
	total    atomic.Int32
}

func (p *countingProcessor) Process(ctx context.Context, requestID string) error {
	p.mu.Lock()
	p.inFlight++
	if p.inFlight > p.peak {
		p.peak = p.inFlight
	}
	p.mu.Unlock()

	time.Sleep(10 * time.Millisecond)

	p.mu.Lock()
	p.inFlight--
	p.mu.Unlock()
	p.total.Add(1)
	return nil
}

func TestPoolBoundsConcurrency(t *testing.T) {
	proc := &countingProcessor{}
	pool := NewPool(proc, 2)

	for i := 0; i < 8; i++ {
		if err := pool.Dispatch(context.Background(), "req"); err != nil {
			t.Fatalf("dispatch: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if got := proc.total.Load(); got != 8 {
		t.Fatalf("expected 8 processed, got %d", got)
	}
	if proc.peak > 2 {
		t.Fatalf("expected at most 2 concurrent jobs, saw %d", proc.peak)
	}
}

func TestPoolRejectsAfterShutdown(t *testing.T) {
	pool := NewPool(&countingProcessor{}, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := pool.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if err := pool.Dispatch(context.Background(), "req"); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
