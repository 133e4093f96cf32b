package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/exprbox/exprbox/internal/boundary"
)

var (
	// ErrPoolClosed is returned when acquiring from a closed pool.
	ErrPoolClosed = errors.New("sandbox pool is closed")
	// ErrAcquireTimeout is returned when no runtime frees up in time.
	ErrAcquireTimeout = errors.New("timed out waiting for a sandbox runtime")
)

// Pool manages a fixed set of reusable runtimes. Reuse skips goja's VM
// construction cost on the hot path; isolation between borrowers comes
// from the per-evaluation scope reset plus a full runtime reset on
// release.
type Pool struct {
	runtimes chan Evaluator
	factory  func() (Evaluator, error)
	size     int
	timeout  time.Duration

	mu     sync.Mutex
	closed bool
}

// NewPool creates a pool of size runtimes built from config.
func NewPool(config Config) (*Pool, error) {
	size := config.PoolSize
	if size < 1 {
		size = 1
	}

	factory := func() (Evaluator, error) {
		return NewRuntime(config)
	}

	p := &Pool{
		runtimes: make(chan Evaluator, size),
		factory:  factory,
		size:     size,
		timeout:  config.AcquireTimeout,
	}

	for i := 0; i < size; i++ {
		rt, err := factory()
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("create pooled runtime %d: %w", i, err)
		}
		p.runtimes <- rt
	}

	return p, nil
}

// Acquire takes a runtime from the pool, waiting up to the configured
// acquire timeout.
func (p *Pool) Acquire(ctx context.Context) (Evaluator, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.mu.Unlock()

	wait := p.timeout
	if wait <= 0 {
		wait = 2 * time.Second
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case rt, ok := <-p.runtimes:
		if !ok {
			return nil, ErrPoolClosed
		}
		return rt, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrAcquireTimeout
	}
}

// Release resets a runtime and returns it to the pool. A runtime that
// fails to reset is discarded and replaced.
func (p *Pool) Release(rt Evaluator) {
	if rt == nil {
		return
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		_ = rt.Close()
		return
	}

	if err := rt.Reset(); err != nil {
		_ = rt.Close()
		replacement, ferr := p.factory()
		if ferr != nil {
			return
		}
		rt = replacement
	}

	select {
	case p.runtimes <- rt:
	default:
		// Pool already full; drop the extra.
		_ = rt.Close()
	}
}

// Execute runs source on a pooled runtime.
func (p *Pool) Execute(ctx context.Context, source string, reg *boundary.Registry) (*Result, error) {
	rt, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Release(rt)

	return rt.Execute(ctx, source, reg)
}

// ExecuteProgram runs a precompiled program on a pooled runtime.
func (p *Pool) ExecuteProgram(ctx context.Context, prog *goja.Program, reg *boundary.Registry) (*Result, error) {
	rt, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Release(rt)

	return rt.ExecuteProgram(ctx, prog, reg)
}

// Close shuts the pool down and releases all idle runtimes. Runtimes out
// on loan are closed as they come back through Release.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	for {
		select {
		case rt := <-p.runtimes:
			_ = rt.Close()
		default:
			return
		}
	}
}

// Stats reports pool occupancy.
func (p *Pool) Stats() map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()

	return map[string]any{
		"size":      p.size,
		"available": len(p.runtimes),
		"in_use":    p.size - len(p.runtimes),
		"closed":    p.closed,
	}
}
