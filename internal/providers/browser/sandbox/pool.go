package sandbox

import (
	"context"
	"errors"
	"sync"
)

var ErrPoolClosed = errors.New("sandbox pool is closed")

// Pool manages a pool of reusable sandboxes
type Pool struct {
	sandboxes chan *Runtime
	size      int
	mu        sync.RWMutex
	closed    bool
}

// NewPool creates a sandbox pool
func NewPool(config Config, size int) (*Pool, error) {
	if size <= 0 {
		size = 2
	}

	pool := &Pool{
		sandboxes: make(chan *Runtime, size),
		size:      size,
	}
	for i := 0; i < size; i++ {
		rt, err := New(config)
		if err != nil {
			pool.Close()
			return nil, err
		}
		pool.sandboxes <- rt
	}
	return pool, nil
}

func (p *Pool) acquire(ctx context.Context) (*Runtime, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrPoolClosed
	}
	select {
	case rt := <-p.sandboxes:
		return rt, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pool) release(rt *Runtime) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		_ = rt.Close()
		return
	}
	p.sandboxes <- rt
}

// Click runs Runtime.Click on a pooled runtime.
func (p *Pool) Click(ctx context.Context, script string, page Page, target *Element) (*Result, error) {
	rt, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.release(rt)
	return rt.Click(ctx, script, page, target)
}

// Load runs Runtime.Load on a pooled runtime.
func (p *Pool) Load(ctx context.Context, script string, page Page, loads int) (int, error) {
	rt, err := p.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer p.release(rt)
	return rt.Load(ctx, script, page, loads)
}

// Close closes pool and all sandboxes
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	close(p.sandboxes)
	for rt := range p.sandboxes {
		_ = rt.Close()
	}
	return nil
}

// Stats returns pool statistics
func (p *Pool) Stats() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return map[string]interface{}{
		"size":      p.size,
		"available": len(p.sandboxes),
		"in_use":    p.size - len(p.sandboxes),
		"closed":    p.closed,
	}
}
