// Package pool implements the handle pool and page-level worker pool from
// §5: a fixed set of recognizer.Driver handles dispatched over a buffered
// channel, with a periodic sweep that flags handles idle past a timeout,
// and per-page retry with exponential backoff.
package pool

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wudi/ocrpipe/observability"
	"github.com/wudi/ocrpipe/page"
	"github.com/wudi/ocrpipe/recognizer"
)

// HandlePool manages a fixed set of Driver handles. Acquire/Release follow
// the classic channel-as-semaphore pattern: a buffered channel pre-loaded
// with the handles acts as both the pool and the wait queue.
type HandlePool struct {
	handles chan recognizer.Driver

	mu       sync.Mutex
	lastUsed map[recognizer.Driver]time.Time

	timeout time.Duration
	logger  observability.Logger
	tracer  observability.Tracer

	stop chan struct{}
	once sync.Once
}

// NewHandlePool wraps handles in a pool and starts its idle-handle sweep.
// Call Close to stop the sweep goroutine.
func NewHandlePool(handles []recognizer.Driver, timeout time.Duration, logger observability.Logger, tracer observability.Tracer) *HandlePool {
	if logger == nil {
		logger = observability.NopLogger{}
	}
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	p := &HandlePool{
		handles:  make(chan recognizer.Driver, len(handles)),
		lastUsed: make(map[recognizer.Driver]time.Time, len(handles)),
		timeout:  timeout,
		logger:   logger,
		tracer:   tracer,
		stop:     make(chan struct{}),
	}
	now := time.Now()
	for _, h := range handles {
		p.handles <- h
		p.lastUsed[h] = now
	}
	if timeout > 0 {
		go p.sweep()
	}
	return p
}

// sweep periodically warns about handles that have sat idle past timeout;
// it never removes a handle from the pool, since an idle handle is still
// perfectly usable, just worth surfacing to an operator.
func (p *HandlePool) sweep() {
	ticker := time.NewTicker(p.timeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.mu.Lock()
			for h, t := range p.lastUsed {
				if time.Since(t) > p.timeout {
					p.logger.Warn("recognizer handle idle past timeout",
						observability.String("driver", h.Name()))
				}
			}
			p.mu.Unlock()
		}
	}
}

// Close stops the sweep goroutine. Safe to call more than once.
func (p *HandlePool) Close() {
	p.once.Do(func() { close(p.stop) })
}

// Acquire blocks until a handle is available or ctx is done.
func (p *HandlePool) Acquire(ctx context.Context) (recognizer.Driver, error) {
	select {
	case h := <-p.handles:
		p.mu.Lock()
		p.lastUsed[h] = time.Now()
		p.mu.Unlock()
		return h, nil
	case <-ctx.Done():
		return nil, page.WrapError(page.KindAborted, "acquire-handle", ctx.Err())
	}
}

// Release returns a handle to the pool.
func (p *HandlePool) Release(h recognizer.Driver) {
	p.mu.Lock()
	p.lastUsed[h] = time.Now()
	p.mu.Unlock()
	p.handles <- h
}

// backoffSchedule is the retry delay sequence for a recognizer timeout
// (§5): 1s, 2s, 4s before the caller sees the failure.
var backoffSchedule = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}

// PagePool dispatches page-level recognition work across a fixed worker
// count, retrying a per-request timeout with exponential backoff before
// surfacing page.ErrRecognizerTimeout to the caller.
type PagePool struct {
	handles           *HandlePool
	workers           int
	perRequestTimeout time.Duration
}

// NewPagePool constructs a page pool over the given handle pool.
func NewPagePool(handles *HandlePool, workers int, perRequestTimeout time.Duration) *PagePool {
	if workers < 1 {
		workers = 1
	}
	return &PagePool{handles: handles, workers: workers, perRequestTimeout: perRequestTimeout}
}

// PageJobResult is one page's outcome from RecognizeAll, indexed to match
// the input request slice.
type PageJobResult struct {
	Index  int
	Output recognizer.PageOutput
	Err    error
}

// RecognizeAll recognizes every request, fanning work out across p.workers
// goroutines. Results preserve request order regardless of completion
// order.
func (p *PagePool) RecognizeAll(ctx context.Context, requests []recognizer.PageRequest) []PageJobResult {
	results := make([]PageJobResult, len(requests))
	jobs := make(chan int, len(requests))
	var wg sync.WaitGroup

	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				out, err := p.recognizeWithRetry(ctx, requests[idx])
				results[idx] = PageJobResult{Index: idx, Output: out, Err: err}
			}
		}()
	}
	for i := range requests {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

func (p *PagePool) recognizeWithRetry(ctx context.Context, req recognizer.PageRequest) (recognizer.PageOutput, error) {
	var lastErr error
	for attempt := 0; attempt <= len(backoffSchedule); attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoffSchedule[attempt-1]):
			case <-ctx.Done():
				return recognizer.PageOutput{}, page.WrapError(page.KindAborted, "recognize-retry", ctx.Err())
			}
		}
		out, err := p.attempt(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !errors.Is(err, page.ErrRecognizerTimeout) {
			return recognizer.PageOutput{}, err
		}
	}
	return recognizer.PageOutput{}, lastErr
}

func (p *PagePool) attempt(ctx context.Context, req recognizer.PageRequest) (recognizer.PageOutput, error) {
	handle, err := p.handles.Acquire(ctx)
	if err != nil {
		return recognizer.PageOutput{}, err
	}
	defer p.handles.Release(handle)

	reqCtx := ctx
	var cancel context.CancelFunc
	if p.perRequestTimeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, p.perRequestTimeout)
		defer cancel()
	}

	out, err := handle.RecognizePage(reqCtx, req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return recognizer.PageOutput{}, page.WrapError(page.KindRecognizerTimeout, "recognize-page", err)
		}
		return recognizer.PageOutput{}, err
	}
	return out, nil
}
