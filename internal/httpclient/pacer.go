package httpclient

import (
	"context"
	"sync"
	"time"

	"github.com/sentryfeed/sentryfeed/internal/ratelimit"
)

// domainPacer enforces the per-domain concurrency cap and minimum
// inter-request interval from spec §4.1/§5, built on top of
// internal/ratelimit's generic sliding-window limiter (originally written
// for per-IP/per-user HTTP rate limiting) repurposed here with the request
// host as the limiter key and a window sized to RequestDelay.
type domainPacer struct {
	algorithm ratelimit.RateLimitAlgorithm
	store     ratelimit.RateLimitStore
	metrics   ratelimit.RateLimitMetrics

	mu    sync.Mutex
	sems  map[string]chan struct{}
	limit int
	delay time.Duration
}

func newDomainPacer(maxConcurrentPerDomain int, delay time.Duration) *domainPacer {
	return &domainPacer{
		algorithm: ratelimit.NewSlidingWindowAlgorithm(&ratelimit.SystemClock{}),
		store: ratelimit.NewInMemoryRateLimitStore(ratelimit.InMemoryStoreConfig{
			MaxKeys: 10000,
		}),
		metrics: ratelimit.NewNoOpMetrics(),
		sems:    make(map[string]chan struct{}),
		limit:   maxConcurrentPerDomain,
		delay:   delay,
	}
}

// Acquire blocks until the domain concurrency semaphore is free and the
// minimum inter-request interval for host has elapsed. The returned
// release func MUST be called on every exit path, including error paths.
func (p *domainPacer) Acquire(ctx context.Context, host string) (release func(), err error) {
	sem := p.semaphoreFor(host)
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	release = func() { <-sem }

	if p.delay <= 0 {
		return release, nil
	}

	for {
		decision, derr := p.algorithm.IsAllowed(ctx, host, p.store, 1, p.delay)
		if derr != nil {
			// Fail open: a broken pacer store must not stall crawling.
			return release, nil
		}
		if decision.Allowed {
			p.metrics.RecordAllowed("domain", host)
			return release, nil
		}
		p.metrics.RecordDenied("domain", host)
		wait := decision.RetryAfter
		if wait <= 0 {
			wait = p.delay
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		}
	}
}

func (p *domainPacer) semaphoreFor(host string) chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	sem, ok := p.sems[host]
	if !ok {
		sem = make(chan struct{}, p.limit)
		p.sems[host] = sem
	}
	return sem
}
