package quote

import (
	"context"
	"sync"
	"time"

	"portfoliotracker/internal/domain"
)

// Throttled wraps a Source and enforces a minimum time between upstream
// calls so a batch of refreshes does not trip upstream blocking.
// Concurrent calls wait until the interval has elapsed since the last
// call, or return early if the context is canceled.
type Throttled struct {
	S        Source
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func (t *Throttled) Name() string { return t.S.Name() }

func (t *Throttled) Price(ctx context.Context, inst *domain.Instrument) (Quote, error) {
	if err := t.wait(ctx); err != nil {
		return Quote{}, err
	}
	return t.S.Price(ctx, inst)
}

func (t *Throttled) Performance(ctx context.Context, inst *domain.Instrument) (PerformanceResult, error) {
	if err := t.wait(ctx); err != nil {
		return PerformanceResult{}, err
	}
	return t.S.Performance(ctx, inst)
}

func (t *Throttled) wait(ctx context.Context) error {
	if t.Interval <= 0 {
		return nil
	}
	t.mu.Lock()
	next := t.last.Add(t.Interval)
	now := time.Now()
	if now.Before(next) {
		t.last = next
	} else {
		t.last = now
	}
	t.mu.Unlock()

	wait := time.Until(next)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
