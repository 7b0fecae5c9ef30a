package retry

import (
	"context"
	"sync/atomic"
	"time"
)

// Generation is a monotonically increasing counter used to cancel bounded runs.
// A run started with a token stops as soon as the generation moves past it.
type Generation struct {
	n atomic.Uint64
}

// Next advances the generation and returns the new token.
func (g *Generation) Next() uint64 {
	return g.n.Add(1)
}

// Current returns the current token.
func (g *Generation) Current() uint64 {
	return g.n.Load()
}

// Policy bounds a retry loop.
type Policy struct {
	Interval    time.Duration
	MaxAttempts int
}

// Stale reports whether token has been superseded. A nil generation never goes stale.
func (g *Generation) Stale(token uint64) bool {
	return g != nil && g.Current() != token
}

// Run calls fn immediately and then every p.Interval until fn returns true,
// p.MaxAttempts calls have been made, ctx is done, or gen moves past token.
// It reports whether fn returned true. attempt is zero-based.
func Run(ctx context.Context, p Policy, gen *Generation, token uint64, fn func(attempt int) bool) bool {
	if p.MaxAttempts <= 0 {
		return false
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			if timer == nil {
				timer = time.NewTimer(p.Interval)
			} else {
				timer.Reset(p.Interval)
			}
			select {
			case <-ctx.Done():
				return false
			case <-timer.C:
			}
		}
		if ctx.Err() != nil || gen.Stale(token) {
			return false
		}
		if fn(attempt) {
			return true
		}
	}
	return false
}

// Go runs Run on a new goroutine.
func Go(ctx context.Context, p Policy, gen *Generation, token uint64, fn func(attempt int) bool) {
	go Run(ctx, p, gen, token, fn)
}
