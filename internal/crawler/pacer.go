package crawler

import (
	"context"
	"math/rand/v2"
	"time"
)

// Pacer sleeps a jittered politeness delay after each processed node.
// The delay is uniform in [delay-spread, delay+spread], never negative.
type Pacer struct {
	delay  time.Duration
	spread time.Duration
	rand   func() float64
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewPacer creates a pacer.
func NewPacer(delay, spread time.Duration) *Pacer {
	return &Pacer{
		delay:  delay,
		spread: spread,
		rand:   rand.Float64,
		sleep:  sleepContext,
	}
}

// Next draws the next delay.
func (p *Pacer) Next() time.Duration {
	lo := p.delay - p.spread
	d := lo + time.Duration(p.rand()*float64(2*p.spread))
	if d < 0 {
		return 0
	}
	return d
}

// Wait sleeps for the next delay or until ctx is done.
func (p *Pacer) Wait(ctx context.Context, _ string) error {
	d := p.Next()
	if d == 0 {
		return ctx.Err()
	}
	return p.sleep(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
