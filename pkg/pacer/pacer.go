// Package pacer spaces out repeated operations on a fixed cadence.
package pacer

import (
	"context"
	"math/rand"
	"time"
)

// Pacer releases callers at most once per interval, optionally adding
// positive jitter. A zero Pacer never blocks. It is safe for concurrent use.
type Pacer struct {
	ticker   *time.Ticker
	interval time.Duration
	jitter   float64 // 0.0 to 1.0
	// gap makes every Wait sleep a full interval, so the spacing runs from
	// the end of one operation to the start of the next.
	gap bool
}

// Every returns a Pacer whose Wait always sleeps the full interval, however
// long the caller spent since the previous Wait. An interval <= 0 yields a
// Pacer that never blocks.
func Every(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{}
	}
	return &Pacer{interval: interval, gap: true}
}

// PerSecond returns a Pacer allowing rps operations per second with the
// given jitter factor, clamped to [0, 1]. If rps <= 0 it never blocks.
func PerSecond(rps float64, jitter float64) *Pacer {
	if rps <= 0 {
		return &Pacer{}
	}
	return newPacer(time.Duration(float64(time.Second)/rps), jitter)
}

func newPacer(interval time.Duration, jitter float64) *Pacer {
	if interval <= 0 {
		return &Pacer{}
	}
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}
	return &Pacer{
		ticker:   time.NewTicker(interval),
		interval: interval,
		jitter:   jitter,
	}
}

// Interval reports the configured spacing; zero for a non-blocking Pacer.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Wait blocks until the next release or until ctx is done. For a PerSecond
// Pacer the ticker keeps counting while the caller works, so its cadence is
// measured between starts; an Every Pacer sleeps a fresh interval.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.gap {
		return sleep(ctx, p.interval)
	}
	if p.ticker == nil {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ticker.C:
	}

	if p.jitter == 0 {
		return nil
	}

	// Ticks cannot arrive early, so only the positive half of the jitter
	// window is applied.
	extra := time.Duration(float64(p.interval) * p.jitter * rand.Float64())
	if extra <= 0 {
		return nil
	}
	return sleep(ctx, extra)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop releases the underlying ticker.
func (p *Pacer) Stop() {
	if p.ticker != nil {
		p.ticker.Stop()
	}
}
