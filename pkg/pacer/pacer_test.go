package pacer

import (
	"context"
	"testing"
	"time"
)

func TestPacer_ZeroNeverBlocks(t *testing.T) {
	for name, p := range map[string]*Pacer{
		"every zero":      Every(0),
		"per second zero": PerSecond(0, 0.5),
		"zero value":      {},
	} {
		t.Run(name, func(t *testing.T) {
			start := time.Now()
			if err := p.Wait(context.Background()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if time.Since(start) > 10*time.Millisecond {
				t.Errorf("non-blocking pacer blocked")
			}
			p.Stop()
		})
	}
}

func TestPacer_Every(t *testing.T) {
	p := Every(50 * time.Millisecond)
	defer p.Stop()

	if p.Interval() != 50*time.Millisecond {
		t.Fatalf("expected 50ms interval, got %v", p.Interval())
	}

	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("expected to wait about one interval, waited %v", elapsed)
	}
}

func TestPacer_EveryWaitsFullIntervalAfterSlowWork(t *testing.T) {
	p := Every(30 * time.Millisecond)
	defer p.Stop()

	for i := 0; i < 3; i++ {
		// work that outlasts the interval must not make the next Wait return early
		time.Sleep(60 * time.Millisecond)

		start := time.Now()
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
			t.Fatalf("wait %d returned after %v, expected a full interval", i, elapsed)
		}
	}
}

func TestPacer_PerSecondInterval(t *testing.T) {
	p := PerSecond(10, 0)
	defer p.Stop()
	if p.Interval() != 100*time.Millisecond {
		t.Errorf("expected 100ms interval, got %v", p.Interval())
	}
}

func TestPacer_JitterClamped(t *testing.T) {
	p := PerSecond(100, 5)
	defer p.Stop()
	if p.jitter != 1 {
		t.Errorf("expected jitter clamped to 1, got %v", p.jitter)
	}

	p2 := PerSecond(100, -1)
	defer p2.Stop()
	if p2.jitter != 0 {
		t.Errorf("expected jitter clamped to 0, got %v", p2.jitter)
	}
}

func TestPacer_ContextCancelled(t *testing.T) {
	p := Every(time.Hour)
	defer p.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.Wait(ctx); err == nil {
		t.Fatal("expected context error")
	}
}
