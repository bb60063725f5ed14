package infra

import (
	"context"
	"testing"
	"time"
)

func TestLimiterStore_LowBurstRejectsSecondImmediateAllow(t *testing.T) {
	s := NewLimiterStore(0.02, 1)

	if !s.Allow("k") {
		t.Fatalf("expected first Allow to be true")
	}
	if s.Allow("k") {
		t.Fatalf("expected second immediate Allow to be false (burst=1)")
	}
	if !s.Allow("other") {
		t.Fatalf("expected a different key to have its own bucket")
	}
}

func TestLimiterStore_CleanupRemovesIdleEntries(t *testing.T) {
	s := NewLimiterStore(0.02, 1, WithIdleTTL(2*time.Millisecond), WithCleanupEvery(0))

	if !s.Allow("k") {
		t.Fatalf("expected first Allow to be true")
	}
	time.Sleep(4 * time.Millisecond)

	s.Cleanup()

	// bucket recriado: crédito cheio de novo
	if !s.Allow("k") {
		t.Fatalf("expected limiter to be recreated after cleanup")
	}
}

func TestChanPool_AcquireRelease(t *testing.T) {
	p := NewChanPool(1)

	release, ok := p.Acquire(t.Context())
	if !ok {
		t.Fatalf("expected first acquire to succeed")
	}
	if p.InUse() != 1 {
		t.Fatalf("expected 1 slot in use, got %d", p.InUse())
	}

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	if _, ok := p.Acquire(ctx); ok {
		t.Fatalf("expected second acquire to time out")
	}

	release()
	if p.InUse() != 0 {
		t.Fatalf("expected slot released, got %d in use", p.InUse())
	}
}
