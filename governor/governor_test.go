// Copyright (c) 2025 BVK Chaitanya

package governor

import (
	"context"
	"testing"
	"time"
)

func TestAcquireConservation(t *testing.T) {
	ctx := context.Background()

	g := New(&Options{GlobalPerMinute: 120, AccountPerMinute: 60})

	// Freeze the clock so that no refill happens between measurements.
	now := time.Now()
	g.now = func() time.Time { return now }

	before := g.global.level(now)
	if before != 120 {
		t.Fatalf("global bucket must start full: got %v", before)
	}

	if _, err := g.Acquire(ctx, 1); err != nil {
		t.Fatal(err)
	}

	if after := g.global.level(now); after != before-1 {
		t.Errorf("global tokens: got %v, want %v", after, before-1)
	}
	if after := g.accountBucket(1).level(now); after != 59 {
		t.Errorf("account tokens: got %v, want 59", after)
	}
}

func TestBucketNeverExceedsCapacity(t *testing.T) {
	now := time.Now()
	b := newBucket(60, now)

	// An arbitrarily long idle period must not overfill the bucket.
	if level := b.level(now.Add(24 * time.Hour)); level != 60 {
		t.Errorf("bucket level after long idle: got %v, want 60", level)
	}

	if ok, _ := b.take(now.Add(25*time.Hour), 10); !ok {
		t.Fatalf("take must succeed on a full bucket")
	}
	if level := b.level(now.Add(25 * time.Hour)); level != 50 {
		t.Errorf("bucket level after take: got %v, want 50", level)
	}
}

func TestAcquireWaitsForRefill(t *testing.T) {
	ctx := context.Background()

	g := New(&Options{
		GlobalPerMinute:  6000, // 100 tokens/sec => short waits
		AccountPerMinute: 6000,
		MinJitter:        time.Millisecond,
		MaxJitter:        2 * time.Millisecond,
	})
	g.global.drain(time.Now())

	waited, err := g.Acquire(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if waited == 0 {
		t.Errorf("acquire on a drained bucket must wait")
	}
}

func TestAcquireCancellation(t *testing.T) {
	g := New(&Options{GlobalPerMinute: 60, AccountPerMinute: 60})
	g.global.drain(time.Now())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := g.Acquire(ctx, 1); err == nil {
		t.Errorf("acquire must fail when the context expires")
	}
}

func TestPenalizeDrainsAccountBucket(t *testing.T) {
	g := New(&Options{
		GlobalPerMinute:  120,
		AccountPerMinute: 60,
		PunitiveCooldown: time.Millisecond,
	})

	now := time.Now()
	b := g.accountBucket(7)
	if level := b.level(now); level != 60 {
		t.Fatalf("account bucket must start full: got %v", level)
	}

	g.Penalize(context.Background(), 7)

	b.mu.Lock()
	tokens := b.tokens
	b.mu.Unlock()
	if tokens != 0 {
		t.Errorf("account tokens after penalize: got %v, want 0", tokens)
	}
}
