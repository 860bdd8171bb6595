// Copyright (c) 2025 BVK Chaitanya

// Package governor implements token-bucket admission control for outbound
// marketplace requests. One global bucket bounds the whole process and one
// bucket per account bounds each account; a request is admitted only when
// both buckets grant tokens.
package governor

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/bvk/floatbid/ctxutil"
	"github.com/bvk/floatbid/syncmap"
)

type Options struct {
	// GlobalPerMinute and AccountPerMinute are the request budgets, in
	// requests per minute. Buckets refill continuously at budget/60 tokens
	// per second and start full.
	GlobalPerMinute  int
	AccountPerMinute int

	// PunitiveCooldown is the forced pause after the marketplace signals
	// throttling. This is distinct from the refill-based waiting: the
	// account's bucket is also drained to zero.
	PunitiveCooldown time.Duration

	// MinJitter/MaxJitter bound the random delay added to every
	// refill-based wait so that accounts don't retry in lockstep.
	MinJitter time.Duration
	MaxJitter time.Duration
}

func (v *Options) setDefaults() {
	if v.GlobalPerMinute == 0 {
		v.GlobalPerMinute = 120
	}
	if v.AccountPerMinute == 0 {
		v.AccountPerMinute = 60
	}
	if v.PunitiveCooldown == 0 {
		v.PunitiveCooldown = time.Minute
	}
	if v.MinJitter == 0 {
		v.MinJitter = 100 * time.Millisecond
	}
	if v.MaxJitter == 0 {
		v.MaxJitter = 500 * time.Millisecond
	}
}

type bucket struct {
	mu sync.Mutex

	capacity   float64
	refillRate float64 // tokens per second

	tokens     float64
	lastRefill time.Time
}

func newBucket(perMinute int, now time.Time) *bucket {
	c := float64(perMinute)
	return &bucket{
		capacity:   c,
		refillRate: c / 60.0,
		tokens:     c,
		lastRefill: now,
	}
}

// refillLocked adds tokens for the wall-clock time elapsed since the last
// refill. Tokens never exceed the bucket capacity.
func (b *bucket) refillLocked(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens = min(b.capacity, b.tokens+elapsed*b.refillRate)
	}
	b.lastRefill = now
}

// take debits n tokens if available; otherwise it returns the number of
// missing tokens.
func (b *bucket) take(now time.Time, n float64) (ok bool, deficit float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(now)
	if b.tokens >= n {
		b.tokens -= n
		return true, 0
	}
	return false, n - b.tokens
}

// drain empties the bucket and restarts the refill clock, so that the time
// already spent waiting does not get credited back immediately.
func (b *bucket) drain(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = 0
	b.lastRefill = now
}

func (b *bucket) level(now time.Time) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked(now)
	return b.tokens
}

type Governor struct {
	opts Options

	global *bucket

	accounts syncmap.Map[int64, *bucket]

	now func() time.Time
}

func New(opts *Options) *Governor {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()

	g := &Governor{
		opts: *opts,
		now:  time.Now,
	}
	g.global = newBucket(g.opts.GlobalPerMinute, g.now())
	return g
}

func (g *Governor) accountBucket(accountID int64) *bucket {
	if b, ok := g.accounts.Load(accountID); ok {
		return b
	}
	b, _ := g.accounts.LoadOrStore(accountID, newBucket(g.opts.AccountPerMinute, g.now()))
	return b
}

func (g *Governor) jitter() time.Duration {
	spread := g.opts.MaxJitter - g.opts.MinJitter
	if spread <= 0 {
		return g.opts.MinJitter
	}
	return g.opts.MinJitter + rand.N(spread)
}

// Acquire debits one token from the global bucket and one token from the
// account's bucket, sleeping for the refill deficit (plus jitter) as many
// times as necessary. Returns the total time spent waiting.
func (g *Governor) Acquire(ctx context.Context, accountID int64) (time.Duration, error) {
	waited, err := g.acquire(ctx, g.global, 1)
	if err != nil {
		return waited, err
	}
	w, err := g.acquire(ctx, g.accountBucket(accountID), 1)
	waited += w
	if err != nil {
		return waited, err
	}
	if waited > 0 {
		slog.Debug("rate governor delayed a marketplace request", "account", accountID, "waited", waited)
	}
	return waited, nil
}

func (g *Governor) acquire(ctx context.Context, b *bucket, n float64) (time.Duration, error) {
	var waited time.Duration
	for {
		if err := context.Cause(ctx); err != nil {
			return waited, err
		}
		ok, deficit := b.take(g.now(), n)
		if ok {
			return waited, nil
		}
		wait := time.Duration(deficit/b.refillRate*float64(time.Second)) + g.jitter()
		ctxutil.Sleep(ctx, wait)
		waited += wait
	}
}

// Penalize handles an explicit throttling signal from the marketplace: the
// account's bucket is drained to zero and the caller is held back for the
// punitive cooldown.
func (g *Governor) Penalize(ctx context.Context, accountID int64) {
	g.accountBucket(accountID).drain(g.now())
	slog.Warn("marketplace throttled an account; backing off", "account", accountID, "cooldown", g.opts.PunitiveCooldown)
	ctxutil.Sleep(ctx, g.opts.PunitiveCooldown)
}

type BucketStatus struct {
	Tokens   float64 `json:"tokens"`
	Capacity float64 `json:"capacity"`
}

type Status struct {
	Global   BucketStatus           `json:"global"`
	Accounts map[int64]BucketStatus `json:"accounts"`
}

func (g *Governor) Status() *Status {
	now := g.now()
	s := &Status{
		Global: BucketStatus{
			Tokens:   g.global.level(now),
			Capacity: g.global.capacity,
		},
		Accounts: make(map[int64]BucketStatus),
	}
	g.accounts.Range(func(id int64, b *bucket) bool {
		s.Accounts[id] = BucketStatus{Tokens: b.level(now), Capacity: b.capacity}
		return true
	})
	return s
}
