// Copyright (c) 2025 BVK Chaitanya

package outbid

import (
	"context"
	"testing"

	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/shopspring/decimal"

	"github.com/bvk/floatbid/datastore"
	"github.com/bvk/floatbid/gobs"
)

func newTestEngine(t *testing.T, opts *Options) *Engine {
	t.Helper()
	e, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestShouldOutbidApproves(t *testing.T) {
	e := newTestEngine(t, nil)

	order := &gobs.BuyOrder{Price: 500}
	ok, reason := e.ShouldOutbid(order, 520, 0)
	if !ok {
		t.Fatalf("must approve: refused with %q", reason)
	}
	if v := e.NewPrice(520); v != 521 {
		t.Errorf("new price: got %d, want 521", v)
	}
}

func TestShouldOutbidAlreadyTop(t *testing.T) {
	e := newTestEngine(t, nil)

	order := &gobs.BuyOrder{Price: 500}
	if ok, reason := e.ShouldOutbid(order, 480, 0); ok || reason != ReasonAlreadyTop {
		t.Errorf("got (%v, %q), want refusal with %q", ok, reason, ReasonAlreadyTop)
	}
	// A tie is not "top": the competitor matched us, so we go one step up.
	if ok, _ := e.ShouldOutbid(order, 500, 0); ok {
		t.Errorf("equal competitor price must refuse as already top")
	}
}

func TestShouldOutbidLimitReached(t *testing.T) {
	e := newTestEngine(t, &Options{MaxOutbids: 10})

	order := &gobs.BuyOrder{Price: 500, OutbidCount: 10}
	if ok, reason := e.ShouldOutbid(order, 520, 0); ok || reason != ReasonLimitReached {
		t.Errorf("got (%v, %q), want refusal with %q", ok, reason, ReasonLimitReached)
	}
}

func TestShouldOutbidReasonOrder(t *testing.T) {
	e := newTestEngine(t, &Options{MaxOutbids: 10})

	// Over the outbid limit AND already top: the already-top check runs
	// first, so its reason wins.
	order := &gobs.BuyOrder{Price: 500, OutbidCount: 99}
	if _, reason := e.ShouldOutbid(order, 480, 0); reason != ReasonAlreadyTop {
		t.Errorf("reason: got %q, want %q", reason, ReasonAlreadyTop)
	}
}

func TestShouldOutbidMaxPrice(t *testing.T) {
	e := newTestEngine(t, nil)

	order := &gobs.BuyOrder{Price: 500, MaxPrice: 520}
	if ok, reason := e.ShouldOutbid(order, 520, 0); ok || reason != ReasonAboveMax {
		t.Errorf("got (%v, %q), want refusal with %q", ok, reason, ReasonAboveMax)
	}
	// An unset max price does not cap anything.
	order.MaxPrice = 0
	if ok, _ := e.ShouldOutbid(order, 520, 0); !ok {
		t.Errorf("order without max price must approve")
	}
}

func TestShouldOutbidCeiling(t *testing.T) {
	e := newTestEngine(t, &Options{
		CeilingMultiplier: decimal.NewFromFloat(1.2),
		CeilingPremium:    500,
	})

	ceiling := e.PriceCeiling(1000)
	if ceiling != 1200 {
		t.Fatalf("ceiling: got %d, want 1200", ceiling)
	}

	// Candidate 1250 is below competitor+step but above the ceiling.
	order := &gobs.BuyOrder{Price: 500}
	if ok, reason := e.ShouldOutbid(order, 1249, ceiling); ok || reason != ReasonAboveCeiling {
		t.Errorf("got (%v, %q), want refusal with %q", ok, reason, ReasonAboveCeiling)
	}
	// A zero ceiling means no ceiling could be computed.
	if ok, _ := e.ShouldOutbid(order, 1249, 0); !ok {
		t.Errorf("missing ceiling must not cap the price")
	}
}

func TestPriceCeilingTighterBound(t *testing.T) {
	e := newTestEngine(t, &Options{
		CeilingMultiplier: decimal.NewFromFloat(1.2),
		CeilingPremium:    500,
	})

	// Small prices: the multiplier bound is tighter.
	if v := e.PriceCeiling(1000); v != 1200 {
		t.Errorf("ceiling(1000): got %d, want 1200", v)
	}
	// Large prices: the fixed premium is tighter.
	if v := e.PriceCeiling(100000); v != 100500 {
		t.Errorf("ceiling(100000): got %d, want 100500", v)
	}
}

func TestShouldOutbidMonotonicity(t *testing.T) {
	e := newTestEngine(t, nil)

	order := &gobs.BuyOrder{Price: 500}
	approvedHigh, _ := e.ShouldOutbid(order, 900, 0)
	if !approvedHigh {
		t.Fatalf("must approve at 900")
	}
	// Every competitor price between our own and 900 must also be approved.
	for p := int64(501); p < 900; p += 7 {
		if ok, reason := e.ShouldOutbid(order, p, 0); !ok {
			t.Fatalf("refused at competitor price %d with %q", p, reason)
		}
	}
	for p := int64(400); p <= 500; p += 10 {
		if ok, _ := e.ShouldOutbid(order, p, 0); ok {
			t.Fatalf("approved at competitor price %d below our own", p)
		}
	}
}

func TestRecordOutbid(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	order := &gobs.BuyOrder{
		AccountID:          1,
		OrderID:            "ext-1",
		Kind:               gobs.OrderKindPlain,
		Name:               "AK-47 | Redline (Field-Tested)",
		Price:              500,
		Quantity:           1,
		Active:             true,
		PendingReplacement: true,
	}
	err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		if _, err := datastore.AddOrder(ctx, rw, order); err != nil {
			return err
		}
		return RecordOutbid(ctx, rw, order, "ext-2", 520, 521)
	})
	if err != nil {
		t.Fatal(err)
	}

	err = kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		saved, err := datastore.LoadOrder(ctx, r, 1, order.UID)
		if err != nil {
			return err
		}
		if saved.Price != 521 || saved.OrderID != "ext-2" {
			t.Errorf("unexpected saved order: %+v", saved)
		}
		if saved.OutbidCount != 1 {
			t.Errorf("outbid count: got %d, want 1", saved.OutbidCount)
		}
		if saved.PendingReplacement {
			t.Errorf("pending replacement flag must be cleared")
		}

		events, err := datastore.AccountEvents(ctx, r, 1)
		if err != nil {
			return err
		}
		if len(events) != 1 {
			t.Fatalf("events: got %d, want 1", len(events))
		}
		if e := events[0]; e.OldPrice != 500 || e.NewPrice != 521 || e.CompetitorPrice != 520 {
			t.Errorf("unexpected event: %+v", e)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
