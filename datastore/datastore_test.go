// Copyright (c) 2025 BVK Chaitanya

package datastore

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvmemdb"

	"github.com/bvk/floatbid/gobs"
)

func TestAccountRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	accounts := []*gobs.Account{
		{ID: 1, Name: "main", APIKey: "k1", Enabled: true, Status: gobs.AccountIdle},
		{ID: 2, Name: "alt", APIKey: "k2", Enabled: false, Status: gobs.AccountIdle},
	}
	err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		for _, a := range accounts {
			if err := SaveAccount(ctx, rw, a); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	err = kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		all, err := LoadAccounts(ctx, r)
		if err != nil {
			return err
		}
		if len(all) != 2 {
			t.Errorf("accounts: got %d, want 2", len(all))
		}
		enabled, err := EnabledAccounts(ctx, r)
		if err != nil {
			return err
		}
		if len(enabled) != 1 || enabled[0].ID != 1 {
			t.Errorf("enabled accounts: got %v, want just account 1", enabled)
		}
		a, err := LoadAccount(ctx, r, 2)
		if err != nil {
			return err
		}
		if a.Name != "alt" || a.APIKey != "k2" {
			t.Errorf("unexpected account 2: %+v", a)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestAddOrderDeduplicatesByOrderID(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	var firstUID string
	err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		uid, err := AddOrder(ctx, rw, &gobs.BuyOrder{
			AccountID: 1,
			OrderID:   "ext-1",
			Kind:      gobs.OrderKindPlain,
			Name:      "AK-47 | Redline (Field-Tested)",
			Price:     500,
			Quantity:  1,
			Active:    true,
		})
		firstUID = uid
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	// Adding the same marketplace id again must update in place.
	err = kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		uid, err := AddOrder(ctx, rw, &gobs.BuyOrder{
			AccountID: 1,
			OrderID:   "ext-1",
			Kind:      gobs.OrderKindPlain,
			Name:      "AK-47 | Redline (Field-Tested)",
			Price:     600,
			Quantity:  1,
			Active:    true,
		})
		if err != nil {
			return err
		}
		if uid != firstUID {
			t.Errorf("duplicate add must reuse uid: got %s, want %s", uid, firstUID)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	err = kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		orders, err := AccountOrders(ctx, r, 1)
		if err != nil {
			return err
		}
		if len(orders) != 1 {
			t.Fatalf("orders: got %d, want 1", len(orders))
		}
		if orders[0].Price != 600 {
			t.Errorf("order price: got %d, want 600", orders[0].Price)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestActiveOrdersAndLookup(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		orders := []*gobs.BuyOrder{
			{AccountID: 1, OrderID: "ext-1", Kind: gobs.OrderKindPlain, Name: "a", Active: true},
			{AccountID: 1, OrderID: "ext-2", Kind: gobs.OrderKindPlain, Name: "b", Active: false},
			{AccountID: 2, OrderID: "ext-3", Kind: gobs.OrderKindPlain, Name: "c", Active: true},
		}
		for _, v := range orders {
			if _, err := AddOrder(ctx, rw, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	err = kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		active, err := ActiveOrders(ctx, r, 1)
		if err != nil {
			return err
		}
		if len(active) != 1 || active[0].OrderID != "ext-1" {
			t.Errorf("active orders of account 1: got %v", active)
		}
		if _, err := FindOrderByOrderID(ctx, r, 1, "ext-2"); err != nil {
			t.Errorf("could not find inactive order: %v", err)
		}
		if _, err := FindOrderByOrderID(ctx, r, 1, "ext-3"); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("cross-account lookup: got %v, want %v", err, os.ErrNotExist)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestAppendEvent(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		for i := 0; i < 3; i++ {
			event := &gobs.OutbidEvent{
				AccountID: 1,
				OrderUID:  "uid-1",
				OldPrice:  500,
				NewPrice:  int64(521 + i),
			}
			if err := AppendEvent(ctx, rw, event); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	err = kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		events, err := AccountEvents(ctx, r, 1)
		if err != nil {
			return err
		}
		if len(events) != 3 {
			t.Errorf("events: got %d, want 3", len(events))
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
