// Copyright (c) 2025 BVK Chaitanya

// Package checker implements the per-order reconciliation workflow: find the
// top competing bid, consult the decision engine and replace the standing
// order at a higher price when justified.
package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/bvkgo/kv"
	"github.com/visvasity/topic"

	"github.com/bvk/floatbid/csfloat"
	"github.com/bvk/floatbid/ctxutil"
	"github.com/bvk/floatbid/datastore"
	"github.com/bvk/floatbid/gobs"
	"github.com/bvk/floatbid/item"
	"github.com/bvk/floatbid/outbid"
)

type Options struct {
	// MinOrderDelay/MaxOrderDelay bound the random pause between two orders
	// of the same account.
	MinOrderDelay time.Duration
	MaxOrderDelay time.Duration

	// SaleHistoryLimit is the number of recent sales averaged when no active
	// listing can supply a price-ceiling input.
	SaleHistoryLimit int
}

func (v *Options) setDefaults() {
	if v.MinOrderDelay == 0 {
		v.MinOrderDelay = 5 * time.Second
	}
	if v.MaxOrderDelay == 0 {
		v.MaxOrderDelay = 10 * time.Second
	}
	if v.SaleHistoryLimit == 0 {
		v.SaleHistoryLimit = 10
	}
}

type Checker struct {
	opts Options

	db kv.Database

	engine *outbid.Engine

	// outbidTopic receives one event per completed re-price. May be nil.
	outbidTopic *topic.Topic[*gobs.OutbidEvent]
}

func New(db kv.Database, engine *outbid.Engine, outbidTopic *topic.Topic[*gobs.OutbidEvent], opts *Options) *Checker {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	return &Checker{
		opts:        *opts,
		db:          db,
		engine:      engine,
		outbidTopic: outbidTopic,
	}
}

// CheckAccount reconciles all active orders of one account, in sequence with
// a randomized pause between orders. A failing order does not stop the
// remaining ones; the last failure is returned so the caller can flag the
// account.
func (c *Checker) CheckAccount(ctx context.Context, client *csfloat.Client, account *gobs.Account) error {
	var orders []*gobs.BuyOrder
	load := func(ctx context.Context, r kv.Reader) (err error) {
		orders, err = datastore.ActiveOrders(ctx, r, account.ID)
		return err
	}
	if err := kv.WithReader(ctx, c.db, load); err != nil {
		return fmt.Errorf("could not load active orders: %w", err)
	}

	var lastErr error
	for i, order := range orders {
		if i > 0 {
			if err := ctxutil.Sleep(ctx, c.orderDelay()); err != nil {
				return err
			}
		}
		if err := c.CheckOrder(ctx, client, order); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			slog.Error("could not reconcile buy order", "account", account.ID, "order", order.UID, "err", err)
			lastErr = err
		}
	}
	return lastErr
}

func (c *Checker) orderDelay() time.Duration {
	spread := c.opts.MaxOrderDelay - c.opts.MinOrderDelay
	if spread <= 0 {
		return c.opts.MinOrderDelay
	}
	return c.opts.MinOrderDelay + rand.N(spread)
}

// CheckOrder runs the reconciliation state machine for one order. Absence of
// any competitor means the order already stands on top and is not an error.
func (c *Checker) CheckOrder(ctx context.Context, client *csfloat.Client, order *gobs.BuyOrder) error {
	if order.PendingReplacement {
		return c.recoverOrder(ctx, client, order)
	}

	d := item.FromOrder(order)
	if err := d.Check(); err != nil {
		return fmt.Errorf("order targets an invalid item: %w", err)
	}

	listings, err := client.FindCompetingListings(ctx, &d)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("no active listings match the order; nothing to do", "order", order.UID, "item", d)
			return nil
		}
		return err
	}

	top, err := client.TopCompetingBid(ctx, &d, order.OrderID, listings)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("no competing bids; nothing to do", "order", order.UID, "item", d)
			return nil
		}
		return err
	}

	ceiling := c.priceCeiling(ctx, client, &d, listings)

	ok, reason := c.engine.ShouldOutbid(order, top.Price, ceiling)
	if !ok {
		slog.Debug("not outbidding", "order", order.UID, "item", d, "competitor", top.Price, "reason", reason)
		return nil
	}
	newPrice := c.engine.NewPrice(top.Price)

	return c.replaceOrder(ctx, client, order, top.Price, newPrice)
}

// priceCeiling derives the ceiling input, preferring the cheapest active
// listing and falling back to averaged sale history. Zero means no ceiling
// can be enforced this cycle.
func (c *Checker) priceCeiling(ctx context.Context, client *csfloat.Client, d *item.Descriptor, listings []*csfloat.Listing) int64 {
	var lowest int64
	for _, listing := range listings {
		if listing.Price > 0 && (lowest == 0 || listing.Price < lowest) {
			lowest = listing.Price
		}
	}
	if lowest == 0 {
		mean, err := client.MeanSalePrice(ctx, d, c.opts.SaleHistoryLimit)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) && !errors.Is(err, context.Canceled) {
				slog.Error("could not fetch sale history for the price ceiling (ignored)", "item", d, "err", err)
			}
			slog.Warn("no price-ceiling input available; outbidding without a ceiling", "item", d)
			return 0
		}
		lowest = mean
	}
	return c.engine.PriceCeiling(lowest)
}

// replaceOrder deletes the standing order and recreates it at the new price.
// The two marketplace calls are not transactional: the pending-replacement
// flag is persisted before the delete so that a crash or a failed create
// leaves a repairable record instead of an untracked order.
func (c *Checker) replaceOrder(ctx context.Context, client *csfloat.Client, order *gobs.BuyOrder, competitorPrice, newPrice int64) error {
	mark := func(ctx context.Context, rw kv.ReadWriter) error {
		order.PendingReplacement = true
		return datastore.SaveOrder(ctx, rw, order)
	}
	if err := kv.WithReadWriter(ctx, c.db, mark); err != nil {
		return fmt.Errorf("could not mark order for replacement: %w", err)
	}

	if err := client.DeleteBuyOrder(ctx, order.OrderID); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			// Nothing was deleted, so the standing order is intact. Clear
			// the flag and try again next cycle.
			unmark := func(ctx context.Context, rw kv.ReadWriter) error {
				order.PendingReplacement = false
				return datastore.SaveOrder(ctx, rw, order)
			}
			if derr := kv.WithReadWriter(ctx, c.db, unmark); derr != nil {
				slog.Error("could not clear pending replacement flag (ignored)", "order", order.UID, "err", derr)
			}
			return fmt.Errorf("could not delete old order %s: %w", order.OrderID, err)
		}
		slog.Warn("old order was already gone from the marketplace", "order", order.UID, "order-id", order.OrderID)
	}

	newID, err := c.createOrder(ctx, client, order, newPrice)
	if err != nil {
		// The old order is deleted and the new one does not exist; the
		// pending flag stays set and recoverOrder repairs it next cycle.
		return fmt.Errorf("could not create replacement order (will retry): %w", err)
	}

	oldPrice := order.Price
	record := func(ctx context.Context, rw kv.ReadWriter) error {
		return outbid.RecordOutbid(ctx, rw, order, newID, competitorPrice, newPrice)
	}
	if err := kv.WithReadWriter(ctx, c.db, record); err != nil {
		return fmt.Errorf("could not record outbid: %w", err)
	}

	slog.Info("outbid a competitor", "account", order.AccountID, "order", order.UID, "old-price", oldPrice, "new-price", newPrice, "competitor", competitorPrice)
	if c.outbidTopic != nil {
		c.outbidTopic.Send(&gobs.OutbidEvent{
			AccountID:       order.AccountID,
			OrderUID:        order.UID,
			OrderID:         newID,
			Name:            order.Name,
			OldPrice:        oldPrice,
			NewPrice:        newPrice,
			CompetitorPrice: competitorPrice,
			Timestamp:       time.Now(),
		})
	}
	return nil
}

// recoverOrder repairs an order left between delete and create by an earlier
// failure: the standing order is recreated at the last known price without
// touching the outbid counter.
func (c *Checker) recoverOrder(ctx context.Context, client *csfloat.Client, order *gobs.BuyOrder) error {
	slog.Warn("recovering order stuck in replacement", "account", order.AccountID, "order", order.UID)

	newID, err := c.createOrder(ctx, client, order, order.Price)
	if err != nil {
		return fmt.Errorf("could not recreate order (will retry): %w", err)
	}

	save := func(ctx context.Context, rw kv.ReadWriter) error {
		order.OrderID = newID
		order.PendingReplacement = false
		return datastore.SaveOrder(ctx, rw, order)
	}
	if err := kv.WithReadWriter(ctx, c.db, save); err != nil {
		return fmt.Errorf("could not save recovered order: %w", err)
	}
	slog.Info("recovered order", "account", order.AccountID, "order", order.UID, "order-id", newID)
	return nil
}

func (c *Checker) createOrder(ctx context.Context, client *csfloat.Client, order *gobs.BuyOrder, price int64) (string, error) {
	d := item.FromOrder(order)
	request := &csfloat.CreateBuyOrderRequest{
		MaxPrice: price,
		Quantity: order.Quantity,
	}
	if d.IsRanged() {
		request.Expression = csfloat.BuyOrderExpression(&d)
	} else {
		request.MarketHashName = order.Name
	}
	return client.CreateBuyOrder(ctx, request)
}
