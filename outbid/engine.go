// Copyright (c) 2025 BVK Chaitanya

// Package outbid implements the re-pricing decision logic. Decisions are pure
// functions over an order and the competitor state; the only side effect is
// RecordOutbid, which persists a completed re-price in one transaction.
package outbid

import (
	"context"
	"fmt"
	"time"

	"github.com/bvkgo/kv"
	"github.com/shopspring/decimal"

	"github.com/bvk/floatbid/datastore"
	"github.com/bvk/floatbid/gobs"
)

type Options struct {
	// Step is the minor-currency increment added over the competitor's price.
	Step int64

	// MaxOutbids caps how many times one order may be re-priced.
	MaxOutbids int

	// CeilingMultiplier and CeilingPremium derive the price ceiling from the
	// cheapest sell price: the ceiling is the tighter of price*multiplier and
	// price+premium. The multiplier must stay above one for the ceiling to
	// leave room over the sell price.
	CeilingMultiplier decimal.Decimal
	CeilingPremium    int64
}

func (v *Options) setDefaults() {
	if v.Step == 0 {
		v.Step = 1
	}
	if v.MaxOutbids == 0 {
		v.MaxOutbids = 10
	}
	if v.CeilingMultiplier.IsZero() {
		v.CeilingMultiplier = decimal.NewFromFloat(1.2)
	}
	if v.CeilingPremium == 0 {
		v.CeilingPremium = 500
	}
}

func (v *Options) Check() error {
	if v.Step < 0 {
		return fmt.Errorf("outbid step cannot be negative")
	}
	if v.CeilingMultiplier.LessThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("ceiling multiplier must be above one")
	}
	if v.CeilingPremium < 0 {
		return fmt.Errorf("ceiling premium cannot be negative")
	}
	return nil
}

type Engine struct {
	opts Options
}

func New(opts *Options) (*Engine, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	return &Engine{opts: *opts}, nil
}

func (e *Engine) Step() int64 {
	return e.opts.Step
}

func (e *Engine) MaxOutbids() int {
	return e.opts.MaxOutbids
}

// Refusal reasons returned by ShouldOutbid. The checks run in this order and
// short-circuit on the first failing one.
const (
	ReasonAlreadyTop   = "already top"
	ReasonLimitReached = "limit reached"
	ReasonAboveMax     = "above max price"
	ReasonAboveCeiling = "above price ceiling"
)

// ShouldOutbid decides whether an order should be re-priced over a competitor
// bid. A zero ceiling means no ceiling could be computed and the ceiling
// check is skipped.
func (e *Engine) ShouldOutbid(order *gobs.BuyOrder, competitorPrice, ceiling int64) (bool, string) {
	if competitorPrice <= order.Price {
		return false, ReasonAlreadyTop
	}
	if order.OutbidCount >= e.opts.MaxOutbids {
		return false, ReasonLimitReached
	}
	candidate := e.NewPrice(competitorPrice)
	if order.MaxPrice != 0 && candidate > order.MaxPrice {
		return false, ReasonAboveMax
	}
	if ceiling != 0 && candidate > ceiling {
		return false, ReasonAboveCeiling
	}
	return true, ""
}

// NewPrice returns the price that beats a competitor bid by one step.
func (e *Engine) NewPrice(competitorPrice int64) int64 {
	return competitorPrice + e.opts.Step
}

// PriceCeiling bounds how far a price war may be chased: the tighter of
// lowestSellPrice*multiplier and lowestSellPrice+premium. Bidding above this
// would cost more than buying the item outright plus margin.
func (e *Engine) PriceCeiling(lowestSellPrice int64) int64 {
	scaled := decimal.NewFromInt(lowestSellPrice).Mul(e.opts.CeilingMultiplier).Round(0).IntPart()
	return min(scaled, lowestSellPrice+e.opts.CeilingPremium)
}

// RecordOutbid persists one completed re-price: the order takes the new
// marketplace id and price, its outbid counter goes up by one and an event is
// appended, all within the caller's transaction.
func RecordOutbid(ctx context.Context, rw kv.ReadWriter, order *gobs.BuyOrder, newOrderID string, competitorPrice, newPrice int64) error {
	event := &gobs.OutbidEvent{
		AccountID:       order.AccountID,
		OrderUID:        order.UID,
		OrderID:         newOrderID,
		Name:            order.Name,
		OldPrice:        order.Price,
		NewPrice:        newPrice,
		CompetitorPrice: competitorPrice,
		Timestamp:       time.Now(),
	}
	if err := datastore.AppendEvent(ctx, rw, event); err != nil {
		return err
	}

	order.OrderID = newOrderID
	order.Price = newPrice
	order.OutbidCount++
	order.PendingReplacement = false
	return datastore.SaveOrder(ctx, rw, order)
}
