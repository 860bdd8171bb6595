// Copyright (c) 2025 BVK Chaitanya

package csfloat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/bvk/floatbid/item"
)

// FindCompetingListings locates the active sell listings a buy order
// competes over, cheapest first. For ranged orders the search is relaxed in
// stages when the precise query finds nothing: first the wear filter is
// dropped, then the item-name search is tried. Relaxed results are logged
// because bid lookups through them are less precise.
func (c *Client) FindCompetingListings(ctx context.Context, d *item.Descriptor) ([]*Listing, error) {
	if !d.IsRanged() {
		listings, err := c.GetListings(ctx, c.searchValues(d, 1, false))
		if err != nil {
			return nil, err
		}
		if len(listings) == 0 {
			return nil, os.ErrNotExist
		}
		return listings, nil
	}

	listings, err := c.GetListings(ctx, c.searchValues(d, c.opts.ListingSearchLimit, true))
	if err != nil {
		return nil, err
	}
	if len(listings) != 0 {
		return listings, nil
	}

	if !d.Wear.IsUnbounded() {
		listings, err = c.GetListings(ctx, c.searchValues(d, c.opts.ListingSearchLimit, false))
		if err != nil {
			return nil, err
		}
		if len(listings) != 0 {
			slog.Warn("no listings matched the wear range; using wear-relaxed results", "item", d)
			return listings, nil
		}
	}

	if len(d.Name) != 0 {
		values := make(url.Values)
		values.Set("market_hash_name", d.Name)
		values.Set("sort_by", "lowest_price")
		values.Set("limit", strconv.Itoa(c.opts.ListingSearchLimit))
		listings, err = c.GetListings(ctx, values)
		if err != nil {
			return nil, err
		}
		if len(listings) != 0 {
			slog.Warn("no listings matched the item indexes; using name-search results", "item", d)
			return listings, nil
		}
	}
	return nil, os.ErrNotExist
}

func (c *Client) searchValues(d *item.Descriptor, limit int, withWear bool) url.Values {
	values := make(url.Values)
	if d.IsRanged() {
		values.Set("def_index", strconv.Itoa(d.DefIndex))
		values.Set("paint_index", strconv.Itoa(d.PaintIndex))
		if withWear {
			if d.Wear.Min != nil {
				values.Set("min_float", formatWear(*d.Wear.Min))
			}
			if d.Wear.Max != nil {
				values.Set("max_float", formatWear(*d.Wear.Max))
			}
		}
	} else {
		values.Set("market_hash_name", d.Name)
	}
	values.Set("sort_by", "lowest_price")
	values.Set("limit", strconv.Itoa(limit))
	return values
}

// TopCompetingBid returns the highest-priced competitor bid across the given
// listings, excluding the account's own order. Ranged lookups drop bids whose
// wear filter cannot match the order's wear range. Returns os.ErrNotExist
// when no competitor remains.
func (c *Client) TopCompetingBid(ctx context.Context, d *item.Descriptor, ownOrderID string, listings []*Listing) (*Bid, error) {
	limit := c.opts.BidFetchLimit
	if d.IsRanged() {
		limit = c.opts.RangedBidFetchLimit
	}

	seen := make(map[string]bool)
	var top *Bid
	for _, listing := range listings {
		bids, err := c.GetBids(ctx, listing.ID, limit)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		for _, bid := range bids {
			if bid.ID == ownOrderID {
				continue
			}
			// The same standing order shows up under every listing it
			// matches; count it once.
			key := fmt.Sprintf("%d:%s", bid.Price, bid.Expression)
			if len(bid.Expression) == 0 {
				key = fmt.Sprintf("%d:%s", bid.Price, bid.MarketHashName)
			}
			if seen[key] {
				continue
			}
			seen[key] = true

			if d.IsRanged() && !d.Wear.Overlaps(bidWearRange(bid)) {
				continue
			}
			if top == nil || bid.Price > top.Price {
				top = bid
			}
		}
	}
	if top == nil {
		return nil, os.ErrNotExist
	}
	return top, nil
}

// MeanSalePrice averages the most recent sales of an item, after dropping
// sales outside the order's wear range. Returns os.ErrNotExist when no usable
// sale remains.
func (c *Client) MeanSalePrice(ctx context.Context, d *item.Descriptor, limit int) (int64, error) {
	if len(d.Name) == 0 {
		return 0, os.ErrNotExist
	}
	sales, err := c.GetSales(ctx, d.Name, limit)
	if err != nil {
		return 0, err
	}

	sum := decimal.Zero
	count := 0
	for _, sale := range sales {
		if d.IsRanged() && !d.Wear.Contains(sale.Wear) {
			continue
		}
		sum = sum.Add(decimal.NewFromInt(sale.Price))
		count++
	}
	if count == 0 {
		return 0, os.ErrNotExist
	}
	mean := sum.Div(decimal.NewFromInt(int64(count))).Round(0)
	return mean.IntPart(), nil
}
