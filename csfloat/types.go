// Copyright (c) 2025 BVK Chaitanya

package csfloat

import "time"

// ListingItem is the item section of a sell listing.
type ListingItem struct {
	MarketHashName string  `json:"market_hash_name"`
	DefIndex       int     `json:"def_index"`
	PaintIndex     int     `json:"paint_index"`
	FloatValue     float64 `json:"float_value"`
}

// Listing is an active sell-side listing.
type Listing struct {
	ID        string      `json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	Type      string      `json:"type"`
	Price     int64       `json:"price"`
	State     string      `json:"state"`
	Item      ListingItem `json:"item"`
}

// Bid is a buy-side standing order attached to a listing. Plain bids carry
// the market hash name; ranged bids carry a filter expression instead.
type Bid struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Price          int64     `json:"price"`
	Quantity       int       `json:"qty"`
	MarketHashName string    `json:"market_hash_name"`
	Expression     string    `json:"expression"`
}

// Sale is one historical sale of an item.
type Sale struct {
	Price  int64     `json:"price"`
	Wear   float64   `json:"float_value"`
	SoldAt time.Time `json:"sold_at"`
}

type ListListingsResponse struct {
	Listings []*Listing `json:"data"`
}

// RuleValue wraps a rule constant the way the marketplace encodes it.
type RuleValue struct {
	Constant string `json:"constant"`
}

// Rule is one clause of a buy-order filter expression.
type Rule struct {
	Field    string    `json:"field"`
	Operator string    `json:"operator"`
	Value    RuleValue `json:"value"`
}

// Expression is the structured filter attached to a ranged buy order.
type Expression struct {
	Condition string `json:"condition"`
	Rules     []Rule `json:"rules"`
}

type CreateBuyOrderRequest struct {
	MarketHashName string      `json:"market_hash_name,omitempty"`
	Expression     *Expression `json:"expression,omitempty"`
	MaxPrice       int64       `json:"max_price"`
	Quantity       int         `json:"quantity"`
}

type CreateBuyOrderResponse struct {
	ID string `json:"id"`
}
