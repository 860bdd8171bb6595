// Copyright (c) 2025 BVK Chaitanya

package gobs

import "time"

// Buy order kinds. Plain orders bid on an exact item name. Ranged orders bid
// on a weapon/paint pair restricted to a wear-float sub-range.
const (
	OrderKindPlain  = "plain"
	OrderKindRanged = "ranged"
)

type BuyOrder struct {
	// UID is the local identifier; it stays stable across re-price
	// replacements while OrderID changes.
	UID string

	AccountID int64

	// OrderID is the marketplace-side identifier of the currently standing
	// order. No two active orders of one account share the same OrderID.
	OrderID string

	Kind string

	// Name is the market hash name of the target item.
	Name string

	// DefIndex/PaintIndex identify the weapon/paint pair for ranged orders.
	DefIndex   int
	PaintIndex int

	// WearMin/WearMax bound the wear-float range for ranged orders. A nil
	// bound is unbounded on that side.
	WearMin *float64
	WearMax *float64

	Price    int64 // minor currency units (cents)
	Quantity int

	OutbidCount int

	// MaxPrice, when non-zero, caps how high this order may be re-priced.
	MaxPrice int64

	Active bool

	// PendingReplacement is set after the standing order was deleted but
	// before its replacement was confirmed. A later checker pass repairs
	// orders left in this state.
	PendingReplacement bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
