// Copyright (c) 2025 BVK Chaitanya

package gobs

import "time"

// OutbidEvent records one completed re-price action. Events are append-only;
// they are never updated or deleted.
type OutbidEvent struct {
	AccountID int64

	OrderUID string
	OrderID  string

	Name string

	OldPrice        int64
	NewPrice        int64
	CompetitorPrice int64

	Timestamp time.Time
}
