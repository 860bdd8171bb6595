// Copyright (c) 2025 BVK Chaitanya

// Package gobs holds gob-encoded data types persisted in the key-value
// database. Fields are exported for the gob encoder; types here should only
// be extended in backward compatible ways.
package gobs

import "time"

// Account statuses reported on the dashboard. The checker loop updates the
// status after every pass over the account's orders.
const (
	AccountIdle   = "idle"
	AccountOnline = "online"
	AccountError  = "error"
)

type Account struct {
	ID int64

	Name string

	// APIKey authorizes marketplace requests on behalf of this account.
	APIKey string

	// Proxy, when non-empty, routes this account's marketplace traffic
	// through the given proxy URL.
	Proxy string

	// Enabled accounts are picked up by the polling scheduler.
	Enabled bool

	Status       string
	ErrorMessage string

	LastCheckedAt time.Time
	CreatedAt     time.Time
}
