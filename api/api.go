// Copyright (c) 2025 BVK Chaitanya

// Package api defines the request/response types of the control endpoints.
package api

import "time"

type StartRequest struct {
}

type StartResponse struct {
	Running bool
}

type StopRequest struct {
}

type StopResponse struct {
	Running bool
}

// Account is the external view of a marketplace account. The api key is
// accepted on writes but never included in reads.
type Account struct {
	ID int64

	Name string

	APIKey string `json:",omitempty"`

	Proxy string

	Enabled bool

	Status       string
	ErrorMessage string

	LastCheckedAt time.Time
}

type AddAccountRequest struct {
	Account Account
}

type AddAccountResponse struct {
	ID int64
}

type ListAccountsRequest struct {
}

type ListAccountsResponse struct {
	Accounts []*Account
}

type SetAccountEnabledRequest struct {
	ID      int64
	Enabled bool
}

type SetAccountEnabledResponse struct {
	Enabled bool
}

// Order is the external view of a tracked buy order.
type Order struct {
	UID string

	AccountID int64

	OrderID string

	Kind string

	Name string

	DefIndex   int
	PaintIndex int

	WearMin *float64
	WearMax *float64

	Price    int64
	Quantity int

	OutbidCount int
	MaxPrice    int64

	Active bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

type AddOrderRequest struct {
	Order Order
}

type AddOrderResponse struct {
	UID string
}

type ListOrdersRequest struct {
	AccountID int64
}

type ListOrdersResponse struct {
	Orders []*Order
}

// Event is one recorded re-price action.
type Event struct {
	AccountID int64

	OrderUID string
	OrderID  string

	Name string

	OldPrice        int64
	NewPrice        int64
	CompetitorPrice int64

	Timestamp time.Time
}

type ListEventsRequest struct {
	AccountID int64
}

type ListEventsResponse struct {
	Events []*Event
}
