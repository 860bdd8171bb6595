// Copyright (c) 2025 BVK Chaitanya

// Package datastore defines the key-value layout for accounts, buy orders and
// outbid events and implements typed accessors over it.
//
// Keyspace:
//
//	/accounts/<account-id>
//	/orders/<account-id>/<order-uid>
//	/events/<account-id>/<event-id>
package datastore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/bvkgo/kv"
	"github.com/google/uuid"

	"github.com/bvk/floatbid/gobs"
	"github.com/bvk/floatbid/kvutil"
)

const (
	AccountsKeyspace = "/accounts"
	OrdersKeyspace   = "/orders"
	EventsKeyspace   = "/events"
)

func AccountKey(id int64) string {
	return path.Join(AccountsKeyspace, fmt.Sprintf("%012d", id))
}

func OrderKey(accountID int64, uid string) string {
	return path.Join(OrdersKeyspace, fmt.Sprintf("%012d", accountID), uid)
}

func EventKey(accountID int64, id string) string {
	return path.Join(EventsKeyspace, fmt.Sprintf("%012d", accountID), id)
}

func LoadAccount(ctx context.Context, r kv.Reader, id int64) (*gobs.Account, error) {
	return kvutil.Get[gobs.Account](ctx, r, AccountKey(id))
}

func SaveAccount(ctx context.Context, rw kv.ReadWriter, a *gobs.Account) error {
	if a.ID == 0 {
		return fmt.Errorf("account id cannot be zero")
	}
	return kvutil.Set(ctx, rw, AccountKey(a.ID), a)
}

// LoadAccounts returns all accounts in ascending id order.
func LoadAccounts(ctx context.Context, r kv.Reader) ([]*gobs.Account, error) {
	var accounts []*gobs.Account
	begin, end := kvutil.PathRange(AccountsKeyspace)
	err := kvutil.Ascend(ctx, r, begin, end, func(ctx context.Context, r kv.Reader, key string, a *gobs.Account) error {
		accounts = append(accounts, a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// EnabledAccounts returns accounts the polling scheduler should process.
func EnabledAccounts(ctx context.Context, r kv.Reader) ([]*gobs.Account, error) {
	accounts, err := LoadAccounts(ctx, r)
	if err != nil {
		return nil, err
	}
	var enabled []*gobs.Account
	for _, a := range accounts {
		if a.Enabled {
			enabled = append(enabled, a)
		}
	}
	return enabled, nil
}

func LoadOrder(ctx context.Context, r kv.Reader, accountID int64, uid string) (*gobs.BuyOrder, error) {
	return kvutil.Get[gobs.BuyOrder](ctx, r, OrderKey(accountID, uid))
}

func SaveOrder(ctx context.Context, rw kv.ReadWriter, order *gobs.BuyOrder) error {
	if len(order.UID) == 0 {
		return fmt.Errorf("order uid cannot be empty")
	}
	if order.AccountID == 0 {
		return fmt.Errorf("order account id cannot be zero")
	}
	order.UpdatedAt = time.Now()
	return kvutil.Set(ctx, rw, OrderKey(order.AccountID, order.UID), order)
}

// AccountOrders returns all orders of one account.
func AccountOrders(ctx context.Context, r kv.Reader, accountID int64) ([]*gobs.BuyOrder, error) {
	var orders []*gobs.BuyOrder
	begin, end := kvutil.PathRange(path.Join(OrdersKeyspace, fmt.Sprintf("%012d", accountID)))
	err := kvutil.Ascend(ctx, r, begin, end, func(ctx context.Context, r kv.Reader, key string, v *gobs.BuyOrder) error {
		orders = append(orders, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ActiveOrders returns the orders of one account the checker loop should
// reconcile.
func ActiveOrders(ctx context.Context, r kv.Reader, accountID int64) ([]*gobs.BuyOrder, error) {
	orders, err := AccountOrders(ctx, r, accountID)
	if err != nil {
		return nil, err
	}
	var active []*gobs.BuyOrder
	for _, v := range orders {
		if v.Active {
			active = append(active, v)
		}
	}
	return active, nil
}

// FindOrderByOrderID locates an account's order by its marketplace-side id.
// Returns os.ErrNotExist when no order carries the given id.
func FindOrderByOrderID(ctx context.Context, r kv.Reader, accountID int64, orderID string) (*gobs.BuyOrder, error) {
	orders, err := AccountOrders(ctx, r, accountID)
	if err != nil {
		return nil, err
	}
	for _, v := range orders {
		if v.OrderID == orderID {
			return v, nil
		}
	}
	return nil, os.ErrNotExist
}

// AddOrder persists a new buy order. When another order of the account
// already tracks the same marketplace-side id, that order is updated in place
// instead of inserting a duplicate, and its uid is returned.
func AddOrder(ctx context.Context, rw kv.ReadWriter, order *gobs.BuyOrder) (string, error) {
	if len(order.OrderID) != 0 {
		old, err := FindOrderByOrderID(ctx, rw, order.AccountID, order.OrderID)
		if err == nil {
			order.UID = old.UID
			order.CreatedAt = old.CreatedAt
			if err := SaveOrder(ctx, rw, order); err != nil {
				return "", err
			}
			return old.UID, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}
	if len(order.UID) == 0 {
		order.UID = uuid.NewString()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	if err := SaveOrder(ctx, rw, order); err != nil {
		return "", err
	}
	return order.UID, nil
}

// AppendEvent persists one outbid event under a fresh event id.
func AppendEvent(ctx context.Context, rw kv.ReadWriter, event *gobs.OutbidEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return kvutil.Set(ctx, rw, EventKey(event.AccountID, uuid.NewString()), event)
}

// AccountEvents returns the outbid events recorded for one account.
func AccountEvents(ctx context.Context, r kv.Reader, accountID int64) ([]*gobs.OutbidEvent, error) {
	var events []*gobs.OutbidEvent
	begin, end := kvutil.PathRange(path.Join(EventsKeyspace, fmt.Sprintf("%012d", accountID)))
	err := kvutil.Ascend(ctx, r, begin, end, func(ctx context.Context, r kv.Reader, key string, v *gobs.OutbidEvent) error {
		events = append(events, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}
