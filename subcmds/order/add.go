// Copyright (c) 2025 BVK Chaitanya

package order

import (
	"context"
	"flag"
	"fmt"

	"github.com/visvasity/cli"

	"github.com/bvk/floatbid/api"
	"github.com/bvk/floatbid/gobs"
	"github.com/bvk/floatbid/subcmds"
)

type Add struct {
	subcmds.ClientFlags

	accountID int64
	orderID   string

	name       string
	defIndex   int
	paintIndex int
	minWear    float64
	maxWear    float64

	price    int64
	quantity int
	maxPrice int64
}

func (c *Add) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("add", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.Int64Var(&c.accountID, "account-id", 0, "id of the owning marketplace account")
	fset.StringVar(&c.orderID, "order-id", "", "marketplace id of the existing buy order")
	fset.StringVar(&c.name, "name", "", "market hash name of the item")
	fset.IntVar(&c.defIndex, "def-index", 0, "item definition index for ranged orders")
	fset.IntVar(&c.paintIndex, "paint-index", 0, "paint index for ranged orders")
	fset.Float64Var(&c.minWear, "min-wear", -1, "inclusive wear lower bound for ranged orders")
	fset.Float64Var(&c.maxWear, "max-wear", -1, "exclusive wear upper bound for ranged orders")
	fset.Int64Var(&c.price, "price", 0, "current order price in cents")
	fset.IntVar(&c.quantity, "quantity", 1, "number of items wanted")
	fset.Int64Var(&c.maxPrice, "max-price", 0, "optional price cap in cents; zero means no cap")
	return "add", fset, cli.CmdFunc(c.run)
}

func (c *Add) Purpose() string {
	return "Registers an existing buy order for tracking"
}

func (c *Add) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}
	if c.accountID == 0 {
		return fmt.Errorf("account id cannot be zero")
	}
	if len(c.orderID) == 0 {
		return fmt.Errorf("order id cannot be empty")
	}
	if c.price <= 0 {
		return fmt.Errorf("order price must be positive")
	}

	kind := gobs.OrderKindPlain
	if c.defIndex != 0 {
		kind = gobs.OrderKindRanged
		if c.paintIndex == 0 {
			return fmt.Errorf("ranged orders need the paint-index")
		}
	} else {
		if c.paintIndex != 0 || c.minWear >= 0 || c.maxWear >= 0 {
			return fmt.Errorf("paint-index and wear bounds need the def-index")
		}
		if len(c.name) == 0 {
			return fmt.Errorf("plain orders need the item name")
		}
	}

	order := api.Order{
		AccountID:  c.accountID,
		OrderID:    c.orderID,
		Kind:       kind,
		Name:       c.name,
		DefIndex:   c.defIndex,
		PaintIndex: c.paintIndex,
		Price:      c.price,
		Quantity:   c.quantity,
		MaxPrice:   c.maxPrice,
	}
	if c.minWear >= 0 {
		order.WearMin = &c.minWear
	}
	if c.maxWear >= 0 {
		order.WearMax = &c.maxWear
	}

	req := &api.AddOrderRequest{Order: order}
	resp, err := subcmds.Post[api.AddOrderResponse](ctx, &c.ClientFlags, "/api/order/add", req)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", resp.UID)
	return nil
}
