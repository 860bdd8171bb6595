// Copyright (c) 2025 BVK Chaitanya

package order

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/visvasity/cli"

	"github.com/bvk/floatbid/api"
	"github.com/bvk/floatbid/subcmds"
)

type List struct {
	subcmds.ClientFlags

	accountID int64
}

func (c *List) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("list", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.Int64Var(&c.accountID, "account-id", 0, "id of the marketplace account")
	return "list", fset, cli.CmdFunc(c.run)
}

func (c *List) Purpose() string {
	return "Prints the tracked buy orders of an account"
}

func (c *List) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}
	if c.accountID == 0 {
		return fmt.Errorf("account id cannot be zero")
	}

	req := &api.ListOrdersRequest{AccountID: c.accountID}
	resp, err := subcmds.Post[api.ListOrdersResponse](ctx, &c.ClientFlags, "/api/order/list", req)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "UID\tOrder ID\tKind\tItem\tPrice\tOutbids\tMax Price\tActive\n")
	for _, v := range resp.Orders {
		item := v.Name
		if len(item) == 0 {
			item = fmt.Sprintf("def %d paint %d", v.DefIndex, v.PaintIndex)
		}
		maxPrice := ""
		if v.MaxPrice > 0 {
			maxPrice = fmt.Sprintf("%d", v.MaxPrice)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%t\n", v.UID, v.OrderID, v.Kind, item, v.Price, v.OutbidCount, maxPrice, v.Active)
	}
	return tw.Flush()
}
