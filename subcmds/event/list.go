// Copyright (c) 2025 BVK Chaitanya

package event

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
	return "Prints the recorded re-price events of an account"
}

func (c *List) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}
	if c.accountID == 0 {
		return fmt.Errorf("account id cannot be zero")
	}

	req := &api.ListEventsRequest{AccountID: c.accountID}
	resp, err := subcmds.Post[api.ListEventsResponse](ctx, &c.ClientFlags, "/api/event/list", req)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "Time\tItem\tOrder ID\tOld Price\tCompetitor\tNew Price\n")
	for _, v := range resp.Events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n", v.Timestamp.Format("2006-01-02 15:04:05"), v.Name, v.OrderID, v.OldPrice, v.CompetitorPrice, v.NewPrice)
	}
	return tw.Flush()
}
