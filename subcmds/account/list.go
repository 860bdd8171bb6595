// Copyright (c) 2025 BVK Chaitanya

package account

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
}

func (c *List) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("list", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return "list", fset, cli.CmdFunc(c.run)
}

func (c *List) Purpose() string {
	return "Prints the configured marketplace accounts"
}

func (c *List) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}

	req := &api.ListAccountsRequest{}
	resp, err := subcmds.Post[api.ListAccountsResponse](ctx, &c.ClientFlags, "/api/account/list", req)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tName\tEnabled\tStatus\tLast Checked\n")
	for _, a := range resp.Accounts {
		checked := ""
		if !a.LastCheckedAt.IsZero() {
			checked = a.LastCheckedAt.Format("2006-01-02 15:04:05")
		}
		status := a.Status
		if len(a.ErrorMessage) != 0 {
			status = fmt.Sprintf("%s (%s)", a.Status, a.ErrorMessage)
		}
		fmt.Fprintf(tw, "%d\t%s\t%t\t%s\t%s\n", a.ID, a.Name, a.Enabled, status, checked)
	}
	return tw.Flush()
}
