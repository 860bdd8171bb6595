// Copyright (c) 2025 BVK Chaitanya

package account

import (
	"context"
	"flag"
	"fmt"

	"github.com/visvasity/cli"

	"github.com/bvk/floatbid/api"
	"github.com/bvk/floatbid/subcmds"
)

type Enable struct {
	subcmds.ClientFlags

	id      int64
	disable bool
}

func (c *Enable) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("enable", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.Int64Var(&c.id, "id", 0, "id of the marketplace account")
	fset.BoolVar(&c.disable, "disable", false, "when true, disables the account instead")
	return "enable", fset, cli.CmdFunc(c.run)
}

func (c *Enable) Purpose() string {
	return "Enables or disables polling for an account"
}

func (c *Enable) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}
	if c.id == 0 {
		return fmt.Errorf("account id cannot be zero")
	}

	req := &api.SetAccountEnabledRequest{
		ID:      c.id,
		Enabled: !c.disable,
	}
	resp, err := subcmds.Post[api.SetAccountEnabledResponse](ctx, &c.ClientFlags, "/api/account/enable", req)
	if err != nil {
		return err
	}
	fmt.Printf("enabled: %t\n", resp.Enabled)
	return nil
}
