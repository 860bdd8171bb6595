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

type Add struct {
	subcmds.ClientFlags

	id      int64
	name    string
	apiKey  string
	proxy   string
	enabled bool
}

func (c *Add) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("add", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.Int64Var(&c.id, "id", 0, "unique id for the marketplace account")
	fset.StringVar(&c.name, "name", "", "display name for the account")
	fset.StringVar(&c.apiKey, "api-key", "", "marketplace api key for the account")
	fset.StringVar(&c.proxy, "proxy", "", "optional proxy url for the account requests")
	fset.BoolVar(&c.enabled, "enabled", true, "when false, account is not polled")
	return "add", fset, cli.CmdFunc(c.run)
}

func (c *Add) Purpose() string {
	return "Adds or updates a marketplace account"
}

func (c *Add) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}
	if c.id == 0 {
		return fmt.Errorf("account id cannot be zero")
	}
	if len(c.apiKey) == 0 {
		return fmt.Errorf("account api key cannot be empty")
	}

	req := &api.AddAccountRequest{
		Account: api.Account{
			ID:      c.id,
			Name:    c.name,
			APIKey:  c.apiKey,
			Proxy:   c.proxy,
			Enabled: c.enabled,
		},
	}
	resp, err := subcmds.Post[api.AddAccountResponse](ctx, &c.ClientFlags, "/api/account/add", req)
	if err != nil {
		return err
	}
	fmt.Printf("%d\n", resp.ID)
	return nil
}
