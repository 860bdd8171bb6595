// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"

	"github.com/visvasity/cli"

	"github.com/bvk/floatbid/api"
)

type Stop struct {
	ClientFlags
}

func (c *Stop) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("stop", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return "stop", fset, cli.CmdFunc(c.run)
}

func (c *Stop) Purpose() string {
	return "Stops polling the accounts"
}

func (c *Stop) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}
	req := &api.StopRequest{}
	resp, err := Post[api.StopResponse](ctx, &c.ClientFlags, "/api/bot/stop", req)
	if err != nil {
		return err
	}
	fmt.Printf("running: %t\n", resp.Running)
	return nil
}
