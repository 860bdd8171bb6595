// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"

	"github.com/visvasity/cli"

	"github.com/bvk/floatbid/api"
)

type Start struct {
	ClientFlags
}

func (c *Start) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("start", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return "start", fset, cli.CmdFunc(c.run)
}

func (c *Start) Purpose() string {
	return "Starts polling the enabled accounts"
}

func (c *Start) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}
	req := &api.StartRequest{}
	resp, err := Post[api.StartResponse](ctx, &c.ClientFlags, "/api/bot/start", req)
	if err != nil {
		return err
	}
	fmt.Printf("running: %t\n", resp.Running)
	return nil
}
