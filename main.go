// Copyright (c) 2025 BVK Chaitanya

package main

import (
	"context"
	"log"
	"os"

	"github.com/visvasity/cli"

	"github.com/bvk/floatbid/subcmds"
	"github.com/bvk/floatbid/subcmds/account"
	"github.com/bvk/floatbid/subcmds/event"
	"github.com/bvk/floatbid/subcmds/order"
)

func main() {
	accountCmds := []cli.Command{
		new(account.Add),
		new(account.List),
		new(account.Enable),
	}

	orderCmds := []cli.Command{
		new(order.Add),
		new(order.List),
	}

	eventCmds := []cli.Command{
		new(event.List),
	}

	cmds := []cli.Command{
		new(subcmds.Run),
		new(subcmds.Status),
		new(subcmds.Start),
		new(subcmds.Stop),
		cli.NewGroup("account", "Manage marketplace accounts", accountCmds...),
		cli.NewGroup("order", "Manage tracked buy orders", orderCmds...),
		cli.NewGroup("event", "View recorded re-price events", eventCmds...),
	}
	if err := cli.Run(context.Background(), cmds, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
