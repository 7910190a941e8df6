package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := cli.NewApp()
	app.Name = "jobmarket"
	app.Usage = "Replay and inspect jobs of the decentralized job marketplace"
	app.Commands = []cli.Command{
		replayCommand(ctx),
		dumpCommand(ctx),
		pubKeyCommand(ctx),
		cidCommand(),
		hashCommand(),
		publishCommand(ctx),
		fetchCommand(ctx),
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
