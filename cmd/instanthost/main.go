package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/instanthost/internal/client/cli"
)

// buildVersion is set with -ldflags "-X main.buildVersion=...".
var buildVersion = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli.Version = buildVersion
	app := cli.NewApp(os.Stdin, os.Stdout, os.Stderr, os.LookupEnv)
	code := app.Execute(ctx, os.Args[1:])

	stop()
	os.Exit(code)
}
