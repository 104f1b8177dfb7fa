// catalogsync finds the products a source store sells that a reference
// store does not list yet.
//
// Usage:
//
//	catalogsync reconcile [--refresh] [--export DIR|FILE] [--kind productos|urls]
//	catalogsync fetch --catalog source|reference
//	catalogsync inspect --sku SKU [--catalog source|reference|novelty]
//	catalogsync serve
//	catalogsync migrate
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "catalogsync",
		Usage:   "Reconcile two store catalogs and list the products missing from the reference",
		Version: version,

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"CATALOGSYNC_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error); overrides LOG_LEVEL",
			},
		},

		Commands: []*cli.Command{
			reconcileCommand(),
			fetchCommand(),
			inspectCommand(),
			serveCommand(),
			migrateCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
