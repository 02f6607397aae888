package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile  string
	logLevel    string
	logFormat   string
	databaseURL string
}

func newRootCmd() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:           "salesetl",
		Short:         "Load the sales workbook into the relational store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "Config file (default: ./config.toml if present)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format: console, json")
	pf.StringVar(&opts.databaseURL, "database-url", "", "Destination URL (postgres://... or sqlite://path), overrides SALESETL_DATABASE_URL")

	cmd.AddCommand(newLoadCmd(&opts))
	cmd.AddCommand(newMigrateCmd(&opts))
	cmd.AddCommand(newHistoryCmd(&opts))
	return cmd
}

// Execute runs the CLI and exits with the code of the outcome
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, "Error:", err.Error())
		os.Exit(code)
	}
}
