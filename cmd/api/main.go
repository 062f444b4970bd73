package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	serve := newServeCommand()
	root := &cobra.Command{
		Use:           "api",
		Short:         "Trip Wallet ledger API",
		SilenceUsage:  true,
		SilenceErrors: true,
		// Serving is the default so the container entrypoint needs no arguments.
		RunE: serve.RunE,
	}
	root.AddCommand(serve, newMigrateCommand())
	return root
}
