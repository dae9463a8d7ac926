package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	serve := serveCmd()
	root := &cobra.Command{
		Use:          "whispey-api",
		Short:        "Whispey dashboard API and auth tooling",
		SilenceUsage: true,
		// Running the binary without a subcommand serves, as deployments expect.
		RunE: serve.RunE,
	}
	root.AddCommand(serve)
	root.AddCommand(tokenCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
