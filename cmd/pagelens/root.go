package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for pagelens.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pagelens",
		Short: "Structured extraction of web pages through rotating identities",
		Long: `pagelens fetches a page, extracts its structure and text statistics, and
optionally follows up to five links per page for up to three levels.

Requests go out through a pool of proxies and user agents. A failed fetch
is retried with the next proxy and user agent, backing off between attempts.
Fetches can also be delegated to a pagelens relay started with 'pagelens serve'.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .pagelens.yaml in current directory or XDG config dir)")

	cmd.AddCommand(NewScrapeCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
