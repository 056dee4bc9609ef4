package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for ao3downloader.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ao3downloader",
		Short: "Bulk downloader for Archive of Our Own works",
		Long: `ao3downloader fetches works from the Archive of Our Own in bulk.

Point it at a work, series, or listing URL and it downloads every
reachable work in the formats you ask for, recording each outcome in an
append-only activity ledger. Interrupted listing traversals can resume
from the ledger's cursor, and a local folder of earlier downloads can be
scanned to fetch only the works that have grown since.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewDownloadCmd())
	cmd.AddCommand(NewGetLinksCmd())
	cmd.AddCommand(NewUpdateCmd())
	cmd.AddCommand(NewUpdateSeriesCmd())
	cmd.AddCommand(NewRedownloadCmd())
	cmd.AddCommand(NewPinboardCmd())
	cmd.AddCommand(NewReportCmd())
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
