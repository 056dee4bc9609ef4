package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Mn3m0syn3/ao3downloader/internal/config"
	"github.com/Mn3m0syn3/ao3downloader/internal/logbook"
	"github.com/Mn3m0syn3/ao3downloader/internal/report"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize the activity ledger as Markdown",
		Long: `Report reads the activity ledger and renders a Markdown summary:
download totals, the links that failed with their first error, and the
cursor an interrupted listing traversal can resume from. It never
touches the network.

Examples:
  # Print the summary
  ao3downloader report

  # Write it to a file
  ao3downloader report -o activity.md`,
		Args: cobra.NoArgs,
		RunE: runReportCmd,
	}

	cmd.Flags().String("log-file", config.DefaultLogFile(),
		"Path of the activity ledger")
	cmd.Flags().StringP("output", "o", "",
		"Write the report to a file instead of stdout")

	return cmd
}

// runReportCmd executes the report command.
func runReportCmd(cmd *cobra.Command, _ []string) error {
	logFile, err := cmd.Flags().GetString("log-file")
	if err != nil {
		return err
	}
	events, err := logbook.Load(logFile)
	if err != nil {
		return fmt.Errorf("reading activity ledger: %w", err)
	}

	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if output == "" {
		return report.NewActivityWriter(cmd.OutOrStdout()).Write(events)
	}

	f, err := os.Create(output) //nolint:gosec // user-chosen report path
	if err != nil {
		return err
	}
	if err := report.NewActivityWriter(f).Write(events); err != nil {
		f.Close() //nolint:errcheck,gosec // write error takes precedence
		return err
	}
	return f.Close()
}
