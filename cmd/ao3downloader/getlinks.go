package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mn3m0syn3/ao3downloader/internal/crawl"
)

// linksFileLayout names the default links file after the moment of the
// traversal, so repeated runs never clobber each other.
const linksFileLayout = "work links 2006-01-02 15-04-05"

// NewGetLinksCmd creates the get-links command.
func NewGetLinksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get-links <url>",
		Short: "List the work URLs reachable from a URL without downloading",
		Long: `Get-links walks the same pages the download command would, but
collects the work URLs instead of fetching artifacts. Use it to preview
what a large listing traversal would download.

By default the links are written to a timestamped text file in the
download directory.

Examples:
  # Save the works behind a listing, following series
  ao3downloader get-links --series "https://archiveofourown.org/tags/Example/works"

  # Print them instead
  ao3downloader get-links -o - "https://archiveofourown.org/series/789"`,
		Args: cobra.ExactArgs(1),
		RunE: runGetLinksCmd,
	}

	addCrawlFlags(cmd)
	cmd.Flags().StringP("output", "o", "",
		`Links file path (default a timestamped file in the download directory, "-" for stdout)`)

	return cmd
}

// runGetLinksCmd executes the get-links command.
func runGetLinksCmd(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := rt.login(ctx); err != nil {
		return err
	}

	links, err := crawl.NewTraverser(rt.client, rt.store, rt.ledger, rt.cfg).WorkLinks(ctx, args[0])
	if err != nil {
		return err
	}

	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if output == "-" {
		for _, link := range links {
			fmt.Fprintln(cmd.OutOrStdout(), link)
		}
		return nil
	}
	if output == "" {
		output = filepath.Join(rt.cfg.DownloadDir, time.Now().Format(linksFileLayout)+".txt")
	}

	data := strings.Join(links, "\n") + "\n"
	if err := os.WriteFile(output, []byte(data), 0o640); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d links to %s\n", len(links), output)
	return nil
}
