package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Mn3m0syn3/ao3downloader/internal/crawl"
	"github.com/Mn3m0syn3/ao3downloader/internal/logbook"
)

// NewDownloadCmd creates the download command.
func NewDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download [url]",
		Short: "Download works from a work, series, or listing URL",
		Long: `Download fetches every work reachable from the given URL.

A work URL downloads that one work. A series URL downloads each member
work. Any other archive URL is treated as a listing and traversed page
by page until a page yields nothing new or the page cap is reached.

Examples:
  # Download one work as EPUB
  ao3downloader download https://archiveofourown.org/works/12345

  # Walk a tag listing, following series, fetching two formats
  ao3downloader download --series -f EPUB,PDF "https://archiveofourown.org/tags/Example/works"

  # Continue the traversal a previous run was interrupted in
  ao3downloader download --resume`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDownloadCmd,
	}

	addCrawlFlags(cmd)
	cmd.Flags().Bool("resume", false,
		"Continue the last interrupted listing traversal from the ledger's cursor")

	return cmd
}

// runDownloadCmd executes the download command.
func runDownloadCmd(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}

	var link string
	if len(args) == 1 {
		link = args[0]
	}

	resume, err := cmd.Flags().GetBool("resume")
	if err != nil {
		return err
	}
	if resume {
		events, err := logbook.Load(rt.cfg.LogFile)
		if err != nil {
			return err
		}
		cursor, ok := logbook.LatestStart(events)
		if !ok {
			return errors.New("the ledger holds no resume cursor")
		}
		link = cursor
		slog.Info("resuming listing traversal", "url", link)
	}
	if link == "" {
		return errors.New("a starting URL is required unless --resume is set")
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := rt.login(ctx); err != nil {
		return err
	}

	crawl.NewTraverser(rt.client, rt.store, rt.ledger, rt.cfg).Download(ctx, link)

	rt.remember(cmd)
	return nil
}
