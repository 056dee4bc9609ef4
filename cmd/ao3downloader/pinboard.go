package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mn3m0syn3/ao3downloader/internal/crawl"
	"github.com/Mn3m0syn3/ao3downloader/internal/logbook"
	"github.com/Mn3m0syn3/ao3downloader/internal/pinboard"
)

// fromLayout is the date format of the --from flag.
const fromLayout = "2006-01-02"

// NewPinboardCmd creates the pinboard command.
func NewPinboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pinboard",
		Short: "Download the archive works bookmarked on Pinboard",
		Long: `Pinboard fetches your Pinboard bookmarks and downloads every archive
work and series among them. Bookmarks already downloaded in the
requested formats are skipped, as are links the ledger records as
previously failed.

The API token comes from --token or the settings file.

Examples:
  # Everything bookmarked since new year, skipping to-read entries
  ao3downloader pinboard --token user:HEX --from 2026-01-01 --exclude-toread`,
		Args: cobra.NoArgs,
		RunE: runPinboardCmd,
	}

	addCrawlFlags(cmd)
	cmd.Flags().StringP("token", "t", "",
		"Pinboard API token (user:hex)")
	cmd.Flags().String("from", "",
		"Only bookmarks added on or after this date (YYYY-MM-DD)")
	cmd.Flags().Bool("exclude-toread", false,
		"Skip bookmarks still marked to-read")

	return cmd
}

// runPinboardCmd executes the pinboard command.
func runPinboardCmd(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}

	token, err := cmd.Flags().GetString("token")
	if err != nil {
		return err
	}
	if token == "" {
		token = rt.settings.PinboardToken
	}
	if token == "" {
		return errors.New("a Pinboard API token is required, via --token or the settings file")
	}

	fromStr, err := cmd.Flags().GetString("from")
	if err != nil {
		return err
	}
	var from time.Time
	if fromStr != "" {
		from, err = time.Parse(fromLayout, fromStr)
		if err != nil {
			return fmt.Errorf("parsing --from date: %w", err)
		}
	}
	excludeToRead, err := cmd.Flags().GetBool("exclude-toread")
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	bookmarks, err := pinboard.NewClient(rt.client, token).Bookmarks(ctx, from, excludeToRead)
	if err != nil {
		return err
	}
	slog.Info("archive bookmarks found", "count", len(bookmarks))

	events, err := logbook.Load(rt.cfg.LogFile)
	if err != nil {
		return err
	}
	titles := logbook.TitleIndex(events)
	failed := make(map[string]bool)
	for _, link := range logbook.FailedLinks(events) {
		failed[link] = true
	}

	if err := rt.login(ctx); err != nil {
		return err
	}

	traverser := crawl.NewTraverser(rt.client, rt.store, rt.ledger, rt.cfg)
	for _, bookmark := range bookmarks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if failed[bookmark.Href] {
			slog.Debug("skipping previously failed link", "url", bookmark.Href)
			continue
		}
		if rt.store.HasArtifacts(bookmark.Href, titles, rt.cfg.Filetypes) {
			slog.Debug("requested formats already present", "url", bookmark.Href)
			continue
		}
		traverser.Download(ctx, bookmark.Href)
	}

	rt.settings.PinboardToken = token
	rt.remember(cmd)
	return nil
}
