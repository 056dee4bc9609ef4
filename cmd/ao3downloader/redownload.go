package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Mn3m0syn3/ao3downloader/internal/crawl"
	"github.com/Mn3m0syn3/ao3downloader/internal/extract"
	"github.com/Mn3m0syn3/ao3downloader/internal/logbook"
	"github.com/Mn3m0syn3/ao3downloader/internal/reconcile"
)

// NewRedownloadCmd creates the redownload command.
func NewRedownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redownload [folder]",
		Short: "Fetch an old library again in new formats",
		Long: `Redownload scans a folder of previously downloaded works and fetches
each one again in the requested formats. Works whose requested formats
already exist in the download directory are skipped, as are links the
ledger records as previously failed.

Examples:
  # An old MOBI library, fetched again as EPUB
  ao3downloader redownload --scan-filetypes MOBI -f EPUB ~/books/old`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRedownloadCmd,
	}

	addCrawlFlags(cmd)
	cmd.Flags().StringSlice("scan-filetypes", nil,
		"Artifact kinds to scan locally (default all supported kinds)")

	return cmd
}

// runRedownloadCmd executes the redownload command.
func runRedownloadCmd(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}

	folder := updateFolder(rt, args)
	formats, err := scanFiletypes(cmd, rt)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	slog.Info("scanning local works", "folder", folder, "formats", formats)
	reconciler := reconcile.NewReconciler(extract.NewRegistry(), rt.ledger)
	entries, err := reconciler.Plan(ctx, folder, formats, reconcile.ModeExistence)
	if err != nil {
		return err
	}

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
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if failed[entry.Link] {
			slog.Debug("skipping previously failed link", "url", entry.Link)
			continue
		}
		if rt.store.HasArtifacts(entry.Link, titles, rt.cfg.Filetypes) {
			slog.Debug("requested formats already present", "url", entry.Link)
			continue
		}
		traverser.Download(ctx, entry.Link)
	}

	rt.settings.UpdateDir = folder
	rt.settings.UpdateFiletypes = formats
	rt.remember(cmd)
	return nil
}
