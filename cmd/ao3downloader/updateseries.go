package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Mn3m0syn3/ao3downloader/internal/crawl"
	"github.com/Mn3m0syn3/ao3downloader/internal/extract"
	"github.com/Mn3m0syn3/ao3downloader/internal/reconcile"
)

// NewUpdateSeriesCmd creates the update-series command.
func NewUpdateSeriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update-series [folder]",
		Short: "Download the missing members of series found in local works",
		Long: `Update-series scans a folder of previously downloaded works for the
series each work belongs to, then downloads the members of those series
that are not in the folder yet. Works already present are skipped.

Examples:
  # Complete every series the library has a member of
  ao3downloader update-series ~/books/ao3`,
		Args: cobra.MaximumNArgs(1),
		RunE: runUpdateSeriesCmd,
	}

	addCrawlFlags(cmd)
	cmd.Flags().StringSlice("scan-filetypes", nil,
		"Artifact kinds to scan locally (default all supported kinds)")

	return cmd
}

// runUpdateSeriesCmd executes the update-series command.
func runUpdateSeriesCmd(cmd *cobra.Command, args []string) error {
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

	slog.Info("scanning local works for series", "folder", folder, "formats", formats)
	reconciler := reconcile.NewReconciler(extract.NewRegistry(), rt.ledger)
	entries, err := reconciler.Plan(ctx, folder, formats, reconcile.ModeSeries)
	if err != nil {
		return err
	}
	groups := reconcile.SeriesGroups(entries)
	slog.Info("series found locally", "count", len(groups))

	if err := rt.login(ctx); err != nil {
		return err
	}

	traverser := crawl.NewTraverser(rt.client, rt.store, rt.ledger, rt.cfg)
	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		traverser.UpdateSeries(ctx, group.Series, group.Works)
	}

	rt.settings.UpdateDir = folder
	rt.settings.UpdateFiletypes = formats
	rt.remember(cmd)
	return nil
}
