package main

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mn3m0syn3/ao3downloader/internal/config"
	"github.com/Mn3m0syn3/ao3downloader/internal/crawl"
	"github.com/Mn3m0syn3/ao3downloader/internal/extract"
	"github.com/Mn3m0syn3/ao3downloader/internal/reconcile"
)

// NewUpdateCmd creates the update command.
func NewUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update [folder]",
		Short: "Re-download local works whose chapter count has fallen behind",
		Long: `Update scans a folder of previously downloaded works, reads each
file's archive link and chapter progress, and re-downloads only the
works the archive has extended since. Works already at their declared
total are left alone.

The folder defaults to the remembered update folder, then the download
directory.

Examples:
  # Refresh a library folder
  ao3downloader update ~/books/ao3

  # Scan only EPUB files but fetch updates as EPUB and PDF
  ao3downloader update --scan-filetypes EPUB -f EPUB,PDF ~/books/ao3`,
		Args: cobra.MaximumNArgs(1),
		RunE: runUpdateCmd,
	}

	addCrawlFlags(cmd)
	cmd.Flags().StringSlice("scan-filetypes", nil,
		"Artifact kinds to scan locally (default all supported kinds)")

	return cmd
}

// runUpdateCmd executes the update command.
func runUpdateCmd(cmd *cobra.Command, args []string) error {
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
	entries, err := reconciler.Plan(ctx, folder, formats, reconcile.ModeCompleteness)
	if err != nil {
		return err
	}
	slog.Info("works behind the archive", "count", len(entries))

	if err := rt.login(ctx); err != nil {
		return err
	}

	traverser := crawl.NewTraverser(rt.client, rt.store, rt.ledger, rt.cfg)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		traverser.Update(ctx, entry.Link, entry.Chapters)
	}

	rt.settings.UpdateDir = folder
	rt.settings.UpdateFiletypes = formats
	rt.remember(cmd)
	return nil
}

// updateFolder resolves the corpus folder: the argument, then the
// remembered update folder, then the download directory.
func updateFolder(rt *runtime, args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	if rt.settings.UpdateDir != "" {
		return rt.settings.UpdateDir
	}
	return rt.cfg.DownloadDir
}

// scanFiletypes resolves which local artifact kinds to parse: the flag,
// then the remembered kinds, then every supported kind.
func scanFiletypes(cmd *cobra.Command, rt *runtime) ([]string, error) {
	formats, err := cmd.Flags().GetStringSlice("scan-filetypes")
	if err != nil {
		return nil, err
	}
	for i, format := range formats {
		formats[i] = strings.ToUpper(format)
	}
	if len(formats) == 0 {
		formats = rt.settings.UpdateFiletypes
	}
	if len(formats) == 0 {
		formats = config.DownloadKinds
	}
	return formats, nil
}
