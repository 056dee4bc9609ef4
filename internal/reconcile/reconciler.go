package reconcile

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Mn3m0syn3/ao3downloader/internal/extract"
	"github.com/Mn3m0syn3/ao3downloader/internal/logbook"
	"github.com/Mn3m0syn3/ao3downloader/internal/model"
	"github.com/Mn3m0syn3/ao3downloader/internal/scrape"
	"github.com/Mn3m0syn3/ao3downloader/internal/storage"
)

// Mode selects what a corpus scan is planning for.
type Mode int

const (
	// ModeExistence plans a fetch for every archive work found locally.
	ModeExistence Mode = iota

	// ModeCompleteness plans a fetch for works whose local chapter
	// progress is behind the declared total.
	ModeCompleteness

	// ModeSeries collects the series each local work declares.
	ModeSeries
)

// defaultParseLimit bounds concurrent artifact parsing. Corpus scans
// are local CPU and disk work, so a small fan-out is enough.
const defaultParseLimit = 4

// Corpus-scan note messages.
const (
	msgWorkFile       = "found work file"
	msgIncompleteWork = "found incomplete work"
	msgSeriesFile     = "found file with series"
	msgProcessFailed  = "could not process file"
)

// Reconciler plans downloads from a local corpus.
type Reconciler struct {
	registry *extract.Registry
	ledger   *logbook.Writer
	limit    int
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithParseLimit overrides the concurrent parse fan-out.
func WithParseLimit(n int) Option {
	return func(r *Reconciler) { r.limit = n }
}

// NewReconciler creates a Reconciler that records per-file notes in the
// given ledger.
func NewReconciler(registry *extract.Registry, ledger *logbook.Writer, opts ...Option) *Reconciler {
	r := &Reconciler{
		registry: registry,
		ledger:   ledger,
		limit:    defaultParseLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Plan scans folder for artifacts of the given formats and reduces them
// to a fetch plan for the mode. Files that cannot be parsed are noted
// in the ledger and skipped; only the walk itself can fail the scan.
func (r *Reconciler) Plan(ctx context.Context, folder string, formats []string, mode Mode) ([]model.PlanEntry, error) {
	files, err := storage.FilesOfType(folder, formats)
	if err != nil {
		return nil, err
	}

	results := make([]*model.PlanEntry, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			info, err := r.registry.Examine(file.Path, file.Format)
			if err != nil {
				r.note(model.Event{Message: msgProcessFailed, Path: file.Path, Error: err.Error()})
				return nil
			}
			if entry, ok := planEntry(info, mode); ok {
				results[i] = &entry
				r.note(model.Event{Message: noteMessage(mode), Path: file.Path, Link: entry.Link})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var entries []model.PlanEntry
	for _, entry := range results {
		if entry != nil {
			entries = append(entries, *entry)
		}
	}
	return dedupe(entries, mode), nil
}

// planEntry reduces one artifact's metadata to a plan entry for the
// mode. ok is false when the artifact contributes nothing: it is not
// from the archive, declares no series in series mode, or its progress
// is not verifiably behind in completeness mode.
func planEntry(info model.WorkInfo, mode Mode) (model.PlanEntry, bool) {
	if info.Link == "" {
		return model.PlanEntry{}, false
	}

	switch mode {
	case ModeSeries:
		if len(info.Series) == 0 {
			return model.PlanEntry{}, false
		}
		return model.PlanEntry{Link: info.Link, Series: info.Series}, true

	case ModeCompleteness:
		if info.Stats == "" {
			return model.PlanEntry{}, false
		}
		index := strings.Index(info.Stats, "/")
		if index == -1 {
			return model.PlanEntry{}, false
		}
		current := scrape.CurrentToken(info.Stats, index)
		total := scrape.TotalToken(info.Stats, index)
		if current == total {
			return model.PlanEntry{}, false
		}
		return model.PlanEntry{Link: info.Link, Chapters: current}, true

	default:
		return model.PlanEntry{Link: info.Link}, true
	}
}

func noteMessage(mode Mode) string {
	switch mode {
	case ModeCompleteness:
		return msgIncompleteWork
	case ModeSeries:
		return msgSeriesFile
	default:
		return msgWorkFile
	}
}

// dedupe collapses entries that refer to the same work. A work saved in
// several formats appears once per format; in completeness mode the
// entry with the minimum progress token survives, so the refetch starts
// from the format that is furthest behind.
func dedupe(entries []model.PlanEntry, mode Mode) []model.PlanEntry {
	if mode == ModeCompleteness {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Link < entries[j].Link
		})
		var out []model.PlanEntry
		for _, entry := range entries {
			if n := len(out); n > 0 && out[n-1].Link == entry.Link {
				if entry.Chapters < out[n-1].Chapters {
					out[n-1].Chapters = entry.Chapters
				}
				continue
			}
			out = append(out, entry)
		}
		return out
	}

	seen := make(map[string]bool, len(entries))
	var out []model.PlanEntry
	for _, entry := range entries {
		if seen[entry.Link] {
			continue
		}
		seen[entry.Link] = true
		out = append(out, entry)
	}
	return out
}

// SeriesGroup pairs one series URL with the local member works that
// declared it.
type SeriesGroup struct {
	Series string
	Works  []string
}

// SeriesGroups inverts series-mode plan entries into per-series member
// lists, in first-seen order. Work links are normalized to https so a
// work saved before the archive's protocol switch is not counted twice.
func SeriesGroups(entries []model.PlanEntry) []SeriesGroup {
	index := make(map[string]int)
	var groups []SeriesGroup
	for _, entry := range entries {
		link := strings.Replace(entry.Link, "http://", "https://", 1)
		for _, series := range entry.Series {
			i, ok := index[series]
			if !ok {
				i = len(groups)
				index[series] = i
				groups = append(groups, SeriesGroup{Series: series})
			}
			if !slices.Contains(groups[i].Works, link) {
				groups[i].Works = append(groups[i].Works, link)
			}
		}
	}
	return groups
}

// note appends a corpus-scan event; ledger write failures must not
// interrupt the scan.
func (r *Reconciler) note(ev model.Event) {
	if r.ledger == nil {
		return
	}
	if err := r.ledger.Append(ev); err != nil {
		slog.Warn("could not record corpus note", "path", ev.Path, "error", err)
	}
}
