package reconcile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Mn3m0syn3/ao3downloader/internal/extract"
	"github.com/Mn3m0syn3/ao3downloader/internal/logbook"
	"github.com/Mn3m0syn3/ao3downloader/internal/model"
)

// writeArtifact writes a flat HTML artifact declaring the given origin
// link, stats line, and series links.
func writeArtifact(t *testing.T, dir, name, link, stats string, series []string) {
	t.Helper()

	var seriesTags strings.Builder
	for _, s := range series {
		fmt.Fprintf(&seriesTags, `<dd><a href=%q>a series</a></dd>`, s)
	}
	content := fmt.Sprintf(`<html><body><div id="preface">
<p class="message"><a href="https://archiveofourown.org/">archive</a><a href=%q>work</a></p>
<div class="meta"><dl class="tags"><dd>%s</dd>%s</dl></div>
</div></body></html>`, link, stats, seriesTags.String())

	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o640); err != nil {
		t.Fatal(err)
	}
}

func newReconciler(opts ...Option) *Reconciler {
	return NewReconciler(extract.NewRegistry(), nil, opts...)
}

func TestPlanExistence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeArtifact(t, dir, "one.html", "https://archiveofourown.org/works/1", "Chapters: 1/1", nil)
	writeArtifact(t, dir, "one copy.html", "https://archiveofourown.org/works/1", "Chapters: 1/1", nil)
	writeArtifact(t, dir, "two.html", "https://archiveofourown.org/works/2", "Chapters: 5/5", nil)

	entries, err := newReconciler().Plan(context.Background(), dir, []string{"HTML"}, ModeExistence)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 unique works, got %d: %v", len(entries), entries)
	}
	for _, entry := range entries {
		if entry.Chapters != "" {
			t.Errorf("existence entries carry no progress: %+v", entry)
		}
	}
}

func TestPlanCompleteness(t *testing.T) {
	t.Parallel()

	t.Run("behind works are planned with their progress token", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeArtifact(t, dir, "behind.html", "https://archiveofourown.org/works/1", "Chapters: 3/10", nil)
		writeArtifact(t, dir, "done.html", "https://archiveofourown.org/works/2", "Chapters: 5/5", nil)
		writeArtifact(t, dir, "openended.html", "https://archiveofourown.org/works/3", "Chapters: 4/?", nil)

		entries, err := newReconciler().Plan(context.Background(), dir, []string{"HTML"}, ModeCompleteness)
		if err != nil {
			t.Fatalf("plan failed: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %v", entries)
		}
		byLink := make(map[string]string)
		for _, entry := range entries {
			byLink[entry.Link] = entry.Chapters
		}
		if byLink["https://archiveofourown.org/works/1"] != "3" {
			t.Errorf("entries = %v", entries)
		}
		if byLink["https://archiveofourown.org/works/3"] != "4" {
			t.Errorf("open-ended works count as behind: %v", entries)
		}
	})

	t.Run("duplicate work keeps the minimum progress token", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeArtifact(t, dir, "newer.html", "https://archiveofourown.org/works/1", "Chapters: 7/10", nil)
		writeArtifact(t, dir, "older.html", "https://archiveofourown.org/works/1", "Chapters: 3/10", nil)

		entries, err := newReconciler().Plan(context.Background(), dir, []string{"HTML"}, ModeCompleteness)
		if err != nil {
			t.Fatalf("plan failed: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("expected 1 entry, got %v", entries)
		}
		if entries[0].Chapters != "3" {
			t.Errorf("expected minimum token 3, got %q", entries[0].Chapters)
		}
	})

	t.Run("stats without a separator are skipped", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeArtifact(t, dir, "odd.html", "https://archiveofourown.org/works/1", "Chapters: 3", nil)

		entries, err := newReconciler().Plan(context.Background(), dir, []string{"HTML"}, ModeCompleteness)
		if err != nil {
			t.Fatalf("plan failed: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("expected no entries, got %v", entries)
		}
	})
}

func TestPlanSeries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeArtifact(t, dir, "a.html", "https://archiveofourown.org/works/1", "Chapters: 1/1",
		[]string{"https://archiveofourown.org/series/10"})
	writeArtifact(t, dir, "b.html", "http://archiveofourown.org/works/2", "Chapters: 1/1",
		[]string{"https://archiveofourown.org/series/10", "https://archiveofourown.org/series/20"})
	writeArtifact(t, dir, "standalone.html", "https://archiveofourown.org/works/3", "Chapters: 1/1", nil)

	entries, err := newReconciler().Plan(context.Background(), dir, []string{"HTML"}, ModeSeries)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("standalone works contribute nothing: %v", entries)
	}

	groups := SeriesGroups(entries)
	if len(groups) != 2 {
		t.Fatalf("expected 2 series, got %v", groups)
	}
	bys := make(map[string][]string)
	for _, g := range groups {
		bys[g.Series] = g.Works
	}
	if len(bys["https://archiveofourown.org/series/10"]) != 2 {
		t.Errorf("series 10 members = %v", bys["https://archiveofourown.org/series/10"])
	}
	for _, w := range bys["https://archiveofourown.org/series/10"] {
		if strings.HasPrefix(w, "http://") {
			t.Errorf("work link not normalized to https: %q", w)
		}
	}
}

func TestPlanSkipsUnparseableFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeArtifact(t, dir, "good.html", "https://archiveofourown.org/works/1", "Chapters: 1/1", nil)
	if err := os.WriteFile(filepath.Join(dir, "broken.epub"), []byte("not a zip"), 0o640); err != nil {
		t.Fatal(err)
	}

	ledger, err := logbook.NewWriter(filepath.Join(t.TempDir(), "activity.log"))
	if err != nil {
		t.Fatal(err)
	}
	r := NewReconciler(extract.NewRegistry(), ledger)

	entries, err := r.Plan(context.Background(), dir, []string{"HTML", "EPUB"}, ModeExistence)
	if err != nil {
		t.Fatalf("one bad file must not fail the scan: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %v", entries)
	}

	events, err := logbook.Load(ledger.Path())
	if err != nil {
		t.Fatal(err)
	}
	var noted bool
	for _, ev := range events {
		if ev.Message == msgProcessFailed && strings.HasSuffix(ev.Path, "broken.epub") {
			noted = true
		}
	}
	if !noted {
		t.Error("expected a process-failure note in the ledger")
	}
}

func TestPlanEntryNotFromArchive(t *testing.T) {
	t.Parallel()

	if _, ok := planEntry(model.WorkInfo{}, ModeExistence); ok {
		t.Error("artifacts without an origin link contribute nothing")
	}
}
