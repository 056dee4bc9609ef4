package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"runtime/debug"
	"slices"
	"strings"

	"github.com/Mn3m0syn3/ao3downloader/internal/config"
	"github.com/Mn3m0syn3/ao3downloader/internal/extract"
	"github.com/Mn3m0syn3/ao3downloader/internal/fetch"
	"github.com/Mn3m0syn3/ao3downloader/internal/logbook"
	"github.com/Mn3m0syn3/ao3downloader/internal/model"
	"github.com/Mn3m0syn3/ao3downloader/internal/scrape"
	"github.com/Mn3m0syn3/ao3downloader/internal/storage"
)

// msgImageFailed annotates per-image save failures, which are noted in
// the ledger without failing the surrounding work.
const msgImageFailed = "could not save image"

// Traverser walks the content hierarchy from a starting URL. It owns
// its visited set for exactly one run; construct a fresh Traverser per
// run and never share one across runs.
type Traverser struct {
	client     *fetch.Client
	store      *storage.Store
	ledger     *logbook.Writer
	classifier scrape.Classifier

	filetypes []string
	images    bool
	series    bool
	maxPages  int

	visited map[string]bool
}

// NewTraverser builds a Traverser over the given collaborators, taking
// its run parameters from cfg. The classifier host is derived from the
// client's base URL so traversal and fetching always agree on what the
// target domain is.
func NewTraverser(client *fetch.Client, store *storage.Store, ledger *logbook.Writer, cfg *config.Config) *Traverser {
	host := ""
	if u, err := url.Parse(client.BaseURL()); err == nil {
		host = u.Host
	}
	return &Traverser{
		client:     client,
		store:      store,
		ledger:     ledger,
		classifier: scrape.NewClassifier(host),
		filetypes:  cfg.Filetypes,
		images:     cfg.Images,
		series:     cfg.Series,
		maxPages:   cfg.MaxPages,
		visited:    make(map[string]bool),
	}
}

// Download fetches everything reachable from link: a work directly, a
// series through its members, a listing through its pages. Errors are
// swallowed into failure events; Download always returns normally.
func (t *Traverser) Download(ctx context.Context, link string) {
	if err := t.downloadRecursive(ctx, link); err != nil {
		t.recordFailure(model.Event{Link: link}, err)
	}
}

// Update re-fetches a single work only when its remote chapter progress
// is strictly greater than knownChapters. A work that has not moved is
// recorded as a success without writing an artifact.
func (t *Traverser) Update(ctx context.Context, link, knownChapters string) {
	t.downloadWork(ctx, link, knownChapters, "")
}

// UpdateSeries downloads the members of a series that are not in
// knownMembers, the member URLs already catalogued locally.
func (t *Traverser) UpdateSeries(ctx context.Context, link string, knownMembers []string) {
	for _, member := range knownMembers {
		t.visited[member] = true
	}
	t.downloadSeries(ctx, link)
}

// WorkLinks walks the same topology as Download but accumulates the
// reachable work URLs instead of fetching artifacts.
func (t *Traverser) WorkLinks(ctx context.Context, link string) ([]string, error) {
	var links []string
	if err := t.collectWorkLinks(ctx, link, &links); err != nil {
		return nil, err
	}
	return links, nil
}

func (t *Traverser) downloadRecursive(ctx context.Context, link string) error {
	if t.visited[link] {
		slog.Debug("already visited", "url", link)
		return nil
	}
	t.visited[link] = true

	switch t.classifier.Classify(link) {
	case scrape.KindWork:
		t.downloadWork(ctx, link, "", "")
		return nil
	case scrape.KindSeries:
		if t.series {
			t.downloadSeries(ctx, link)
		}
		return nil
	case scrape.KindListing:
		return t.walkListing(ctx, link, true, true, t.downloadRecursive)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidLink, link)
	}
}

func (t *Traverser) collectWorkLinks(ctx context.Context, link string, acc *[]string) error {
	if t.visited[link] {
		return nil
	}
	t.visited[link] = true

	switch t.classifier.Classify(link) {
	case scrape.KindWork:
		if !slices.Contains(*acc, link) {
			*acc = append(*acc, link)
		}
		return nil
	case scrape.KindSeries:
		if !t.series {
			return nil
		}
		page, err := t.finalPage(ctx, link)
		if err != nil {
			return err
		}
		for _, work := range page.WorkLinks() {
			if !slices.Contains(*acc, work) {
				*acc = append(*acc, work)
			}
		}
		return nil
	case scrape.KindListing:
		visit := func(ctx context.Context, u string) error {
			return t.collectWorkLinks(ctx, u, acc)
		}
		return t.walkListing(ctx, link, t.series, false, visit)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidLink, link)
	}
}

// walkListing pages through a listing. Each page's links are visited
// in document order; the loop ends when a page yields no unvisited
// link or the next page would pass the page cap. When cursor is set, a
// resume-cursor event carrying the next page URL is appended after each
// fully-processed page.
func (t *Traverser) walkListing(ctx context.Context, link string, includeSeries, cursor bool, visit func(context.Context, string) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		slog.Info("processing listing page", "url", link, "page", scrape.PageNumber(link))

		page, err := t.client.GetPage(ctx, link)
		if err != nil {
			return err
		}

		var urls []string
		if includeSeries {
			urls = page.WorkAndSeriesLinks()
		} else {
			urls = page.WorkLinks()
		}
		if t.allVisited(urls) {
			slog.Info("no unvisited links on page, stopping", "url", link)
			return nil
		}

		for _, u := range urls {
			if err := visit(ctx, u); err != nil {
				return err
			}
		}

		link = scrape.NextPage(link)
		if t.maxPages > 0 && scrape.PageNumber(link) == t.maxPages+1 {
			slog.Info("page cap reached, stopping", "pages", t.maxPages)
			return nil
		}
		if cursor {
			t.note(model.Start(link))
		}
	}
}

func (t *Traverser) allVisited(urls []string) bool {
	for _, u := range urls {
		if !t.visited[u] {
			return false
		}
	}
	return true
}

// downloadSeries fetches a series page and downloads each member work
// not yet visited, tagging each member's outcome event with the series
// title. Failures of the series page itself become one failure event
// for the series link.
func (t *Traverser) downloadSeries(ctx context.Context, link string) {
	page, err := t.finalPage(ctx, link)
	if err != nil {
		t.recordFailure(model.Event{Link: link}, err)
		return
	}
	info := page.SeriesInfo()
	for _, work := range info.Works {
		if t.visited[work] {
			continue
		}
		t.visited[work] = true
		t.downloadWork(ctx, work, "", info.Title)
	}
}

// downloadWork downloads one work and appends exactly one terminal
// event for it: success when the artifacts were written or the work
// needed no update, failure otherwise.
func (t *Traverser) downloadWork(ctx context.Context, link, knownChapters, seriesTitle string) {
	ev := model.Event{Link: link, Series: seriesTitle}

	title, err := t.tryDownload(ctx, link, knownChapters)
	ev.Title = title
	if err != nil {
		t.recordFailure(ev, err)
		return
	}

	success := true
	ev.Success = &success
	t.note(ev)
}

// tryDownload is the single-work download path: fetch, pass the
// proceed state machine, compare progress for updates, then fetch and
// persist one artifact per requested kind and optionally the embedded
// images.
func (t *Traverser) tryDownload(ctx context.Context, link, knownChapters string) (string, error) {
	page, err := t.finalPage(ctx, link)
	if err != nil {
		return "", err
	}

	title := page.Title()

	if knownChapters != "" {
		if current, ok := page.CurrentChapters(); ok && current <= knownChapters {
			slog.Debug("work has not advanced, skipping", "url", link, "chapters", current)
			return title, nil
		}
	}

	for _, kind := range t.filetypes {
		artifactURL, err := page.DownloadLink(kind)
		if err != nil {
			return title, err
		}
		body, err := t.client.GetBytes(ctx, artifactURL)
		if err != nil {
			return title, err
		}
		path, err := t.store.SaveArtifact(title, kind, body)
		if err != nil {
			return title, err
		}
		slog.Debug("saved artifact", "url", link, "path", path)
	}

	if t.images {
		t.saveImages(ctx, page, link, title)
	}
	return title, nil
}

// saveImages fetches the embedded images of a work. A failed image is
// noted in the ledger and skipped; it never fails the work. The first
// root-relative link terminates the iteration, since embeddable assets
// always precede site chrome in document order.
func (t *Traverser) saveImages(ctx context.Context, page *scrape.Page, link, title string) {
	counter := 0
	for _, img := range page.ImageLinks() {
		if strings.HasPrefix(img, "/") {
			break
		}
		body, err := t.client.GetBytes(ctx, img)
		if err == nil {
			_, err = t.store.SaveImage(title, counter, img, body)
		}
		if err != nil {
			note := model.Event{Message: msgImageFailed, Link: link, Title: title, Image: img, Error: err.Error()}
			if !isNamedCondition(err) {
				note.Stacktrace = string(debug.Stack())
			}
			t.note(note)
			continue
		}
		counter++
	}
}

// finalPage fetches link and runs the proceed state machine: locked and
// deleted pages are terminal, the adult-content interstitial is
// followed for at most one hop, and a redirected page that is itself
// blocked or still an interstitial is terminal.
func (t *Traverser) finalPage(ctx context.Context, link string) (*scrape.Page, error) {
	page, err := t.client.GetPage(ctx, link)
	if err != nil {
		return nil, err
	}
	if err := page.CheckAccess(); err != nil {
		return nil, err
	}
	if !page.IsExplicit() {
		return page, nil
	}

	proceedURL, err := page.ProceedLink()
	if err != nil {
		return nil, err
	}
	page, err = t.client.GetPage(ctx, proceedURL)
	if err != nil {
		return nil, err
	}
	if err := page.CheckAccess(); err != nil {
		return nil, err
	}
	if page.IsExplicit() {
		return nil, fmt.Errorf("%w: interstitial persisted after proceeding", scrape.ErrProceedLink)
	}
	return page, nil
}

// recordFailure converts an error into the item's terminal failure
// event. Errors that are not one of the system's own named conditions
// additionally capture a stack so unexpected failures can be diagnosed
// from the ledger alone.
func (t *Traverser) recordFailure(ev model.Event, err error) {
	failed := false
	ev.Success = &failed
	ev.Error = err.Error()
	if !isNamedCondition(err) {
		ev.Stacktrace = string(debug.Stack())
	}
	slog.Warn("item failed", "url", ev.Link, "error", err)
	t.note(ev)
}

// isNamedCondition reports whether err is one of the system's own
// terminal conditions, which are expected outcomes rather than bugs.
func isNamedCondition(err error) bool {
	named := []error{
		scrape.ErrLocked,
		scrape.ErrDeleted,
		scrape.ErrProceedLink,
		scrape.ErrDownloadLink,
		ErrInvalidLink,
		extract.ErrInvalidFormat,
		fetch.ErrAuthentication,
	}
	for _, condition := range named {
		if errors.Is(err, condition) {
			return true
		}
	}
	return false
}

// note appends a ledger event; a ledger write failure is logged but
// never interrupts traversal.
func (t *Traverser) note(ev model.Event) {
	if t.ledger == nil {
		return
	}
	if err := t.ledger.Append(ev); err != nil {
		slog.Warn("could not append to ledger", "error", err)
	}
}
