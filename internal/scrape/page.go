package scrape

import (
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Mn3m0syn3/ao3downloader/internal/config"
	"github.com/Mn3m0syn3/ao3downloader/internal/model"
)

// Page-state markers. These are the phrases the archive renders on the
// corresponding interstitial and error pages; matching is a substring
// search over the page text.
const (
	lockedMarker      = "is only available to registered users"
	deletedMarker     = "Error 404"
	explicitMarker    = "This work could have adult content"
	proceedLabel      = "Proceed"
	failedLoginMarker = "The password or user name you entered doesn't match our records"
)

// titleSuffix is the site chrome appended to every <title>.
var (
	titleSuffix        = " | Archive of Our Own"
	chapterTitlePrefix = regexp.MustCompile(`\s*-\s*Chapter \d+$`)

	workHrefPattern   = regexp.MustCompile(`^/works/\d+$`)
	seriesHrefPattern = regexp.MustCompile(`^/series/\d+$`)
)

// Page is a parsed archive document. All methods are pure extraction;
// none of them fetch.
type Page struct {
	doc *goquery.Document

	// base is prefixed onto relative hrefs when returning links.
	base string
}

// Parse builds a Page from raw HTML. Relative links extracted from the
// page are resolved against base; an empty base means the archive root.
func Parse(r io.Reader, base string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	if base == "" {
		base = config.BaseURL
	}
	return &Page{doc: doc, base: base}, nil
}

// CheckAccess reports the two block conditions that make a page
// permanently unreadable: ErrLocked for registered-users-only works and
// ErrDeleted for missing works. A nil return does not imply the page is
// final; check IsExplicit next.
func (p *Page) CheckAccess() error {
	if p.contains(lockedMarker) {
		return ErrLocked
	}
	if p.contains(deletedMarker) {
		return ErrDeleted
	}
	return nil
}

// IsExplicit reports whether the page is the adult-content interstitial
// rather than the work itself. The caller must fetch ProceedLink and
// re-extract from the redirected document; at most one hop is expected.
func (p *Page) IsExplicit() bool {
	return p.contains(explicitMarker)
}

// ProceedLink returns the URL that passes through the adult-content
// interstitial, or ErrProceedLink when the expected anchor is missing.
func (p *Page) ProceedLink() (string, error) {
	var href string
	p.doc.Find("div.works-show ul.actions a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.TrimSpace(a.Text()) == proceedLabel {
			href, _ = a.Attr("href")
			return false
		}
		return true
	})
	if href == "" {
		return "", ErrProceedLink
	}
	return p.base + href, nil
}

// Title returns the work or series title with site chrome stripped.
func (p *Page) Title() string {
	title := strings.TrimSpace(p.doc.Find("title").First().Text())
	title = strings.ReplaceAll(title, titleSuffix, "")
	return chapterTitlePrefix.ReplaceAllString(title, "")
}

// WorkLinks returns every anchor on the page whose target is a work
// URL, in document order. Duplicates are preserved; deduplication is
// the traverser's job via its visited set.
func (p *Page) WorkLinks() []string {
	return p.matchingLinks(workHrefPattern)
}

// WorkAndSeriesLinks returns every anchor whose target is a work or
// series URL, in document order.
func (p *Page) WorkAndSeriesLinks() []string {
	var links []string
	p.doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		if workHrefPattern.MatchString(href) || seriesHrefPattern.MatchString(href) {
			links = append(links, p.base+href)
		}
	})
	return links
}

// SeriesInfo extracts a series page: its title and the ordered member
// work URLs.
func (p *Page) SeriesInfo() model.SeriesInfo {
	return model.SeriesInfo{
		Title: p.Title(),
		Works: p.WorkLinks(),
	}
}

// CurrentChapters returns the current chapter-progress token from the
// page's stats block. ok is false when the stats carry no "/" separator,
// meaning progress is unknown.
func (p *Page) CurrentChapters() (token string, ok bool) {
	text := strings.TrimSpace(p.doc.Find("dl.stats dd.chapters").First().Text())
	index := strings.Index(text, "/")
	if index == -1 {
		return "", false
	}
	return CurrentToken(text, index), true
}

// DownloadLink returns the artifact URL for the given kind (EPUB, PDF,
// ...), or ErrDownloadLink when the page offers none.
func (p *Page) DownloadLink(kind string) (string, error) {
	var href string
	p.doc.Find("li.download a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.TrimSpace(a.Text()) == kind {
			href, _ = a.Attr("href")
			return false
		}
		return true
	})
	if href == "" {
		return "", ErrDownloadLink
	}
	return p.base + href, nil
}

// ImageLinks returns the src of every image embedded in the work body,
// in document order. Callers iterating the result stop at the first
// root-relative link: embeddable assets always precede site chrome in
// document order.
func (p *Page) ImageLinks() []string {
	var links []string
	p.doc.Find("div#workskin img").Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok && src != "" {
			links = append(links, src)
		}
	})
	return links
}

// LoginToken returns the authenticity token from the login form.
func (p *Page) LoginToken() (string, bool) {
	token, ok := p.doc.Find("form.new_user input[name=authenticity_token]").First().Attr("value")
	return token, ok && token != ""
}

// IsFailedLogin reports whether the page shows the failed-login notice.
func (p *Page) IsFailedLogin() bool {
	return p.contains(failedLoginMarker)
}

func (p *Page) matchingLinks(pattern *regexp.Regexp) []string {
	var links []string
	p.doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok && pattern.MatchString(href) {
			links = append(links, p.base+href)
		}
	})
	return links
}

func (p *Page) contains(marker string) bool {
	return strings.Contains(p.doc.Text(), marker)
}
