package extract

import (
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Mn3m0syn3/ao3downloader/internal/model"
)

// statsMarker prefixes the chapter-progress entry in artifact metadata
// blocks.
const statsMarker = "Chapters: "

// HTMLExtractor reads the preface block of a flat HTML artifact. The
// archive's HTML export opens with a #preface section whose message
// holds exactly two links, the second being the origin work URL, and
// whose tag list carries the stats and series entries.
type HTMLExtractor struct{}

// Examine implements Extractor.
func (h *HTMLExtractor) Examine(file string) (model.WorkInfo, error) {
	f, err := os.Open(file) //nolint:gosec // corpus paths come from a directory walk
	if err != nil {
		return model.WorkInfo{}, fmt.Errorf("opening html artifact: %w", err)
	}
	defer f.Close() //nolint:errcheck // read side only

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return model.WorkInfo{}, fmt.Errorf("parsing html artifact: %w", err)
	}

	var info model.WorkInfo

	message := doc.Find("#preface .message a")
	if message.Length() == 2 {
		info.Link = message.Eq(1).AttrOr("href", "")
	}

	doc.Find("#preface .meta .tags dd").EachWithBreak(func(_ int, dd *goquery.Selection) bool {
		if strings.Contains(dd.Text(), statsMarker) {
			info.Stats = dd.Text()
			return false
		}
		return true
	})

	doc.Find("#preface .meta .tags dd a").Each(func(_ int, a *goquery.Selection) {
		if href := a.AttrOr("href", ""); strings.Contains(href, seriesIdentifier) {
			info.Series = append(info.Series, href)
		}
	})

	return info, nil
}
