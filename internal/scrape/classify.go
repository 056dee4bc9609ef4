package scrape

import (
	"regexp"
	"strings"

	"github.com/Mn3m0syn3/ao3downloader/internal/config"
)

// Kind classifies a URL by shape. Every URL maps to exactly one Kind;
// classification is a pure function of the string and never fetches.
type Kind int

const (
	// KindWork is a single downloadable work: /works/<digits> with
	// nothing trailing.
	KindWork Kind = iota

	// KindSeries is an ordered collection page: /series/<digits> with
	// nothing trailing.
	KindSeries

	// KindListing is any other page on the target domain (search
	// results, tag indexes, bookmarks).
	KindListing

	// KindInvalid is a URL outside the target domain. Traversal treats
	// it as a terminal failure.
	KindInvalid
)

// String returns the kind name for logging.
func (k Kind) String() string {
	switch k {
	case KindWork:
		return "work"
	case KindSeries:
		return "series"
	case KindListing:
		return "listing"
	default:
		return "invalid"
	}
}

// Work and series URLs end in the numeric identifier; anything after the
// digits (a chapter path, a query string) demotes the URL to a listing.
var (
	workURLPattern   = regexp.MustCompile(`/works/\d+$`)
	seriesURLPattern = regexp.MustCompile(`/series/\d+$`)
)

// Classifier decides what a URL denotes relative to one target host.
// The zero value is unusable; construct with NewClassifier.
type Classifier struct {
	host string
}

// NewClassifier returns a Classifier for the given content host. An
// empty host falls back to the archive's.
func NewClassifier(host string) Classifier {
	if host == "" {
		host = config.Host
	}
	return Classifier{host: host}
}

// Classify maps a URL to its Kind. It is total: any input string yields
// a classification, with off-domain URLs reported as KindInvalid.
func (c Classifier) Classify(link string) Kind {
	if !strings.Contains(link, c.host) {
		return KindInvalid
	}
	if workURLPattern.MatchString(link) {
		return KindWork
	}
	if seriesURLPattern.MatchString(link) {
		return KindSeries
	}
	return KindListing
}

// Classify classifies against the archive's own host.
func Classify(link string) Kind {
	return NewClassifier(config.Host).Classify(link)
}
