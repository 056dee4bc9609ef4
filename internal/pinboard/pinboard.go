package pinboard

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Mn3m0syn3/ao3downloader/internal/config"
	"github.com/Mn3m0syn3/ao3downloader/internal/fetch"
)

// defaultAPIBase is the Pinboard XML API root.
const defaultAPIBase = "https://api.pinboard.in/v1"

// Bookmark is one Pinboard post pointing at an archive work or series.
type Bookmark struct {
	Href   string `xml:"href,attr"`
	ToRead string `xml:"toread,attr"`
}

// Unread reports whether the bookmark still carries the to-read marker.
func (b Bookmark) Unread() bool {
	return b.ToRead == "yes"
}

// posts is the document root of the posts/all response.
type posts struct {
	XMLName xml.Name   `xml:"posts"`
	Posts   []Bookmark `xml:"post"`
}

// Client fetches bookmarks through the shared Fetcher, which applies no
// politeness delay off the archive's domain.
type Client struct {
	fetcher *fetch.Client
	token   string
	apiBase string
}

// Option configures a Client.
type Option func(*Client)

// WithAPIBase points the client at a different API root. Tests use
// this to target an httptest server.
func WithAPIBase(base string) Option {
	return func(c *Client) { c.apiBase = base }
}

// NewClient creates a Client with the given API token.
func NewClient(fetcher *fetch.Client, token string, opts ...Option) *Client {
	c := &Client{
		fetcher: fetcher,
		token:   token,
		apiBase: defaultAPIBase,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bookmarks fetches all posts, optionally limited to those added on or
// after from, and keeps only archive work and series URLs. When
// excludeUnread is set, bookmarks still marked to-read are dropped.
func (c *Client) Bookmarks(ctx context.Context, from time.Time, excludeUnread bool) ([]Bookmark, error) {
	link := c.apiBase + "/posts/all?auth_token=" + url.QueryEscape(c.token)
	if !from.IsZero() {
		link += "&fromdt=" + from.Format("2006-01-02") + "T00:00:00Z"
	}

	body, err := c.fetcher.GetBytes(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("fetching bookmarks: %w", err)
	}

	var doc posts
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parsing bookmarks: %w", err)
	}

	var bookmarks []Bookmark
	for _, b := range doc.Posts {
		if !isWorkOrSeries(b.Href) {
			continue
		}
		if excludeUnread && b.Unread() {
			continue
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, nil
}

// isWorkOrSeries reports whether a bookmark points at archive content
// worth downloading.
func isWorkOrSeries(href string) bool {
	return strings.Contains(href, config.Host+"/works/") ||
		strings.Contains(href, config.Host+"/series/")
}
