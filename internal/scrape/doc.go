// Package scrape turns fetched archive pages into structured data.
//
// It contains the URL classifier (work / series / listing / invalid),
// the page extractor built on goquery, and the plain-text helpers for
// pagination cursors, chapter-progress tokens, and filename
// sanitization. Everything in this package is a pure function of its
// input; network I/O lives in the fetch package and traversal order in
// the crawl package.
package scrape
