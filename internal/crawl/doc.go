// Package crawl walks the archive's content hierarchy and downloads
// works.
//
// A Traverser owns the visited set for exactly one run and drives the
// fetch, scrape, and storage packages from it. Listings recurse into
// works and series, pagination advances until a page yields nothing
// new or the page cap is hit, and every terminal outcome of a work
// becomes one ledger event. Top-level operations never return errors
// for individual items: failures are swallowed into failure events so
// one bad branch cannot abort the rest of a run.
package crawl
