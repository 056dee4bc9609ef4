package scrape

import "errors"

// Named terminal conditions raised during page extraction. The crawl
// package converts these into failure events without a stack trace;
// anything else is treated as unexpected.
var (
	// ErrLocked is returned for works restricted to logged-in users.
	ErrLocked = errors.New("work is only available to registered users")

	// ErrDeleted is returned for works or series that no longer exist.
	ErrDeleted = errors.New("work has been deleted")

	// ErrProceedLink is returned when a page carries the adult-content
	// interstitial but the proceed link cannot be found.
	ErrProceedLink = errors.New("proceed link not found on explicit-content page")

	// ErrDownloadLink is returned when a work page offers no download
	// link for the requested artifact kind.
	ErrDownloadLink = errors.New("download link not found")
)
