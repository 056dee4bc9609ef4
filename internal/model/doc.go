// Package model defines the data types shared across the downloader:
// activity-ledger events, extracted work and series metadata, download
// plan entries, and local corpus files.
//
// Types in this package are plain data with no I/O. Network and file
// behavior lives in the fetch, crawl, storage, and logbook packages.
package model
