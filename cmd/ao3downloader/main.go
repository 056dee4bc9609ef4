// Package main provides the entry point for the ao3downloader CLI.
//
// ao3downloader bulk-downloads works from the Archive of Our Own. It can
// walk a work, series, or listing URL, refresh a local corpus that has
// fallen behind the archive, and import download queues from Pinboard.
//
// Usage:
//
//	ao3downloader download <url>
//	ao3downloader update <folder>
//
// See --help for all available options.
package main

// main is the entry point for ao3downloader.
func main() {
	Execute()
}
