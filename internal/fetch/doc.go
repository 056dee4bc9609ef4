// Package fetch performs all HTTP traffic against the archive.
//
// The Client retries rate-limited requests indefinitely with a fixed
// cooldown, applies a proactive politeness delay after every request to
// the target content domain, and knows how to log a session in. It has
// no knowledge of page semantics; callers hand its output to the scrape
// package.
package fetch
