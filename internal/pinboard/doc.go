// Package pinboard fetches bookmarks from the Pinboard API and filters
// them down to archive work and series URLs.
//
// Only the posts/all endpoint of the XML API is consumed. Full API
// semantics are out of scope; the caller just needs bookmark URLs and
// their read state.
package pinboard
