// Package extract recovers work metadata from downloaded artifact
// files.
//
// Each supported container format has an extractor that answers three
// questions about a local file: which archive work it came from, how
// far its chapter progress had advanced when it was saved, and which
// series it declares. The Registry dispatches on the format tag; the
// compressed container formats unpack to a temp directory, sniff the
// payload, and re-dispatch to the matching extractor.
package extract
