// Package reconcile compares a local corpus of downloaded artifacts
// against the archive and plans what to fetch.
//
// A Reconciler walks a corpus folder, runs each artifact through the
// format extractors, and reduces the results according to a mode:
// existence planning lists every archive work found locally,
// completeness planning lists works whose local chapter progress is
// behind their declared total, and series planning groups works by the
// series they belong to. File parsing runs concurrently; everything
// touching the network stays with the caller.
package reconcile
