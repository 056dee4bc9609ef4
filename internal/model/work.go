package model

// WorkInfo is the identifying metadata recovered from a local artifact:
// where it came from, how far it had progressed when saved, and which
// series it declared membership in.
type WorkInfo struct {
	// Link is the origin work URL, or empty when the artifact did not
	// come from the archive.
	Link string

	// Stats is the raw chapter-progress string as it appeared in the
	// artifact, e.g. "Chapters: 3/10". Empty when not found.
	Stats string

	// Series holds the series URLs the artifact declares, in document
	// order.
	Series []string
}

// SeriesInfo describes one series page: its title and the ordered member
// work URLs. It lives only for the duration of a series download.
type SeriesInfo struct {
	Title string
	Works []string
}

// PlanEntry is one reconciler result: a work URL to (re-)fetch together
// with whatever local state justified the fetch.
type PlanEntry struct {
	// Link is the unique work URL.
	Link string

	// Chapters is the known local chapter-progress token in
	// completeness mode, empty otherwise. Tokens are opaque ordinals
	// compared as strings, not numbers.
	Chapters string

	// Series holds declared series URLs in series-discovery mode.
	Series []string
}

// LocalFile is one artifact discovered by walking a corpus directory.
type LocalFile struct {
	// Path is the absolute or folder-relative file path.
	Path string

	// Format is the container format tag derived from the file
	// extension, e.g. "EPUB" or "PDF".
	Format string
}
