package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Mn3m0syn3/ao3downloader/internal/model"
)

// workIdentifier and seriesIdentifier mark archive origin links inside
// artifact files. Artifacts embed absolute URLs, so a substring match
// is sufficient.
const (
	workIdentifier   = "/works/"
	seriesIdentifier = "/series/"
)

// Extractor recovers work metadata from one artifact file. A file that
// is readable but did not come from the archive yields a zero WorkInfo
// and no error.
type Extractor interface {
	Examine(path string) (model.WorkInfo, error)
}

// Registry dispatches artifact files to format extractors by tag.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry builds a Registry covering every supported format.
func NewRegistry() *Registry {
	epub := &EPUBExtractor{}
	return &Registry{extractors: map[string]Extractor{
		"EPUB": epub,
		"HTML": &HTMLExtractor{},
		"AZW3": &AZW3Extractor{inner: epub},
		"MOBI": &MOBIExtractor{},
		"PDF":  &PDFExtractor{},
	}}
}

// Examine runs the extractor registered for format against the file at
// path. An unknown format tag yields ErrInvalidFormat.
func (r *Registry) Examine(path, format string) (model.WorkInfo, error) {
	ex, ok := r.extractors[strings.ToUpper(format)]
	if !ok {
		return model.WorkInfo{}, fmt.Errorf("%w: %q (supported: %s)",
			ErrInvalidFormat, format, strings.Join(r.Formats(), ", "))
	}
	return ex.Examine(path)
}

// Formats lists the registered format tags in sorted order.
func (r *Registry) Formats() []string {
	formats := make([]string, 0, len(r.extractors))
	for tag := range r.extractors {
		formats = append(formats, tag)
	}
	sort.Strings(formats)
	return formats
}
