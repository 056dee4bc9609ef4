package extract

import "errors"

// ErrInvalidFormat is returned when a format tag names no registered
// extractor.
var ErrInvalidFormat = errors.New("invalid artifact format")
