package crawl

import "errors"

// ErrInvalidLink is returned when a traversal is pointed at a URL
// outside the target content domain.
var ErrInvalidLink = errors.New("link is not on the target domain")
