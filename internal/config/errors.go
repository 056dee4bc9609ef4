package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// Sentinel errors let callers branch with errors.Is while keeping the
// messages human-readable.
var (
	// ErrInvalidSleep is returned when the politeness delay is negative.
	ErrInvalidSleep = errors.New("invalid sleep: must be non-negative")

	// ErrInvalidCooldown is returned when the rate-limit cooldown is not
	// positive. A zero cooldown would hammer a limiter that has already
	// pushed back.
	ErrInvalidCooldown = errors.New("invalid cooldown: must be positive")

	// ErrInvalidMaxPages is returned when the page cap is negative.
	// Use 0 for an unbounded traversal.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidFiletype is returned when a requested download kind is
	// not one the archive offers.
	ErrInvalidFiletype = errors.New("invalid filetype: must be one of AZW3, EPUB, HTML, MOBI, PDF")
)
