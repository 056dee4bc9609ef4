// Package storage lays out downloaded artifacts on disk.
//
// Each work becomes one file per requested artifact kind, named after
// the sanitized work title. Embedded images go to an images/
// subdirectory keyed by the same title. The read side walks an existing
// corpus directory and tags each file with its container format for the
// reconciler.
package storage
