// Package config holds the runtime configuration for the downloader and
// the persisted YAML settings file.
//
// The runtime Config is a flat struct populated from CLI flags and passed
// into constructors by the commands; there is no process-wide mutable
// state. Settings is the subset of values remembered between runs
// (folders, file types, sleep time, and optionally credentials), stored
// under the XDG config directory.
package config
