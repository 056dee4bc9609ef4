package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. Where a default mirrors the archive's
// published rate guidance it is noted on the constant.
const (
	// AppName is used for XDG directory paths.
	AppName = "ao3downloader"

	// BaseURL is the root of the target content domain. The politeness
	// delay applies only to requests under this host; third-party asset
	// hosts are fetched without delay.
	BaseURL = "https://archiveofourown.org"

	// Host is the target content domain.
	Host = "archiveofourown.org"

	// DefaultSleep is the proactive per-request delay applied after
	// every fetch to the target domain. One second keeps a long crawl
	// comfortably under the archive's rate limit.
	DefaultSleep = 1 * time.Second

	// DefaultCooldown is how long to wait after an HTTP 429 before
	// retrying the same URL. The archive's limiter releases well within
	// five minutes, so the retry loop never needs to give up.
	DefaultCooldown = 300 * time.Second

	// DefaultMaxPages of 0 means a listing traversal is unbounded and
	// stops only when a page yields no unvisited link.
	DefaultMaxPages = 0

	// LogFileName is the activity ledger file name.
	LogFileName = "ao3downloader.log"

	// ImageFolderName is the subdirectory for embedded images under the
	// download folder.
	ImageFolderName = "images"
)

// DownloadKinds are the artifact kinds the archive offers for download.
var DownloadKinds = []string{"AZW3", "EPUB", "HTML", "MOBI", "PDF"}

// Config holds all options for one run. It is built from CLI flags plus
// the persisted settings and handed to the fetch and crawl constructors.
type Config struct {
	// DownloadDir is the directory artifacts are written to.
	DownloadDir string

	// LogFile is the path of the append-only activity ledger.
	LogFile string

	// Filetypes are the artifact kinds to download for each work,
	// e.g. ["EPUB", "PDF"]. Values must come from DownloadKinds.
	Filetypes []string

	// Images requests embedded images in addition to artifacts.
	Images bool

	// Series makes listing and series traversal follow series pages.
	Series bool

	// MaxPages caps a listing traversal. 0 means unbounded.
	MaxPages int

	// Sleep is the politeness delay after each target-domain request.
	Sleep time.Duration

	// Cooldown is the wait after a rate-limit response.
	Cooldown time.Duration

	// Username and Password are archive credentials. Both empty means
	// anonymous browsing; locked works will then fail with the locked
	// condition.
	Username string
	Password string

	// Verbose enables slog debug output.
	Verbose bool
}

// NewConfig returns a Config with defaults filled in. Directory values
// default to XDG locations so a bare run works without flags.
func NewConfig() *Config {
	return &Config{
		DownloadDir: DefaultDownloadDir(),
		LogFile:     DefaultLogFile(),
		Sleep:       DefaultSleep,
		Cooldown:    DefaultCooldown,
		MaxPages:    DefaultMaxPages,
	}
}

// DefaultDownloadDir is the XDG user data location for downloaded works.
func DefaultDownloadDir() string {
	return filepath.Join(xdg.DataHome, AppName, "downloads")
}

// DefaultLogFile is the XDG state location for the activity ledger.
func DefaultLogFile() string {
	return filepath.Join(xdg.StateHome, AppName, LogFileName)
}

// SettingsFile is the XDG config location for persisted settings.
func SettingsFile() string {
	return filepath.Join(xdg.ConfigHome, AppName, "settings.yml")
}

// Validate reports the first problem found with the configuration.
// It is called once after flag parsing, before any network work.
func (c *Config) Validate() error {
	if c.Sleep < 0 {
		return ErrInvalidSleep
	}
	if c.Cooldown <= 0 {
		return ErrInvalidCooldown
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	for _, ft := range c.Filetypes {
		if !validKind(ft) {
			return ErrInvalidFiletype
		}
	}
	return nil
}

func validKind(kind string) bool {
	for _, k := range DownloadKinds {
		if k == kind {
			return true
		}
	}
	return false
}
