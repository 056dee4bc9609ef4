package storage

import (
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Mn3m0syn3/ao3downloader/internal/config"
	"github.com/Mn3m0syn3/ao3downloader/internal/model"
	"github.com/Mn3m0syn3/ao3downloader/internal/scrape"
)

// Store writes artifacts and images under a single download directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Dir returns the download directory.
func (s *Store) Dir() string {
	return s.dir
}

// ArtifactPath is where an artifact of the given kind for the given
// title lives, whether or not it exists yet.
func (s *Store) ArtifactPath(title, kind string) string {
	name := scrape.SanitizeFilename(title) + "." + strings.ToLower(kind)
	return filepath.Join(s.dir, name)
}

// SaveArtifact writes one artifact file for the work titled title and
// returns its path. An existing file for the same title and kind is
// overwritten; that is how updates refresh a stale download in place.
func (s *Store) SaveArtifact(title, kind string, data []byte) (string, error) {
	p := s.ArtifactPath(title, kind)
	if err := os.WriteFile(p, data, 0o640); err != nil {
		return "", err
	}
	return p, nil
}

// SaveImage writes the nth embedded image of a work to the images
// subdirectory and returns its path. The title is sanitized on its own
// and the counter appended afterwards, so truncation of a long title
// can never swallow the counter and collapse images onto one filename.
// The extension is taken from the source URL's path, so query strings
// never leak into filenames.
func (s *Store) SaveImage(title string, n int, srcURL string, data []byte) (string, error) {
	imgDir := filepath.Join(s.dir, config.ImageFolderName)
	if err := os.MkdirAll(imgDir, 0o750); err != nil {
		return "", err
	}
	name := scrape.SanitizeFilename(title) + fmt.Sprintf(" img%03d", n) + imageExt(srcURL)
	p := filepath.Join(imgDir, name)
	if err := os.WriteFile(p, data, 0o640); err != nil {
		return "", err
	}
	return p, nil
}

// imageExt extracts a usable file extension from an image URL.
func imageExt(srcURL string) string {
	u, err := url.Parse(srcURL)
	if err != nil {
		return ""
	}
	return path.Ext(u.Path)
}

// HasArtifacts reports whether every requested artifact kind for the
// work at link already exists on disk. The title index comes from the
// activity ledger; a link the ledger has never seen is never complete.
func (s *Store) HasArtifacts(link string, titles map[string]string, kinds []string) bool {
	title, ok := titles[link]
	if !ok {
		return false
	}
	name := scrape.SanitizeFilename(title)
	if name == "" {
		return false
	}
	for _, kind := range kinds {
		if _, err := os.Stat(s.ArtifactPath(title, kind)); err != nil {
			return false
		}
	}
	return true
}

// FilesOfType walks folder recursively and returns every file whose
// extension matches one of the requested format tags. Tags are
// case-insensitive kind names like "EPUB" or "PDF".
func FilesOfType(folder string, tags []string) ([]model.LocalFile, error) {
	want := make(map[string]string, len(tags))
	for _, tag := range tags {
		want["."+strings.ToLower(tag)] = strings.ToUpper(tag)
	}

	var files []model.LocalFile
	err := filepath.WalkDir(folder, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if format, ok := want[strings.ToLower(filepath.Ext(p))]; ok {
			files = append(files, model.LocalFile{Path: p, Format: format})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
