package logbook

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Mn3m0syn3/ao3downloader/internal/model"
)

// Writer appends events to the ledger file. Each append opens, writes,
// and closes the file so an interrupted run never loses flushed lines.
//
// The mutex serializes appends: traversal itself is single-threaded,
// but corpus scanning parses local files concurrently and reports
// per-file notes through the same ledger.
type Writer struct {
	path string

	mu sync.Mutex

	// now stands in for time.Now in tests.
	now func() time.Time
}

// NewWriter creates a Writer for the ledger at path, creating parent
// directories so the first append cannot fail on a missing folder.
func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}
	return &Writer{path: path, now: time.Now}, nil
}

// Path returns the ledger file location.
func (w *Writer) Path() string {
	return w.path
}

// Append stamps the event and writes it as one JSON line. The ledger is
// append-only; existing lines are never touched.
func (w *Writer) Append(ev model.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	ev.Timestamp = w.now().Format(model.TimestampLayout)

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck // close error surfaces via Encode

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	return enc.Encode(&ev)
}
