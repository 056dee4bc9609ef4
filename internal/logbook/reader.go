package logbook

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/Mn3m0syn3/ao3downloader/internal/model"
)

// Load reads every event in the ledger. A missing ledger is an empty
// history, not an error. Unparseable lines are skipped so one corrupt
// write can never wedge later runs.
func Load(path string) ([]model.Event, error) {
	f, err := os.Open(path) //nolint:gosec // user-owned ledger path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read side only

	var events []model.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var ev model.Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, scanner.Err()
}

// TitleIndex maps each work link to the first title recorded for it.
// The first record wins so the index reflects the filename the artifact
// was originally saved under.
func TitleIndex(events []model.Event) map[string]string {
	index := make(map[string]string)
	for _, ev := range events {
		if ev.Link == "" || ev.Title == "" {
			continue
		}
		if _, ok := index[ev.Link]; !ok {
			index[ev.Link] = ev.Title
		}
	}
	return index
}

// FailedLinks returns the links of failed download attempts, unique and
// in first-seen order.
func FailedLinks(events []model.Event) []string {
	seen := make(map[string]bool)
	var links []string
	for _, ev := range events {
		if ev.Link == "" || ev.Success == nil || *ev.Success {
			continue
		}
		if !seen[ev.Link] {
			seen[ev.Link] = true
			links = append(links, ev.Link)
		}
	}
	return links
}

// LatestStart returns the most recent resume cursor: the listing page an
// interrupted run should continue from. ok is false when the ledger
// holds no cursor.
func LatestStart(events []model.Event) (link string, ok bool) {
	var best model.Event
	for _, ev := range events {
		if !ev.IsStart() {
			continue
		}
		if !ok || ev.Time().After(best.Time()) {
			best = ev
			ok = true
		}
	}
	return best.Starting, ok
}
