package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/Mn3m0syn3/ao3downloader/internal/logbook"
	"github.com/Mn3m0syn3/ao3downloader/internal/model"
)

// ActivityWriter renders ledger events as Markdown.
type ActivityWriter struct {
	output io.Writer
}

// NewActivityWriter creates an ActivityWriter targeting output.
func NewActivityWriter(output io.Writer) *ActivityWriter {
	return &ActivityWriter{output: output}
}

// Write renders the summary for the given events.
func (w *ActivityWriter) Write(events []model.Event) error {
	md := markdown.NewMarkdown(w.output)

	md.H1("Download Activity Report")
	md.PlainText("")

	w.writeSummary(md, events)
	w.writeFailures(md, events)
	w.writeCursor(md, events)

	return md.Build()
}

func (w *ActivityWriter) writeSummary(md *markdown.Markdown, events []model.Event) {
	var succeeded, failed, notes int
	for _, ev := range events {
		switch {
		case ev.Success != nil && *ev.Success:
			succeeded++
		case ev.Success != nil:
			failed++
		case ev.Message != "":
			notes++
		}
	}

	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"Succeeded", strconv.Itoa(succeeded)},
			{"Failed", strconv.Itoa(failed)},
			{"Notes", strconv.Itoa(notes)},
			{"Total events", strconv.Itoa(len(events))},
		},
	})
	md.PlainText("")
}

func (w *ActivityWriter) writeFailures(md *markdown.Markdown, events []model.Event) {
	failed := logbook.FailedLinks(events)
	if len(failed) == 0 {
		return
	}

	// First error message per failed link, for the table.
	reasons := make(map[string]string, len(failed))
	for _, ev := range events {
		if ev.Link == "" || ev.Success == nil || *ev.Success || ev.Error == "" {
			continue
		}
		if _, ok := reasons[ev.Link]; !ok {
			reasons[ev.Link] = ev.Error
		}
	}

	rows := make([][]string, 0, len(failed))
	for _, link := range failed {
		rows = append(rows, []string{link, reasons[link]})
	}

	md.H2("Failed Links")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Link", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *ActivityWriter) writeCursor(md *markdown.Markdown, events []model.Event) {
	cursor, ok := logbook.LatestStart(events)
	if !ok {
		return
	}
	md.H2("Resume Cursor")
	md.PlainText("")
	md.PlainTextf("The last interrupted listing traversal can continue from %s.", cursor)
}
