package model

import "time"

// TimestampLayout is the wall-clock format used for every ledger event.
// The layout is shared by the writer and the resume-cursor reader, which
// sorts events by parsed timestamp.
const TimestampLayout = "01/02/2006, 15:04:05"

// Event is one line of the append-only activity ledger.
//
// Two shapes share this struct:
//
//   - a work-outcome event carries Link, Title, Success, and optionally
//     Error, Stacktrace, and Series;
//   - a resume-cursor event carries only Starting, the next listing page
//     to process.
//
// Message, Path, and Image appear on informational events written while
// scanning a local corpus or saving embedded images. All fields except
// Timestamp are optional so that each line serializes only what the
// event actually recorded.
type Event struct {
	// Link is the work or series URL this event is about.
	Link string `json:"link,omitempty"`

	// Title is the work title, when it was extracted before the outcome.
	Title string `json:"title,omitempty"`

	// Series is the series title a work download was tagged with.
	Series string `json:"series,omitempty"`

	// Success records the terminal outcome of a download attempt.
	// It is a pointer so that resume-cursor and informational events
	// omit the field entirely rather than reporting false.
	Success *bool `json:"success,omitempty"`

	// Error is the error message for a failed attempt.
	Error string `json:"error,omitempty"`

	// Stacktrace is captured only for errors that are not one of the
	// system's own named conditions.
	Stacktrace string `json:"stacktrace,omitempty"`

	// Message annotates informational events (corpus scan notes,
	// image save failures).
	Message string `json:"message,omitempty"`

	// Path is the local file an informational event refers to.
	Path string `json:"path,omitempty"`

	// Image is the image URL an image-save event refers to.
	Image string `json:"img,omitempty"`

	// Starting marks a resume-cursor event: the next listing page URL.
	Starting string `json:"starting,omitempty"`

	// Timestamp is the event time in TimestampLayout format.
	// The writer fills it in on append.
	Timestamp string `json:"timestamp,omitempty"`
}

// IsStart reports whether the event is a resume cursor.
func (e *Event) IsStart() bool {
	return e.Starting != ""
}

// Time parses the event timestamp. Events with a missing or malformed
// timestamp sort before every valid one.
func (e *Event) Time() time.Time {
	t, err := time.Parse(TimestampLayout, e.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Outcome builds a work-outcome event. Success is set explicitly so the
// field is serialized for both outcomes.
func Outcome(link, title string, success bool) Event {
	return Event{Link: link, Title: title, Success: &success}
}

// Start builds a resume-cursor event pointing at the next listing page.
func Start(next string) Event {
	return Event{Starting: next}
}
