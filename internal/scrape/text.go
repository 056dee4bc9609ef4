package scrape

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxFilenameLength bounds sanitized titles so artifact names stay well
// under filesystem limits even with the " img000.ext" image suffix.
const maxFilenameLength = 100

// invalidFilenameRunes are stripped from titles before use as filenames.
// The dot is included so artifact kind extensions stay unambiguous.
const invalidFilenameRunes = `<>:"/\|?*.`

// SanitizeFilename derives a safe filename from a work title: NFC
// normalization, then removal of control and path-unsafe characters,
// truncation, and trimming.
func SanitizeFilename(title string) string {
	title = norm.NFC.String(title)

	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		if r < 32 || strings.ContainsRune(invalidFilenameRunes, r) {
			continue
		}
		b.WriteRune(r)
	}

	runes := []rune(b.String())
	if len(runes) > maxFilenameLength {
		runes = runes[:maxFilenameLength]
	}
	return strings.TrimSpace(string(runes))
}

// NextPage advances a listing URL's pagination cursor: it appends
// page=2 when no page parameter exists, otherwise increments the
// existing page number in place.
func NextPage(link string) string {
	index := strings.Index(link, "page=")
	if index == -1 {
		if !strings.Contains(link, "?") {
			return link + "?page=2"
		}
		return link + "&page=2"
	}
	page := numFromLink(link, index+5)
	next := strconv.Itoa(atoi(page) + 1)
	return strings.Replace(link, "page="+page, "page="+next, 1)
}

// PageNumber reports the page a listing URL points at, defaulting to 1
// when the URL carries no page parameter.
func PageNumber(link string) int {
	index := strings.Index(link, "page=")
	if index == -1 {
		return 1
	}
	return atoi(numFromLink(link, index+5))
}

// numFromLink reads the run of digits starting at index.
func numFromLink(link string, index int) string {
	end := index
	for end < len(link) && link[end] >= '0' && link[end] <= '9' {
		end++
	}
	return link[index:end]
}

// CurrentToken reads the chapter-progress token that precedes the
// separator at index: scan backwards from the separator until
// whitespace, then un-reverse. Tokens are opaque ordinals; callers
// compare them structurally, never numerically.
func CurrentToken(text string, index int) string {
	runes := []rune(text[:index])
	start := len(runes)
	for start > 0 && !unicode.IsSpace(runes[start-1]) {
		start--
	}
	return string(runes[start:])
}

// TotalToken reads the token that follows the separator at index,
// stopping at the first whitespace.
func TotalToken(text string, index int) string {
	rest := []rune(text[index+1:])
	end := 0
	for end < len(rest) && !unicode.IsSpace(rest[end]) {
		end++
	}
	return string(rest[:end])
}

// atoi parses a digit run; inputs come from numFromLink and are digits
// by construction, so parse failures and empty input both yield 0.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
