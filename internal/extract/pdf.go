package extract

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/Mn3m0syn3/ao3downloader/internal/config"
	"github.com/Mn3m0syn3/ao3downloader/internal/model"
)

// originMarker precedes the origin URL in the text of every PDF the
// archive produces.
const originMarker = "Posted originally on the Archive of Our Own at"

var (
	// pdfURIPattern matches link annotation targets in object
	// dictionaries. Series links ride in annotations, never in the
	// rendered text.
	pdfURIPattern = regexp.MustCompile(`/URI\s*\(([^)]*)\)`)

	// pdfStreamPattern captures raw stream payloads.
	pdfStreamPattern = regexp.MustCompile(`(?s)stream\r?\n(.*?)endstream`)

	// pdfLiteralPattern matches literal strings inside decoded content
	// streams, where text-drawing operators carry the page text.
	pdfLiteralPattern = regexp.MustCompile(`\(((?:\\.|[^\\()])*)\)`)

	pdfWorkPattern     = regexp.MustCompile(`/works/\d+`)
	pdfChaptersPattern = regexp.MustCompile(`Chapters:\s*(\S+)`)
)

// PDFExtractor scans the raw object structure of a PDF artifact with
// regular expressions instead of a full PDF reader. The three facts it
// needs all survive that treatment: the origin link appears in the
// rendered preface text, the chapter stats on a "Chapters:" line, and
// the series links as URI annotations.
type PDFExtractor struct{}

// Examine implements Extractor.
func (p *PDFExtractor) Examine(file string) (model.WorkInfo, error) {
	data, err := os.ReadFile(file) //nolint:gosec // corpus paths come from a directory walk
	if err != nil {
		return model.WorkInfo{}, fmt.Errorf("opening pdf artifact: %w", err)
	}

	var info model.WorkInfo

	text := pdfText(data)
	if idx := strings.Index(text, originMarker); idx >= 0 {
		if work := pdfWorkPattern.FindString(text[idx:]); work != "" {
			info.Link = config.BaseURL + work
		}
	}
	if m := pdfChaptersPattern.FindStringSubmatch(text); m != nil {
		info.Stats = statsMarker + m[1]
	}

	for _, m := range pdfURIPattern.FindAllSubmatch(data, -1) {
		if uri := string(m[1]); strings.Contains(uri, seriesIdentifier) {
			info.Series = append(info.Series, uri)
		}
	}

	return info, nil
}

// pdfText reconstructs readable page text: every stream is
// flate-decoded when possible and its literal strings concatenated.
func pdfText(data []byte) string {
	var b strings.Builder
	for _, m := range pdfStreamPattern.FindAllSubmatch(data, -1) {
		content := m[1]
		if decoded, err := flateDecode(content); err == nil {
			content = decoded
		}
		for _, lit := range pdfLiteralPattern.FindAllSubmatch(content, -1) {
			b.WriteString(unescapePDFString(string(lit[1])))
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func flateDecode(content []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer zr.Close() //nolint:errcheck // read side only
	return io.ReadAll(zr)
}

var pdfStringReplacer = strings.NewReplacer(
	`\(`, "(",
	`\)`, ")",
	`\\`, `\`,
	`\n`, "\n",
	`\r`, "\r",
	`\t`, "\t",
)

func unescapePDFString(s string) string {
	return pdfStringReplacer.Replace(s)
}
