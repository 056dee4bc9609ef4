package extract

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Mn3m0syn3/ao3downloader/internal/model"
)

// Palm database constants for the Mobipocket family. AZW3 and MOBI
// share the container; only the payload inside differs.
const (
	palmHeaderSize      = 78
	palmRecordEntrySize = 8
	palmTypeCreator     = "BOOKMOBI"

	compressionNone    = 1
	compressionPalmDoc = 2
)

// AZW3Extractor unpacks an AZW3 container and expects an EPUB payload,
// which is what the archive's converter always produces. Any other
// payload means the file did not come from the archive, which is
// reported as a zero WorkInfo rather than an error.
type AZW3Extractor struct {
	inner *EPUBExtractor
}

// Examine implements Extractor.
func (a *AZW3Extractor) Examine(file string) (model.WorkInfo, error) {
	payload, err := unpackPalm(file)
	if err != nil {
		return model.WorkInfo{}, err
	}

	if !isZipPayload(payload) {
		return model.WorkInfo{}, nil
	}

	tempDir, err := os.MkdirTemp("", "ao3dl-azw3-")
	if err != nil {
		return model.WorkInfo{}, err
	}
	defer os.RemoveAll(tempDir) //nolint:errcheck // best-effort cleanup

	payloadPath := filepath.Join(tempDir, "payload.epub")
	if err := os.WriteFile(payloadPath, payload, 0o600); err != nil {
		return model.WorkInfo{}, err
	}
	return a.inner.Examine(payloadPath)
}

// MOBIExtractor unpacks a MOBI container and expects an HTML payload.
// The unpacked markup is poorly formed, so the selectors are looser
// than the flat-HTML extractor's: first matching link wins, stats live
// in a blockquote, and series links sit in the blockquote following a
// bare "Series:" paragraph.
type MOBIExtractor struct{}

// Examine implements Extractor.
func (m *MOBIExtractor) Examine(file string) (model.WorkInfo, error) {
	payload, err := unpackPalm(file)
	if err != nil {
		return model.WorkInfo{}, err
	}

	if !isHTMLPayload(payload) {
		return model.WorkInfo{}, nil
	}

	tempDir, err := os.MkdirTemp("", "ao3dl-mobi-")
	if err != nil {
		return model.WorkInfo{}, err
	}
	defer os.RemoveAll(tempDir) //nolint:errcheck // best-effort cleanup

	payloadPath := filepath.Join(tempDir, "payload.html")
	if err := os.WriteFile(payloadPath, payload, 0o600); err != nil {
		return model.WorkInfo{}, err
	}
	return examineMobiHTML(payloadPath)
}

func examineMobiHTML(file string) (model.WorkInfo, error) {
	f, err := os.Open(file) //nolint:gosec // temp file created above
	if err != nil {
		return model.WorkInfo{}, err
	}
	defer f.Close() //nolint:errcheck // read side only

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return model.WorkInfo{}, fmt.Errorf("parsing mobi payload: %w", err)
	}

	var info model.WorkInfo

	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if href := a.AttrOr("href", ""); strings.Contains(href, workIdentifier) {
			info.Link = href
			return false
		}
		return true
	})

	doc.Find("blockquote").EachWithBreak(func(_ int, bq *goquery.Selection) bool {
		if strings.Contains(bq.Text(), statsMarker) {
			info.Stats = bq.Text()
			return false
		}
		return true
	})

	doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if strings.TrimSpace(p.Text()) != "Series:" {
			return true
		}
		p.NextAllFiltered("blockquote").First().Find("a").Each(func(_ int, a *goquery.Selection) {
			if href := a.AttrOr("href", ""); strings.Contains(href, seriesIdentifier) {
				info.Series = append(info.Series, href)
			}
		})
		return false
	})

	return info, nil
}

// unpackPalm reads a Palm database file and reassembles its text
// records into the contained payload.
func unpackPalm(file string) ([]byte, error) {
	data, err := os.ReadFile(file) //nolint:gosec // corpus paths come from a directory walk
	if err != nil {
		return nil, fmt.Errorf("opening palm container: %w", err)
	}
	if len(data) < palmHeaderSize {
		return nil, fmt.Errorf("palm container too short: %d bytes", len(data))
	}
	if string(data[60:68]) != palmTypeCreator {
		return nil, fmt.Errorf("not a mobipocket container: type %q", data[60:68])
	}

	numRecords := int(binary.BigEndian.Uint16(data[76:78]))
	if numRecords < 2 {
		return nil, fmt.Errorf("palm container has no text records")
	}
	offsets, err := palmRecordOffsets(data, numRecords)
	if err != nil {
		return nil, err
	}

	header := data[offsets[0]:offsets[1]]
	if len(header) < 10 {
		return nil, fmt.Errorf("palmdoc header too short")
	}
	compression := int(binary.BigEndian.Uint16(header[0:2]))
	textRecords := int(binary.BigEndian.Uint16(header[8:10]))
	if textRecords > numRecords-1 {
		textRecords = numRecords - 1
	}

	var payload []byte
	for i := 1; i <= textRecords; i++ {
		record := data[offsets[i]:offsets[i+1]]
		switch compression {
		case compressionNone:
			payload = append(payload, record...)
		case compressionPalmDoc:
			payload = append(payload, palmDocDecompress(record)...)
		default:
			return nil, fmt.Errorf("unsupported palm compression %d", compression)
		}
	}
	return payload, nil
}

// palmRecordOffsets returns numRecords+1 offsets, the last being the
// file length, so record i spans offsets[i]:offsets[i+1].
func palmRecordOffsets(data []byte, numRecords int) ([]int, error) {
	listEnd := palmHeaderSize + numRecords*palmRecordEntrySize
	if len(data) < listEnd {
		return nil, fmt.Errorf("palm record list truncated")
	}
	offsets := make([]int, numRecords+1)
	for i := 0; i < numRecords; i++ {
		entry := palmHeaderSize + i*palmRecordEntrySize
		offsets[i] = int(binary.BigEndian.Uint32(data[entry : entry+4]))
	}
	offsets[numRecords] = len(data)
	for i := 0; i < numRecords; i++ {
		if offsets[i] < listEnd || offsets[i] > offsets[i+1] {
			return nil, fmt.Errorf("palm record %d has invalid offset", i)
		}
	}
	return offsets, nil
}

// palmDocDecompress expands one PalmDOC-compressed text record.
func palmDocDecompress(record []byte) []byte {
	out := make([]byte, 0, len(record)*2)
	for i := 0; i < len(record); {
		c := record[i]
		i++
		switch {
		case c == 0x00:
			out = append(out, c)
		case c <= 0x08:
			n := int(c)
			if i+n > len(record) {
				n = len(record) - i
			}
			out = append(out, record[i:i+n]...)
			i += n
		case c <= 0x7f:
			out = append(out, c)
		case c <= 0xbf:
			if i >= len(record) {
				return out
			}
			pair := int(c&0x3f)<<8 | int(record[i])
			i++
			distance := pair >> 3
			length := pair&0x07 + 3
			for n := 0; n < length; n++ {
				pos := len(out) - distance
				if pos < 0 {
					return out
				}
				out = append(out, out[pos])
			}
		default:
			out = append(out, ' ', c^0x80)
		}
	}
	return out
}

func isZipPayload(payload []byte) bool {
	return bytes.HasPrefix(payload, []byte("PK\x03\x04"))
}

func isHTMLPayload(payload []byte) bool {
	head := strings.ToLower(string(bytes.TrimSpace(payloadHead(payload))))
	return strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<html")
}

func payloadHead(payload []byte) []byte {
	if len(payload) > 1024 {
		return payload[:1024]
	}
	return payload
}
