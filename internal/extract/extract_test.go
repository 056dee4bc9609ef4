package extract

import (
	"archive/zip"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const prefaceXHTML = `<html xmlns="http://www.w3.org/1999/xhtml"><body>
<p>Posted originally on <a href="https://archiveofourown.org/works/123">the archive</a>.</p>
<dl><dt>Chapters:</dt><dd class="calibre5">3/10</dd></dl>
<p>Series: <a href="https://archiveofourown.org/series/55">Part 1 of a series</a></p>
</body></html>`

func writeEPUB(t *testing.T, preface string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "work.epub")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	add := func(name, content string) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	add("META-INF/container.xml", `<?xml version="1.0"?>
<container><rootfiles>
<rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
</rootfiles></container>`)
	add("OEBPS/content.opf", `<?xml version="1.0"?>
<package><manifest>
<item id="preface" href="preface.xhtml" media-type="application/xhtml+xml"/>
<item id="chapter" href="chapter.xhtml" media-type="application/xhtml+xml"/>
</manifest><spine>
<itemref idref="preface"/><itemref idref="chapter"/>
</spine></package>`)
	add("OEBPS/preface.xhtml", preface)
	add("OEBPS/chapter.xhtml", `<html xmlns="http://www.w3.org/1999/xhtml"><body>
<a href="https://archiveofourown.org/works/999">a work linked in chapter text</a>
</body></html>`)
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

// writePalm wraps payload as a single uncompressed text record in a
// Mobipocket container.
func writePalm(t *testing.T, name string, payload []byte) string {
	t.Helper()

	header0 := make([]byte, 16)
	binary.BigEndian.PutUint16(header0[0:2], compressionNone)
	binary.BigEndian.PutUint32(header0[4:8], uint32(len(payload)))
	binary.BigEndian.PutUint16(header0[8:10], 1)
	binary.BigEndian.PutUint16(header0[10:12], uint16(len(payload)))

	buf := make([]byte, palmHeaderSize+2*palmRecordEntrySize)
	copy(buf[60:68], palmTypeCreator)
	binary.BigEndian.PutUint16(buf[76:78], 2)
	binary.BigEndian.PutUint32(buf[78:82], uint32(len(buf)))
	binary.BigEndian.PutUint32(buf[86:90], uint32(len(buf)+len(header0)))
	buf = append(buf, header0...)
	buf = append(buf, payload...)

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, buf, 0o640); err != nil {
		t.Fatal(err)
	}
	return path
}

func assertWorkInfo(t *testing.T, path, format string) {
	t.Helper()

	info, err := NewRegistry().Examine(path, format)
	if err != nil {
		t.Fatalf("examine failed: %v", err)
	}
	if info.Link != "https://archiveofourown.org/works/123" {
		t.Errorf("Link = %q", info.Link)
	}
	if len(info.Series) != 1 || info.Series[0] != "https://archiveofourown.org/series/55" {
		t.Errorf("Series = %v", info.Series)
	}
	if info.Stats == "" {
		t.Error("Stats is empty")
	}
}

func TestEPUBExtractor(t *testing.T) {
	t.Parallel()

	t.Run("reads link, stats and series from the preface", func(t *testing.T) {
		t.Parallel()

		path := writeEPUB(t, prefaceXHTML)
		info, err := NewRegistry().Examine(path, "EPUB")
		if err != nil {
			t.Fatalf("examine failed: %v", err)
		}
		if info.Link != "https://archiveofourown.org/works/123" {
			t.Errorf("chapter-text decoy must not win: Link = %q", info.Link)
		}
		if info.Stats != "3/10" {
			t.Errorf("Stats = %q", info.Stats)
		}
		if len(info.Series) != 1 || info.Series[0] != "https://archiveofourown.org/series/55" {
			t.Errorf("Series = %v", info.Series)
		}
	})

	t.Run("not a zip file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "broken.epub")
		if err := os.WriteFile(path, []byte("not a zip"), 0o640); err != nil {
			t.Fatal(err)
		}
		if _, err := NewRegistry().Examine(path, "EPUB"); err == nil {
			t.Error("expected error for non-zip input")
		}
	})
}

func TestHTMLExtractor(t *testing.T) {
	t.Parallel()

	t.Run("reads the preface block", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "work.html")
		content := `<html><body><div id="preface">
<p class="message">
<a href="https://archiveofourown.org/">the archive</a>
<a href="https://archiveofourown.org/works/123">this work</a>
</p>
<div class="meta"><dl class="tags">
<dt>Chapters:</dt><dd>Chapters: 3/10</dd>
<dt>Series:</dt><dd><a href="https://archiveofourown.org/series/55">Part 1</a></dd>
</dl></div>
</div></body></html>`
		if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
			t.Fatal(err)
		}
		assertWorkInfo(t, path, "HTML")
	})

	t.Run("message without exactly two links has no origin", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "other.html")
		content := `<html><body><div id="preface">
<p class="message"><a href="https://example.com/works/1">one link only</a></p>
</div></body></html>`
		if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
			t.Fatal(err)
		}
		info, err := NewRegistry().Examine(path, "HTML")
		if err != nil {
			t.Fatalf("examine failed: %v", err)
		}
		if info.Link != "" {
			t.Errorf("expected no origin link, got %q", info.Link)
		}
	})
}

func TestAZW3Extractor(t *testing.T) {
	t.Parallel()

	t.Run("unpacks an epub payload", func(t *testing.T) {
		t.Parallel()

		epubBytes, err := os.ReadFile(writeEPUB(t, prefaceXHTML))
		if err != nil {
			t.Fatal(err)
		}
		path := writePalm(t, "work.azw3", epubBytes)
		assertWorkInfo(t, path, "AZW3")
	})

	t.Run("non-epub payload is not from the archive", func(t *testing.T) {
		t.Parallel()

		path := writePalm(t, "foreign.azw3", []byte("<html><body>plain text book</body></html>"))
		info, err := NewRegistry().Examine(path, "AZW3")
		if err != nil {
			t.Fatalf("examine failed: %v", err)
		}
		if info.Link != "" || info.Stats != "" || info.Series != nil {
			t.Errorf("expected zero info, got %+v", info)
		}
	})
}

func TestMOBIExtractor(t *testing.T) {
	t.Parallel()

	t.Run("unpacks an html payload", func(t *testing.T) {
		t.Parallel()

		payload := []byte(`<html><body>
<a href="https://archiveofourown.org/works/123">title</a>
<blockquote>Chapters: 3/10</blockquote>
<p>Series:</p>
<blockquote><a href="https://archiveofourown.org/series/55">Part 1</a></blockquote>
</body></html>`)
		path := writePalm(t, "work.mobi", payload)
		assertWorkInfo(t, path, "MOBI")
	})

	t.Run("non-html payload is not from the archive", func(t *testing.T) {
		t.Parallel()

		path := writePalm(t, "foreign.mobi", []byte("PK\x03\x04not really html"))
		info, err := NewRegistry().Examine(path, "MOBI")
		if err != nil {
			t.Fatalf("examine failed: %v", err)
		}
		if info.Link != "" {
			t.Errorf("expected zero info, got %+v", info)
		}
	})

	t.Run("rejects a container that is not mobipocket", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "random.mobi")
		if err := os.WriteFile(path, make([]byte, 200), 0o640); err != nil {
			t.Fatal(err)
		}
		if _, err := NewRegistry().Examine(path, "MOBI"); err == nil {
			t.Error("expected error for foreign container")
		}
	})
}

func TestPDFExtractor(t *testing.T) {
	t.Parallel()

	pdf := `%PDF-1.4
1 0 obj
<< /Type /Annot /A << /S /URI /URI (https://archiveofourown.org/series/55) >> >>
endobj
2 0 obj
<< /Type /Annot /A << /S /URI /URI (https://example.com/elsewhere) >> >>
endobj
3 0 obj
<< /Length 160 >>
stream
BT (Posted originally on the Archive of Our Own at https://archiveofourown.org/works/123.) Tj ET
BT (Published: 2020-01-01 Chapters: 3/10 Words: 5000) Tj ET
endstream
endobj
%%EOF`

	path := filepath.Join(t.TempDir(), "work.pdf")
	if err := os.WriteFile(path, []byte(pdf), 0o640); err != nil {
		t.Fatal(err)
	}

	info, err := NewRegistry().Examine(path, "PDF")
	if err != nil {
		t.Fatalf("examine failed: %v", err)
	}
	if info.Link != "https://archiveofourown.org/works/123" {
		t.Errorf("Link = %q", info.Link)
	}
	if info.Stats != "Chapters: 3/10" {
		t.Errorf("Stats = %q", info.Stats)
	}
	if len(info.Series) != 1 || info.Series[0] != "https://archiveofourown.org/series/55" {
		t.Errorf("Series = %v", info.Series)
	}
}

func TestRegistryUnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry().Examine("whatever.docx", "DOCX")
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestPalmDocDecompress(t *testing.T) {
	t.Parallel()

	t.Run("literals and byte pairs", func(t *testing.T) {
		t.Parallel()

		// "abc" literally, then a space+d byte pair.
		got := palmDocDecompress([]byte{'a', 'b', 'c', 0x80 | 'd'})
		if string(got) != "abc d" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("length distance pair", func(t *testing.T) {
		t.Parallel()

		// "abcd" then copy 3 bytes from distance 4: "abcdabc".
		pair := uint16(4<<3 | 0)
		got := palmDocDecompress([]byte{'a', 'b', 'c', 'd', 0x80 | byte(pair>>8), byte(pair)})
		if string(got) != "abcdabc" {
			t.Errorf("got %q", got)
		}
	})
}
