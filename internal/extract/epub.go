package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/net/html"

	"github.com/Mn3m0syn3/ao3downloader/internal/model"
)

// containerPath is the fixed location of the EPUB container descriptor.
const containerPath = "META-INF/container.xml"

// statsClass is the class the archive's EPUB converter assigns to the
// chapter-progress element in the preface.
const statsClass = "calibre5"

// epubContainer models the part of container.xml that locates the
// package document.
type epubContainer struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

// epubPackage models the manifest and spine of the package document.
type epubPackage struct {
	Manifest struct {
		Items []epubItem `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		Itemrefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

type epubItem struct {
	ID        string `xml:"id,attr"`
	Href      string `xml:"href,attr"`
	MediaType string `xml:"media-type,attr"`
}

// EPUBExtractor reads the preface of an EPUB artifact: the first XHTML
// part in reading order. The preface carries the origin link, the
// chapter stats, and the series links; later parts hold chapter text
// and are never inspected, so user-authored links cannot confuse the
// origin lookup.
type EPUBExtractor struct{}

// Examine implements Extractor.
func (e *EPUBExtractor) Examine(file string) (model.WorkInfo, error) {
	zr, err := zip.OpenReader(file)
	if err != nil {
		return model.WorkInfo{}, fmt.Errorf("opening epub: %w", err)
	}
	defer zr.Close() //nolint:errcheck // read side only

	preface, err := prefaceDocument(&zr.Reader)
	if err != nil {
		return model.WorkInfo{}, err
	}
	return parseEPUBPreface(strings.NewReader(preface))
}

// prefaceDocument resolves the first XHTML part in spine order and
// returns its content.
func prefaceDocument(zr *zip.Reader) (string, error) {
	raw, err := readZipFile(zr, containerPath)
	if err != nil {
		return "", fmt.Errorf("reading epub container: %w", err)
	}
	var container epubContainer
	if err := xml.Unmarshal(raw, &container); err != nil {
		return "", fmt.Errorf("parsing epub container: %w", err)
	}
	if len(container.Rootfiles) == 0 {
		return "", fmt.Errorf("epub container names no package document")
	}
	opfPath := container.Rootfiles[0].FullPath

	raw, err = readZipFile(zr, opfPath)
	if err != nil {
		return "", fmt.Errorf("reading epub package document: %w", err)
	}
	var pkg epubPackage
	if err := xml.Unmarshal(raw, &pkg); err != nil {
		return "", fmt.Errorf("parsing epub package document: %w", err)
	}

	href, ok := firstDocumentHref(&pkg)
	if !ok {
		return "", fmt.Errorf("epub has no xhtml document part")
	}
	raw, err = readZipFile(zr, path.Join(path.Dir(opfPath), href))
	if err != nil {
		return "", fmt.Errorf("reading epub preface: %w", err)
	}
	return string(raw), nil
}

// firstDocumentHref walks the spine for the first XHTML manifest item,
// falling back to manifest order when the spine is unusable.
func firstDocumentHref(pkg *epubPackage) (string, bool) {
	byID := make(map[string]epubItem, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		byID[item.ID] = item
	}
	for _, ref := range pkg.Spine.Itemrefs {
		if item, ok := byID[ref.IDRef]; ok && isXHTML(item.MediaType) {
			return item.Href, true
		}
	}
	for _, item := range pkg.Manifest.Items {
		if isXHTML(item.MediaType) {
			return item.Href, true
		}
	}
	return "", false
}

func isXHTML(mediaType string) bool {
	return mediaType == "application/xhtml+xml"
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	f, err := zr.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read side only
	return io.ReadAll(f)
}

// parseEPUBPreface pulls the origin link, stats, and series links out
// of the preface markup.
func parseEPUBPreface(r io.Reader) (model.WorkInfo, error) {
	root, err := html.Parse(r)
	if err != nil {
		return model.WorkInfo{}, fmt.Errorf("parsing epub preface: %w", err)
	}

	var info model.WorkInfo
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "a":
				href := nodeAttr(n, "href")
				if info.Link == "" && strings.Contains(href, workIdentifier) {
					info.Link = href
				}
				if strings.Contains(href, seriesIdentifier) {
					info.Series = append(info.Series, href)
				}
			case "dd":
				if info.Stats == "" && strings.Contains(nodeAttr(n, "class"), statsClass) {
					info.Stats = strings.TrimSpace(nodeText(n))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return info, nil
}

func nodeAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
