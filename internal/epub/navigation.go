package epub

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Navigation sources.
const (
	SourceNCX = "ncx"
	SourceNAV = "nav"
)

// Navigation is a book's table of contents, read from the EPUB 2 NCX or the
// EPUB 3 navigation document.
type Navigation struct {
	Source string // SourceNCX or SourceNAV
	Points []NavPoint
}

// NavPoint is one entry of the table of contents.
type NavPoint struct {
	Label       string
	ContentPath string // archive path without fragment
	Fragment    string
	Children    []NavPoint
}

type ncxDocument struct {
	NavMap struct {
		Points []ncxNavPoint `xml:"navPoint"`
	} `xml:"navMap"`
}

type ncxNavPoint struct {
	Label struct {
		Text string `xml:"text"`
	} `xml:"navLabel"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []ncxNavPoint `xml:"navPoint"`
}

// LoadNavigation reads the table of contents. The NCX wins when both
// documents exist; a missing NCX file falls through to the NAV document.
// It returns nil, nil when the book has neither.
func LoadNavigation(reader *EPUBReader, opf *OPF) (*Navigation, error) {
	if opf.NCXPath != "" {
		data, err := reader.ReadFile(opf.NCXPath)
		switch {
		case err == nil:
			return parseNCX(data, path.Dir(opf.NCXPath))
		case !errors.Is(err, ErrFileNotFound):
			return nil, fmt.Errorf("failed to read NCX: %w", err)
		}
	}

	navPath := opf.NAVPath()
	if navPath == "" {
		return nil, nil
	}
	data, err := reader.ReadFile(navPath)
	if errors.Is(err, ErrFileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read NAV: %w", err)
	}
	return parseNAV(data, path.Dir(navPath))
}

// parseNCX reads the navMap of an NCX document. Targets are resolved
// against baseDir, the NCX file's directory.
func parseNCX(data []byte, baseDir string) (*Navigation, error) {
	var doc ncxDocument
	if err := unmarshalXML(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse NCX: %w", err)
	}
	return &Navigation{Source: SourceNCX, Points: ncxPoints(doc.NavMap.Points, baseDir)}, nil
}

func ncxPoints(points []ncxNavPoint, baseDir string) []NavPoint {
	if len(points) == 0 {
		return nil
	}
	result := make([]NavPoint, 0, len(points))
	for _, p := range points {
		np := NavPoint{
			Label:    collapseSpace(p.Label.Text),
			Children: ncxPoints(p.Children, baseDir),
		}
		np.ContentPath, np.Fragment = resolveSrc(baseDir, p.Content.Src)
		result = append(result, np)
	}
	return result
}

// parseNAV reads the first <nav> typed "toc" of an EPUB 3 navigation
// document. Landmarks and page lists are ignored.
func parseNAV(data []byte, baseDir string) (*Navigation, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse NAV: %w", err)
	}

	nav := &Navigation{Source: SourceNAV}
	doc.Find("nav").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !hasEpubType(s, "toc") {
			return true
		}
		ol := s.ChildrenFiltered("ol").First()
		if ol.Length() == 0 {
			ol = s.Find("ol").First()
		}
		nav.Points = navList(ol, baseDir)
		return false
	})
	return nav, nil
}

func navList(ol *goquery.Selection, baseDir string) []NavPoint {
	var points []NavPoint
	ol.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		points = append(points, navItem(li, baseDir))
	})
	return points
}

// navItem reads one <li>. The first link gives label and target, a nested
// <ol> gives children, and bare text labels an unlinked heading.
func navItem(li *goquery.Selection, baseDir string) NavPoint {
	var (
		np     NavPoint
		linked bool
		text   strings.Builder
	)

	link := func(a *goquery.Selection) {
		if linked {
			return
		}
		linked = true
		np.Label = collapseSpace(a.Text())
		href, _ := a.Attr("href")
		np.ContentPath, np.Fragment = resolveSrc(baseDir, href)
	}

	li.Contents().Each(func(_ int, c *goquery.Selection) {
		node := c.Get(0)
		switch {
		case node.Type == html.TextNode:
			text.WriteString(node.Data)
		case node.Type != html.ElementNode:
		case goquery.NodeName(c) == "ol":
			np.Children = navList(c, baseDir)
		case goquery.NodeName(c) == "a":
			link(c)
		default:
			if a := c.Find("a").First(); a.Length() > 0 {
				link(a)
				return
			}
			text.WriteString(c.Text())
		}
	})

	if !linked {
		np.Label = collapseSpace(text.String())
	}
	return np
}

// hasEpubType reports whether the epub:type attribute lists typeName.
func hasEpubType(s *goquery.Selection, typeName string) bool {
	val, _ := s.Attr("epub:type")
	for _, t := range strings.Fields(val) {
		if t == typeName {
			return true
		}
	}
	return false
}

// resolveSrc splits href into an archive path relative to baseDir and a fragment.
func resolveSrc(baseDir, href string) (target, fragment string) {
	target, fragment, _ = strings.Cut(strings.TrimSpace(href), "#")
	if target == "" {
		return "", fragment
	}
	return joinPath(baseDir, target), fragment
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
