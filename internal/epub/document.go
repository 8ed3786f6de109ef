package epub

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoContent is returned for spine entries that have nothing to render.
var ErrNoContent = errors.New("no content for spine entry")

// Document is an opened EPUB book: archive, package document and navigation.
// Chapters are addressed by spine index. A Document is not safe for
// concurrent use; open one per goroutine.
type Document struct {
	reader *EPUBReader
	opf    *OPF
	nav    *Navigation
	navErr error
}

// Chapter is the decoded content of one spine entry.
type Chapter struct {
	Index     int
	ID        string
	Href      string
	MediaType string
	Content   string // UTF-8 XHTML
}

// OpenDocument opens the EPUB at path and parses its package document.
// A missing or unreadable table of contents does not fail the open;
// it is reported by NavError.
func OpenDocument(path string) (*Document, error) {
	reader, err := Open(path)
	if err != nil {
		return nil, err
	}

	opfData, err := reader.ReadFile(reader.OPFPath())
	if err != nil {
		reader.Close()
		return nil, fmt.Errorf("failed to read OPF: %w", err)
	}

	opf, err := ParseOPF(opfData, dirOf(reader.OPFPath()))
	if err != nil {
		reader.Close()
		return nil, fmt.Errorf("failed to parse OPF: %w", err)
	}

	doc := &Document{reader: reader, opf: opf}
	doc.nav, doc.navErr = LoadNavigation(reader, opf)
	return doc, nil
}

// Close releases the underlying archive.
func (d *Document) Close() error {
	return d.reader.Close()
}

// OPF returns the parsed package document.
func (d *Document) OPF() *OPF {
	return d.opf
}

// MetadataValue returns the first metadata entry for property.
func (d *Document) MetadataValue(property string) (string, bool) {
	return d.opf.Value(property)
}

// MetadataValues returns all metadata entries for property.
func (d *Document) MetadataValues(property string) []string {
	return d.opf.Values(property)
}

// Version returns the declared EPUB version.
func (d *Document) Version() Version {
	return d.opf.Version
}

// ReleaseIdentifier returns the EPUB 3 release identifier when available.
func (d *Document) ReleaseIdentifier() (string, bool) {
	return d.opf.ReleaseIdentifier()
}

// SpineLen returns the number of entries in the reading order.
func (d *Document) SpineLen() int {
	return len(d.opf.Spine)
}

// TOC returns the top-level navigation points, or nil without navigation.
func (d *Document) TOC() []NavPoint {
	if d.nav == nil {
		return nil
	}
	return d.nav.Points
}

// NavSource reports where the table of contents came from, SourceNCX or
// SourceNAV, or "" when the book has none.
func (d *Document) NavSource() string {
	if d.nav == nil {
		return ""
	}
	return d.nav.Source
}

// NavError returns the error met while loading navigation, if any.
func (d *Document) NavError() error {
	return d.navErr
}

// Chapter reads and decodes the spine entry at index i.
// Entries outside the spine, without a manifest item or with a non-text
// media type yield ErrNoContent.
func (d *Document) Chapter(i int) (Chapter, error) {
	if i < 0 || i >= len(d.opf.Spine) {
		return Chapter{}, fmt.Errorf("%w: index %d out of range", ErrNoContent, i)
	}

	ref := d.opf.Spine[i]
	item, ok := d.opf.Manifest[ref.IDRef]
	if !ok {
		return Chapter{}, fmt.Errorf("%w: spine item %q not in manifest", ErrNoContent, ref.IDRef)
	}
	if !isTextual(item.MediaType) {
		return Chapter{}, fmt.Errorf("%w: %s has media type %q", ErrNoContent, item.Href, item.MediaType)
	}

	data, err := d.reader.ReadFile(item.Href)
	if err != nil {
		return Chapter{}, err
	}

	content, err := decodeContent(data, item.MediaType)
	if err != nil {
		return Chapter{}, fmt.Errorf("%s: %w", item.Href, err)
	}

	return Chapter{
		Index:     i,
		ID:        item.ID,
		Href:      item.Href,
		MediaType: item.MediaType,
		Content:   content,
	}, nil
}

// Title returns the first heading of the chapter, falling back to the
// document <title>. Empty when neither is present.
func (c Chapter) Title() string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(c.Content))
	if err != nil {
		return ""
	}
	if h := collapseSpace(doc.Find("body h1, body h2, body h3").First().Text()); h != "" {
		return h
	}
	return collapseSpace(doc.Find("head title").First().Text())
}

// isTextual accepts HTML flavours and untyped items.
func isTextual(mediaType string) bool {
	if mediaType == "" {
		return true
	}
	return strings.Contains(mediaType, "html") || strings.HasPrefix(mediaType, "text/")
}

func dirOf(p string) string {
	dir := path.Dir(p)
	if dir == "." {
		return ""
	}
	return dir
}
