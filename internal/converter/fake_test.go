package converter

import (
	"errors"
	"fmt"

	"github.com/yuanying/epub2md/internal/epub"
)

// fakeBook is an in-memory Book. A chapter of nil means no content.
type fakeBook struct {
	values   map[string][]string
	version  epub.Version
	release  string
	chapters []*string
	toc      []epub.NavPoint
}

func (b *fakeBook) MetadataValue(property string) (string, bool) {
	if v := b.values[property]; len(v) > 0 {
		return v[0], true
	}
	return "", false
}

func (b *fakeBook) MetadataValues(property string) []string {
	return b.values[property]
}

func (b *fakeBook) Version() epub.Version { return b.version }

func (b *fakeBook) ReleaseIdentifier() (string, bool) {
	return b.release, b.release != ""
}

func (b *fakeBook) SpineLen() int { return len(b.chapters) }

func (b *fakeBook) TOC() []epub.NavPoint { return b.toc }

func (b *fakeBook) Chapter(i int) (epub.Chapter, error) {
	if i < 0 || i >= len(b.chapters) || b.chapters[i] == nil {
		return epub.Chapter{}, fmt.Errorf("%w: index %d", epub.ErrNoContent, i)
	}
	return epub.Chapter{Index: i, Href: fmt.Sprintf("ch%d.xhtml", i+1), Content: *b.chapters[i]}, nil
}

func text(s string) *string { return &s }

// identityRenderer returns its input, so chapter content is the Markdown.
type identityRenderer struct{}

func (identityRenderer) Render(html string) (string, error) { return html, nil }

// failingRenderer fails on one exact input.
type failingRenderer struct{ bad string }

func (r failingRenderer) Render(html string) (string, error) {
	if html == r.bad {
		return "", errors.New("render failed")
	}
	return html, nil
}
