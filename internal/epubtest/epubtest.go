// Package epubtest writes small EPUB archives for tests.
package epubtest

import (
	"archive/zip"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Book describes the archive to write. The zero value writes a valid
// EPUB 2 book with an empty spine and no metadata besides an identifier.
type Book struct {
	Version  string // package version attribute, "2.0" by default
	Title    string
	Creators []string
	Subjects []string
	Language string
	Modified string // dcterms:modified, EPUB 3 only

	// Chapters are XHTML body fragments, one spine entry each.
	Chapters []string

	// TOC labels, one nav point per chapter; nil writes no NCX.
	TOC []string

	// Extra files written verbatim, keyed by archive path.
	Extra map[string]string
}

// Write creates dir/name as an EPUB archive and returns its path.
func Write(t testing.TB, dir, name string, b Book) string {
	t.Helper()

	epubPath := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(epubPath), 0o755); err != nil {
		t.Fatalf("failed to create fixture directory: %v", err)
	}
	f, err := os.Create(epubPath)
	if err != nil {
		t.Fatalf("failed to create test epub: %v", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	defer w.Close()

	// mimetype (must be uncompressed/stored)
	mw, err := w.CreateHeader(&zip.FileHeader{
		Name:   "mimetype",
		Method: zip.Store,
	})
	if err != nil {
		t.Fatalf("failed to create mimetype: %v", err)
	}
	mw.Write([]byte("application/epub+zip"))

	files := map[string]string{
		"META-INF/container.xml": `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`,
		"OEBPS/content.opf": b.opf(),
	}
	for i, body := range b.Chapters {
		files[fmt.Sprintf("OEBPS/chapter%d.xhtml", i+1)] = Page(fmt.Sprintf("Chapter %d", i+1), body)
	}
	if b.TOC != nil {
		files["OEBPS/toc.ncx"] = b.ncx()
	}
	for path, content := range b.Extra {
		files[path] = content
	}

	for path, content := range files {
		fw, err := w.Create(path)
		if err != nil {
			t.Fatalf("failed to create %s: %v", path, err)
		}
		fw.Write([]byte(content))
	}

	return epubPath
}

// WriteCorrupt creates dir/name with bytes that are not a zip archive.
func WriteCorrupt(t testing.TB, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("failed to create fixture directory: %v", err)
	}
	if err := os.WriteFile(p, []byte("this is not an epub"), 0o644); err != nil {
		t.Fatalf("failed to write corrupt epub: %v", err)
	}
	return p
}

// Page wraps a body fragment in an XHTML document.
func Page(title, body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>` + html.EscapeString(title) + `</title></head>
<body>` + body + `</body>
</html>`
}

func (b Book) opf() string {
	version := b.Version
	if version == "" {
		version = "2.0"
	}

	var md strings.Builder
	if b.Title != "" {
		fmt.Fprintf(&md, "    <dc:title>%s</dc:title>\n", html.EscapeString(b.Title))
	}
	for _, c := range b.Creators {
		fmt.Fprintf(&md, "    <dc:creator>%s</dc:creator>\n", html.EscapeString(c))
	}
	for _, s := range b.Subjects {
		fmt.Fprintf(&md, "    <dc:subject>%s</dc:subject>\n", html.EscapeString(s))
	}
	if b.Language != "" {
		fmt.Fprintf(&md, "    <dc:language>%s</dc:language>\n", b.Language)
	}
	md.WriteString("    <dc:identifier id=\"bookid\">urn:uuid:00000000-0000-0000-0000-000000000001</dc:identifier>\n")
	if b.Modified != "" {
		fmt.Fprintf(&md, "    <meta property=\"dcterms:modified\">%s</meta>\n", b.Modified)
	}

	var manifest, spine strings.Builder
	if b.TOC != nil {
		manifest.WriteString("    <item id=\"ncx\" href=\"toc.ncx\" media-type=\"application/x-dtbncx+xml\"/>\n")
	}
	for i := range b.Chapters {
		fmt.Fprintf(&manifest, "    <item id=\"ch%d\" href=\"chapter%d.xhtml\" media-type=\"application/xhtml+xml\"/>\n", i+1, i+1)
		fmt.Fprintf(&spine, "    <itemref idref=\"ch%d\"/>\n", i+1)
	}

	toc := ""
	if b.TOC != nil {
		toc = ` toc="ncx"`
	}

	return `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="` + version + `" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
` + md.String() + `  </metadata>
  <manifest>
` + manifest.String() + `  </manifest>
  <spine` + toc + `>
` + spine.String() + `  </spine>
</package>`
}

func (b Book) ncx() string {
	var points strings.Builder
	for i, label := range b.TOC {
		fmt.Fprintf(&points, `    <navPoint id="np%d" playOrder="%d">
      <navLabel><text>%s</text></navLabel>
      <content src="chapter%d.xhtml"/>
    </navPoint>
`, i+1, i+1, html.EscapeString(label), i+1)
	}
	return `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <head><meta name="dtb:uid" content="urn:uuid:00000000-0000-0000-0000-000000000001"/></head>
  <docTitle><text>` + html.EscapeString(b.Title) + `</text></docTitle>
  <navMap>
` + points.String() + `  </navMap>
</ncx>`
}
