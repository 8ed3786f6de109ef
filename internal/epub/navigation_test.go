package epub

import (
	"archive/zip"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// writeArchive creates an EPUB with a stored mimetype, a container pointing
// at OEBPS/content.opf, and the given files.
func writeArchive(t *testing.T, files map[string]string) string {
	t.Helper()
	epubPath := filepath.Join(t.TempDir(), "test.epub")
	f, err := os.Create(epubPath)
	if err != nil {
		t.Fatalf("failed to create test epub: %v", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	defer w.Close()

	mw, err := w.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		t.Fatalf("failed to create mimetype: %v", err)
	}
	mw.Write([]byte("application/epub+zip"))

	all := map[string]string{
		"META-INF/container.xml": `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`,
	}
	for name, content := range files {
		all[name] = content
	}
	for name, content := range all {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
		fw.Write([]byte(content))
	}
	return epubPath
}

const nestedNCX = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <head><meta name="dtb:uid" content="x"/></head>
  <docTitle><text>Ignored</text></docTitle>
  <navMap>
    <navPoint id="p1" playOrder="1">
      <navLabel><text>
        Part   One </text></navLabel>
      <content src="text/part1.xhtml"/>
      <navPoint id="c1" playOrder="2">
        <navLabel><text>Chapter 1</text></navLabel>
        <content src="text/ch1.xhtml#start"/>
        <navPoint id="s1" playOrder="3">
          <navLabel><text>Section 1.1</text></navLabel>
          <content src="../extra/s.xhtml#s1"/>
        </navPoint>
      </navPoint>
      <navPoint id="c2" playOrder="4">
        <navLabel><text>Chapter&#160;2</text></navLabel>
        <content src="text/ch2.xhtml"/>
      </navPoint>
    </navPoint>
    <navPoint id="p2" playOrder="5">
      <navLabel><text>Part Two</text></navLabel>
      <content src="./text/part2.xhtml"/>
    </navPoint>
  </navMap>
</ncx>`

func TestParseNCX(t *testing.T) {
	nav, err := parseNCX([]byte(nestedNCX), "OEBPS")
	if err != nil {
		t.Fatalf("parseNCX() error = %v", err)
	}

	want := []NavPoint{
		{Label: "Part One", ContentPath: "OEBPS/text/part1.xhtml", Children: []NavPoint{
			{Label: "Chapter 1", ContentPath: "OEBPS/text/ch1.xhtml", Fragment: "start", Children: []NavPoint{
				{Label: "Section 1.1", ContentPath: "extra/s.xhtml", Fragment: "s1"},
			}},
			{Label: "Chapter 2", ContentPath: "OEBPS/text/ch2.xhtml"},
		}},
		{Label: "Part Two", ContentPath: "OEBPS/text/part2.xhtml"},
	}
	if nav.Source != SourceNCX {
		t.Errorf("Source = %q, want %q", nav.Source, SourceNCX)
	}
	if !reflect.DeepEqual(nav.Points, want) {
		t.Errorf("Points =\n%+v\nwant\n%+v", nav.Points, want)
	}
}

func TestParseNCX_EmptyAndInvalid(t *testing.T) {
	nav, err := parseNCX([]byte(`<ncx><navMap/></ncx>`), "")
	if err != nil {
		t.Fatalf("parseNCX() error = %v", err)
	}
	if nav.Points != nil {
		t.Errorf("Points = %+v, want nil", nav.Points)
	}

	if _, err := parseNCX(nil, ""); err == nil {
		t.Error("parseNCX(nil) should fail")
	}
}

func TestParseNAV(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []NavPoint
	}{
		{
			name: "toc nav chosen over landmarks",
			body: `<nav epub:type="landmarks"><ol><li><a href="cover.xhtml">Cover</a></li></ol></nav>
<nav epub:type="toc"><h1>Contents</h1><ol>
  <li><a href="a.xhtml">A</a></li>
  <li><a href="b.xhtml#b1">B</a></li>
</ol></nav>`,
			want: []NavPoint{
				{Label: "A", ContentPath: "OEBPS/a.xhtml"},
				{Label: "B", ContentPath: "OEBPS/b.xhtml", Fragment: "b1"},
			},
		},
		{
			name: "epub:type with several tokens",
			body: `<nav epub:type="other  toc"><ol><li><a href="a.xhtml">A</a></li></ol></nav>`,
			want: []NavPoint{{Label: "A", ContentPath: "OEBPS/a.xhtml"}},
		},
		{
			name: "unlinked heading with nested list",
			body: `<nav epub:type="toc"><ol>
  <li><span>Part
      One</span>
    <ol>
      <li><a href="text/ch1.xhtml">Chapter
          1</a></li>
      <li><span><a href="text/ch2.xhtml#mid">Chapter 2</a></span></li>
    </ol>
  </li>
  <li><a href="text/end.xhtml">Afterword</a></li>
</ol></nav>`,
			want: []NavPoint{
				{Label: "Part One", Children: []NavPoint{
					{Label: "Chapter 1", ContentPath: "OEBPS/text/ch1.xhtml"},
					{Label: "Chapter 2", ContentPath: "OEBPS/text/ch2.xhtml", Fragment: "mid"},
				}},
				{Label: "Afterword", ContentPath: "OEBPS/text/end.xhtml"},
			},
		},
		{
			name: "no toc nav",
			body: `<nav epub:type="landmarks"><ol><li><a href="cover.xhtml">Cover</a></li></ol></nav>`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>Navigation</title></head>
<body>` + tt.body + `</body></html>`

			nav, err := parseNAV([]byte(doc), "OEBPS")
			if err != nil {
				t.Fatalf("parseNAV() error = %v", err)
			}
			if nav.Source != SourceNAV {
				t.Errorf("Source = %q, want %q", nav.Source, SourceNAV)
			}
			if !reflect.DeepEqual(nav.Points, tt.want) {
				t.Errorf("Points =\n%+v\nwant\n%+v", nav.Points, tt.want)
			}
		})
	}
}

func TestResolveSrc(t *testing.T) {
	tests := []struct {
		base, href       string
		target, fragment string
	}{
		{"OEBPS", "ch.xhtml", "OEBPS/ch.xhtml", ""},
		{"OEBPS", " ch.xhtml#sec ", "OEBPS/ch.xhtml", "sec"},
		{".", "text/ch.xhtml", "text/ch.xhtml", ""},
		{"OEBPS/nav", "../text/ch.xhtml#a#b", "OEBPS/text/ch.xhtml", "a#b"},
		{"OEBPS", "#only", "", "only"},
		{"OEBPS", "", "", ""},
	}
	for _, tt := range tests {
		target, fragment := resolveSrc(tt.base, tt.href)
		if target != tt.target || fragment != tt.fragment {
			t.Errorf("resolveSrc(%q, %q) = %q, %q, want %q, %q",
				tt.base, tt.href, target, fragment, tt.target, tt.fragment)
		}
	}
}

func TestOPF_NAVPath(t *testing.T) {
	tests := []struct {
		name string
		opf  *OPF
		want string
	}{
		{
			name: "nav among several properties",
			opf: &OPF{Manifest: map[string]ManifestItem{
				"nav": {Href: "OEBPS/nav.xhtml", Properties: []string{"scripted", "nav"}},
				"ch1": {Href: "OEBPS/ch1.xhtml"},
			}},
			want: "OEBPS/nav.xhtml",
		},
		{
			name: "first in manifest order wins",
			opf: &OPF{
				Manifest: map[string]ManifestItem{
					"z": {Href: "first.xhtml", Properties: []string{"nav"}},
					"a": {Href: "second.xhtml", Properties: []string{"nav"}},
				},
				ManifestOrder: []string{"z", "a"},
			},
			want: "first.xhtml",
		},
		{
			name: "no nav item",
			opf:  &OPF{Manifest: map[string]ManifestItem{"ch1": {Href: "ch1.xhtml"}}},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.opf.NAVPath(); got != tt.want {
				t.Errorf("NAVPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

// navigationOPF declares an NCX and/or a NAV document in the manifest.
func navigationOPF(withNCX, withNAV bool) string {
	manifest, toc := "", ""
	if withNCX {
		manifest += `<item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>`
		toc = ` toc="ncx"`
	}
	if withNAV {
		manifest += `<item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>`
	}
	return `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata/>
  <manifest>` + manifest + `</manifest>
  <spine` + toc + `/>
</package>`
}

const (
	labelNCX = `<ncx><navMap><navPoint><navLabel><text>From NCX</text></navLabel><content src="ch.xhtml"/></navPoint></navMap></ncx>`
	labelNAV = `<html><body><nav epub:type="toc"><ol><li><a href="ch.xhtml">From NAV</a></li></ol></nav></body></html>`
)

func TestLoadNavigation(t *testing.T) {
	tests := []struct {
		name       string
		files      map[string]string
		wantSource string
		wantLabel  string
	}{
		{
			name: "NCX preferred when both exist",
			files: map[string]string{
				"OEBPS/content.opf": navigationOPF(true, true),
				"OEBPS/toc.ncx":     labelNCX,
				"OEBPS/nav.xhtml":   labelNAV,
			},
			wantSource: SourceNCX,
			wantLabel:  "From NCX",
		},
		{
			name: "declared NCX missing from archive falls back to NAV",
			files: map[string]string{
				"OEBPS/content.opf": navigationOPF(true, true),
				"OEBPS/nav.xhtml":   labelNAV,
			},
			wantSource: SourceNAV,
			wantLabel:  "From NAV",
		},
		{
			name: "NAV only",
			files: map[string]string{
				"OEBPS/content.opf": navigationOPF(false, true),
				"OEBPS/nav.xhtml":   labelNAV,
			},
			wantSource: SourceNAV,
			wantLabel:  "From NAV",
		},
		{
			name:  "neither declared",
			files: map[string]string{"OEBPS/content.opf": navigationOPF(false, false)},
		},
		{
			name:  "declared NAV missing from archive",
			files: map[string]string{"OEBPS/content.opf": navigationOPF(false, true)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := OpenDocument(writeArchive(t, tt.files))
			if err != nil {
				t.Fatalf("OpenDocument() error = %v", err)
			}
			defer doc.Close()

			if err := doc.NavError(); err != nil {
				t.Fatalf("NavError() = %v", err)
			}
			if got := doc.NavSource(); got != tt.wantSource {
				t.Errorf("NavSource() = %q, want %q", got, tt.wantSource)
			}
			toc := doc.TOC()
			if tt.wantLabel == "" {
				if toc != nil {
					t.Errorf("TOC() = %+v, want nil", toc)
				}
				return
			}
			if len(toc) != 1 || toc[0].Label != tt.wantLabel || toc[0].ContentPath != "OEBPS/ch.xhtml" {
				t.Errorf("TOC() = %+v, want one entry %q", toc, tt.wantLabel)
			}
		})
	}
}

func TestLoadNavigation_BrokenNCX(t *testing.T) {
	doc, err := OpenDocument(writeArchive(t, map[string]string{
		"OEBPS/content.opf": navigationOPF(true, true),
		"OEBPS/toc.ncx":     "",
		"OEBPS/nav.xhtml":   labelNAV,
	}))
	if err != nil {
		t.Fatalf("OpenDocument() should not fail on broken navigation: %v", err)
	}
	defer doc.Close()

	if doc.NavError() == nil {
		t.Error("NavError() = nil, want the NCX parse error")
	}
	if doc.TOC() != nil {
		t.Errorf("TOC() = %+v, want nil", doc.TOC())
	}
}
