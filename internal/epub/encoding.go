package epub

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

var xmlDeclEncoding = regexp.MustCompile(`^\s*<\?xml[^>]*\sencoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// unmarshalXML decodes EPUB XML leniently: declared non-UTF-8 encodings are
// converted, HTML entities such as &nbsp; are accepted and unclosed HTML void
// elements do not abort the parse.
func unmarshalXML(data []byte, v any) error {
	d := xml.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	d.CharsetReader = charset.NewReaderLabel
	d.Strict = false
	d.AutoClose = xml.HTMLAutoClose
	d.Entity = xml.HTMLEntity
	return d.Decode(v)
}

// decodeContent converts an XHTML document to UTF-8 text.
// The XML declaration wins. Without one, valid UTF-8 is taken as is and
// anything else is sniffed from the BOM, the media type and <meta> tags.
func decodeContent(data []byte, mediaType string) (string, error) {
	var (
		r   io.Reader
		err error
	)
	switch m := xmlDeclEncoding.FindSubmatch(data); {
	case m != nil:
		r, err = charset.NewReaderLabel(string(m[1]), bytes.NewReader(data))
	case utf8.Valid(data):
		return string(bytes.TrimPrefix(data, utf8BOM)), nil
	default:
		r, err = charset.NewReader(bytes.NewReader(data), mediaType)
	}
	if err != nil {
		return "", fmt.Errorf("failed to decode content: %w", err)
	}

	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to decode content: %w", err)
	}
	return string(bytes.TrimPrefix(decoded, utf8BOM)), nil
}
