package epub

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// EPUBReader provides access to EPUB file contents
type EPUBReader struct {
	zipReader *zip.ReadCloser
	files     map[string]*zip.File
	folded    map[string]*zip.File // lower-cased name -> file
	opfPath   string
}

// container.xml structure
type container struct {
	Rootfiles struct {
		Rootfile []struct {
			FullPath  string `xml:"full-path,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"rootfile"`
	} `xml:"rootfiles"`
}

var (
	ErrInvalidMimetype   = errors.New("invalid mimetype: must be 'application/epub+zip'")
	ErrContainerNotFound = errors.New("META-INF/container.xml not found")
	ErrOPFPathNotFound   = errors.New("OPF path not found in container.xml")
	ErrFileNotFound      = errors.New("file not found in EPUB")
)

// Open opens an EPUB archive and locates its package document.
// Only the structure needed for reading is checked: a missing or compressed
// mimetype entry is tolerated, a mimetype naming another format is not.
func Open(path string) (*EPUBReader, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	reader := &EPUBReader{
		zipReader: zr,
		files:     make(map[string]*zip.File),
		folded:    make(map[string]*zip.File),
	}

	// Build file map with normalized paths
	for _, f := range zr.File {
		name := normalizePath(f.Name)
		reader.files[name] = f
		if _, dup := reader.folded[strings.ToLower(name)]; !dup {
			reader.folded[strings.ToLower(name)] = f
		}
	}

	if err := reader.checkMimetype(); err != nil {
		zr.Close()
		return nil, err
	}

	// Parse container.xml to get OPF path
	if err := reader.parseContainer(); err != nil {
		zr.Close()
		return nil, err
	}

	return reader, nil
}

// Close closes the EPUB reader
func (r *EPUBReader) Close() error {
	return r.zipReader.Close()
}

// OPFPath returns the path to the OPF file
func (r *EPUBReader) OPFPath() string {
	return r.opfPath
}

// Files returns a map of all files in the EPUB
func (r *EPUBReader) Files() map[string]*zip.File {
	return r.files
}

// ReadFile reads the contents of a file from the EPUB.
// Lookups fall back to a percent-decoded and then a case-insensitive match,
// since manifest hrefs do not always agree with archive entry names.
func (r *EPUBReader) ReadFile(path string) ([]byte, error) {
	f := r.lookup(normalizePath(path))
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

func (r *EPUBReader) lookup(name string) *zip.File {
	if f, ok := r.files[name]; ok {
		return f
	}
	if unescaped, err := url.PathUnescape(name); err == nil && unescaped != name {
		if f, ok := r.files[unescaped]; ok {
			return f
		}
		name = unescaped
	}
	return r.folded[strings.ToLower(name)]
}

// checkMimetype rejects archives whose mimetype entry names another format.
func (r *EPUBReader) checkMimetype() error {
	if _, ok := r.files["mimetype"]; !ok {
		return nil
	}

	content, err := r.ReadFile("mimetype")
	if err != nil {
		return fmt.Errorf("failed to read mimetype: %w", err)
	}

	if strings.TrimSpace(string(content)) != "application/epub+zip" {
		return ErrInvalidMimetype
	}

	return nil
}

// parseContainer parses container.xml to extract OPF path
func (r *EPUBReader) parseContainer() error {
	content, err := r.ReadFile("META-INF/container.xml")
	if err != nil {
		return ErrContainerNotFound
	}

	var c container
	if err := unmarshalXML(content, &c); err != nil {
		return fmt.Errorf("failed to parse container.xml: %w", err)
	}

	// Find the OPF file path
	for _, rf := range c.Rootfiles.Rootfile {
		if rf.MediaType == "application/oebps-package+xml" || rf.MediaType == "" {
			r.opfPath = normalizePath(rf.FullPath)
			return nil
		}
	}

	// If no media-type match, use the first one
	if len(c.Rootfiles.Rootfile) > 0 {
		r.opfPath = normalizePath(c.Rootfiles.Rootfile[0].FullPath)
		return nil
	}

	return ErrOPFPathNotFound
}

// normalizePath normalizes file paths (removes ./ prefix)
func normalizePath(path string) string {
	path = strings.TrimPrefix(path, "./")
	path = strings.TrimPrefix(path, "/")
	return path
}
