package converter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yuanying/epub2md/internal/epub"
)

// MetadataFileName is the sidecar written next to the converted chapters.
const MetadataFileName = "metadata.json"

// Fallbacks used when a book does not name its title or author.
const (
	DefaultTitle  = "Unknown Title"
	DefaultAuthor = "Unknown Author"
)

// MetadataSource is the read-only view of an opened book that metadata
// extraction needs. *epub.Document implements it.
type MetadataSource interface {
	MetadataValue(property string) (string, bool)
	MetadataValues(property string) []string
	Version() epub.Version
	ReleaseIdentifier() (string, bool)
	SpineLen() int
	TOC() []epub.NavPoint
}

// BookMetadata is the descriptive record serialized to metadata.json.
// Absent single-valued fields are nil and encode as null; list fields
// always encode as arrays.
type BookMetadata struct {
	Title             *string    `json:"title"`
	Creators          []string   `json:"creators"`
	Language          *string    `json:"language"`
	Description       *string    `json:"description"`
	Publisher         *string    `json:"publisher"`
	Date              *string    `json:"date"`
	Subjects          []string   `json:"subjects"`
	Identifier        *string    `json:"identifier"`
	Rights            *string    `json:"rights"`
	Contributors      []string   `json:"contributors"`
	Source            *string    `json:"source"`
	EPUBVersion       string     `json:"epub_version"`
	ReleaseIdentifier *string    `json:"release_identifier"`
	ChapterCount      int        `json:"chapter_count"`
	TOC               []TOCEntry `json:"toc"`
}

// ExtractMetadata reads every descriptive field from src. Missing fields
// degrade to nil or empty lists; extraction never fails.
func ExtractMetadata(src MetadataSource) BookMetadata {
	value := func(property string) *string {
		v, ok := src.MetadataValue(property)
		if !ok {
			return nil
		}
		return &v
	}
	values := func(property string) []string {
		if v := src.MetadataValues(property); v != nil {
			return v
		}
		return []string{}
	}

	md := BookMetadata{
		Title:        value("title"),
		Creators:     values("creator"),
		Language:     value("language"),
		Description:  value("description"),
		Publisher:    value("publisher"),
		Date:         value("date"),
		Subjects:     values("subject"),
		Identifier:   value("identifier"),
		Rights:       value("rights"),
		Contributors: values("contributor"),
		Source:       value("source"),
		EPUBVersion:  src.Version().String(),
		ChapterCount: src.SpineLen(),
		TOC:          buildTOC(src.TOC()),
	}
	if rid, ok := src.ReleaseIdentifier(); ok {
		md.ReleaseIdentifier = &rid
	}
	return md
}

// DisplayTitle returns the title, or DefaultTitle when the book has none.
func (m BookMetadata) DisplayTitle() string {
	if m.Title == nil {
		return DefaultTitle
	}
	return *m.Title
}

// DisplayAuthor returns the first creator, or DefaultAuthor when there is none.
func (m BookMetadata) DisplayAuthor() string {
	if len(m.Creators) == 0 {
		return DefaultAuthor
	}
	return m.Creators[0]
}

// MarshalSidecar renders m as indented JSON in field declaration order.
func (m BookMetadata) MarshalSidecar() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteSidecar writes metadata.json into dir.
func (m BookMetadata) WriteSidecar(dir string) error {
	data, err := m.MarshalSidecar()
	if err != nil {
		return fmt.Errorf("failed to serialize metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MetadataFileName), data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", MetadataFileName, err)
	}
	return nil
}
