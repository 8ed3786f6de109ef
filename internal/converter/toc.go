package converter

import (
	"strings"

	"github.com/yuanying/epub2md/internal/epub"
)

// TOCEntry is one node of the table of contents written to metadata.json.
type TOCEntry struct {
	Label    string     `json:"label"`
	Children []TOCEntry `json:"children,omitempty"`
}

// buildTOC converts navigation points to TOCEntries, preserving order and
// depth. The top level is never nil so it encodes as an empty array.
func buildTOC(points []epub.NavPoint) []TOCEntry {
	entries := make([]TOCEntry, 0, len(points))
	for _, np := range points {
		entries = append(entries, TOCEntry{
			Label:    strings.TrimSpace(np.Label),
			Children: buildTOCChildren(np.Children),
		})
	}
	return entries
}

// buildTOCChildren returns nil for leaves so "children" is omitted.
func buildTOCChildren(points []epub.NavPoint) []TOCEntry {
	if len(points) == 0 {
		return nil
	}
	return buildTOC(points)
}
