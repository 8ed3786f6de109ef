package epub

import (
	"encoding/xml"
	"fmt"
	"path"
	"sort"
	"strings"
)

// opfPackage represents the OPF XML structure
type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Version  string      `xml:"version,attr"`
	UniqueID string      `xml:"unique-identifier,attr"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest opfManifest `xml:"manifest"`
	Spine    opfSpine    `xml:"spine"`
}

// opfMetadata keeps every metadata child in document order.
type opfMetadata struct {
	Elements []opfMetaElement `xml:",any"`
}

// opfMetaElement covers both Dublin Core elements and <meta> entries.
type opfMetaElement struct {
	XMLName  xml.Name
	Value    string `xml:",chardata"`
	ID       string `xml:"id,attr"`
	Name     string `xml:"name,attr"`     // EPUB 2.0
	Content  string `xml:"content,attr"`  // EPUB 2.0
	Property string `xml:"property,attr"` // EPUB 3.0
	Refines  string `xml:"refines,attr"`
}

// opfManifest represents the manifest section
type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

// opfManifestItem represents an item in the manifest
type opfManifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

// opfSpine represents the spine section
type opfSpine struct {
	Toc      string       `xml:"toc,attr"`
	ItemRefs []opfItemRef `xml:"itemref"`
}

// opfItemRef represents an itemref in the spine
type opfItemRef struct {
	IDRef  string `xml:"idref,attr"`
	Linear string `xml:"linear,attr"`
}

// ParseOPF parses an OPF file content and returns the OPF structure
// opfDir is the directory containing the OPF file (e.g., "OEBPS/")
func ParseOPF(content []byte, opfDir string) (*OPF, error) {
	var pkg opfPackage
	if err := unmarshalXML(content, &pkg); err != nil {
		return nil, fmt.Errorf("failed to parse OPF XML: %w", err)
	}

	opf := &OPF{
		Version:  parseVersion(pkg.Version),
		UniqueID: pkg.UniqueID,
		Metadata: parseMetadata(&pkg.Metadata),
		Manifest: make(map[string]ManifestItem),
	}

	// Parse manifest
	for _, item := range pkg.Manifest.Items {
		manifestItem := ManifestItem{
			ID:        item.ID,
			Href:      joinPath(opfDir, item.Href),
			MediaType: item.MediaType,
		}

		// Parse properties (space-separated)
		if item.Properties != "" {
			manifestItem.Properties = strings.Fields(item.Properties)
		}

		if _, dup := opf.Manifest[item.ID]; !dup {
			opf.ManifestOrder = append(opf.ManifestOrder, item.ID)
		}
		opf.Manifest[item.ID] = manifestItem
	}

	// Parse spine
	for _, itemRef := range pkg.Spine.ItemRefs {
		opf.Spine = append(opf.Spine, SpineItem{
			IDRef:  itemRef.IDRef,
			Linear: itemRef.Linear != "no",
		})
	}

	// Resolve NCX path from toc attribute, then by media type
	if ncxItem, ok := opf.Manifest[pkg.Spine.Toc]; ok && pkg.Spine.Toc != "" {
		opf.NCXPath = ncxItem.Href
	} else {
		for _, id := range opf.ManifestOrder {
			if item := opf.Manifest[id]; item.MediaType == "application/x-dtbncx+xml" {
				opf.NCXPath = item.Href
				break
			}
		}
	}

	return opf, nil
}

// parseMetadata flattens the metadata section into property/value entries.
// Elements with neither a usable name nor a value are dropped.
func parseMetadata(meta *opfMetadata) []MetadataItem {
	items := make([]MetadataItem, 0, len(meta.Elements))
	for _, el := range meta.Elements {
		item := MetadataItem{
			ID:      el.ID,
			Refines: el.Refines,
		}

		switch {
		case el.XMLName.Local == "meta" && el.Property != "":
			item.Property = el.Property
			item.Value = strings.TrimSpace(el.Value)
		case el.XMLName.Local == "meta" && el.Name != "":
			item.Property = el.Name
			item.Value = strings.TrimSpace(el.Content)
		case el.XMLName.Local == "meta":
			continue
		default:
			// dc:* and any other namespaced element, keyed by local name
			item.Property = el.XMLName.Local
			item.Value = strings.TrimSpace(el.Value)
		}

		if item.Property == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}

// parseVersion maps the package version attribute to a Version.
func parseVersion(v string) Version {
	v = strings.TrimSpace(v)
	switch {
	case strings.HasPrefix(v, "2"):
		return Version2
	case strings.HasPrefix(v, "3"):
		return Version3
	default:
		return VersionUnknown
	}
}

// joinPath joins OPF directory with a relative path using forward slashes.
func joinPath(base, rel string) string {
	if base == "" || base == "." {
		return path.Clean(rel)
	}
	return path.Join(base, rel)
}

// Value returns the first metadata value recorded for property.
func (opf *OPF) Value(property string) (string, bool) {
	for _, item := range opf.Metadata {
		if item.Property == property {
			return item.Value, true
		}
	}
	return "", false
}

// Values returns every metadata value recorded for property, in document order.
func (opf *OPF) Values(property string) []string {
	values := []string{}
	for _, item := range opf.Metadata {
		if item.Property == property {
			values = append(values, item.Value)
		}
	}
	return values
}

// UniqueIdentifier returns the identifier named by the package
// unique-identifier attribute, or the first identifier when none matches.
func (opf *OPF) UniqueIdentifier() (string, bool) {
	for _, item := range opf.Metadata {
		if item.Property == "identifier" && opf.UniqueID != "" && item.ID == opf.UniqueID {
			return item.Value, true
		}
	}
	return opf.Value("identifier")
}

// ReleaseIdentifier returns the EPUB 3 release identifier, the unique
// identifier and the dcterms:modified timestamp joined by "@".
func (opf *OPF) ReleaseIdentifier() (string, bool) {
	uid, ok := opf.UniqueIdentifier()
	if !ok || uid == "" {
		return "", false
	}
	modified, ok := opf.Value("dcterms:modified")
	if !ok || modified == "" {
		return "", false
	}
	return uid + "@" + modified, true
}

// NAVPath returns the href of the EPUB 3 navigation document, if any.
func (opf *OPF) NAVPath() string {
	for _, id := range opf.manifestIDs() {
		item := opf.Manifest[id]
		for _, prop := range item.Properties {
			if prop == "nav" {
				return item.Href
			}
		}
	}
	return ""
}

// manifestIDs returns manifest ids in document order when known,
// otherwise sorted for deterministic iteration.
func (opf *OPF) manifestIDs() []string {
	if len(opf.ManifestOrder) > 0 {
		return opf.ManifestOrder
	}
	ids := make([]string, 0, len(opf.Manifest))
	for id := range opf.Manifest {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
