package epub

// Version identifies the EPUB specification generation a package declares.
type Version int

const (
	VersionUnknown Version = iota
	Version2
	Version3
)

// String returns the display form written to metadata sidecars.
func (v Version) String() string {
	switch v {
	case Version2:
		return "Version2_0"
	case Version3:
		return "Version3_0"
	default:
		return "Unknown"
	}
}

// OPF represents the parsed Open Package Format document
type OPF struct {
	Version       Version
	UniqueID      string                  // id of the dc:identifier named by unique-identifier
	Metadata      []MetadataItem          // document order
	Manifest      map[string]ManifestItem // id -> item
	ManifestOrder []string                // manifest ids in document order
	Spine         []SpineItem
	NCXPath       string
}

// MetadataItem is a single entry of the OPF metadata section.
// Dublin Core elements use their local name as Property ("title", "creator").
// EPUB 3 <meta property="..."> entries use the property attribute and EPUB 2
// <meta name="..." content="..."> entries use the name attribute.
type MetadataItem struct {
	Property string
	Value    string
	ID       string
	Refines  string
}

// ManifestItem represents an item in the manifest
type ManifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties []string
}

// SpineItem represents an item reference in the spine
type SpineItem struct {
	IDRef  string
	Linear bool
}
