// Debug program for the package document and navigation parser
//
// Usage:
//   go run ./cmd/test/opf_parser/main.go <epub-file-path>
//
// This program will:
// - Open the EPUB file
// - Display every metadata entry in document order
// - Show the fields written to metadata.json
// - List manifest items by media type
// - Show spine order
// - Print the navigation tree (NCX or NAV)

package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/yuanying/epub2md/internal/converter"
	"github.com/yuanying/epub2md/internal/epub"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <epub-file-path>\n", os.Args[0])
		os.Exit(1)
	}

	epubPath := os.Args[1]

	fmt.Println("=== EPUB Package Parser ===")
	fmt.Printf("File: %s\n\n", epubPath)

	doc, err := epub.OpenDocument(epubPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening EPUB: %v\n", err)
		os.Exit(1)
	}
	defer doc.Close()

	opf := doc.OPF()
	fmt.Println("✓ OPF parsed successfully")
	fmt.Printf("Version:     %s\n", opf.Version)
	if release, ok := doc.ReleaseIdentifier(); ok {
		fmt.Printf("Release ID:  %s\n", release)
	}

	fmt.Println("\n--- Metadata entries ---")
	for i, item := range opf.Metadata {
		extra := ""
		if item.Refines != "" {
			extra = fmt.Sprintf(" (refines %s)", item.Refines)
		}
		fmt.Printf("  %d. %s = %q%s\n", i+1, item.Property, item.Value, extra)
	}

	md := converter.ExtractMetadata(doc)
	sidecar, err := md.MarshalSidecar()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error serializing metadata: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\n--- metadata.json ---")
	fmt.Println(string(sidecar))

	fmt.Printf("\n--- Manifest ---\n")
	fmt.Printf("Total items: %d\n\n", len(opf.Manifest))

	mediaTypes := make(map[string]int)
	for _, item := range opf.Manifest {
		mediaTypes[item.MediaType]++
	}
	types := make([]string, 0, len(mediaTypes))
	for mediaType := range mediaTypes {
		types = append(types, mediaType)
	}
	sort.Strings(types)

	fmt.Println("Items by media type:")
	for _, mediaType := range types {
		fmt.Printf("  %s: %d\n", mediaType, mediaTypes[mediaType])
	}

	fmt.Printf("\n--- Spine ---\n")
	fmt.Printf("Total items: %d\n\n", len(opf.Spine))

	fmt.Println("Reading order:")
	for i, spineItem := range opf.Spine {
		linear := "yes"
		if !spineItem.Linear {
			linear = "no"
		}

		manifestItem, ok := opf.Manifest[spineItem.IDRef]
		if ok {
			fmt.Printf("  %d. %s (linear: %s)\n", i+1, manifestItem.Href, linear)
		} else {
			fmt.Printf("  %d. [ID: %s - not found in manifest] (linear: %s)\n", i+1, spineItem.IDRef, linear)
		}
	}

	fmt.Printf("\n--- Navigation ---\n")
	if opf.NCXPath != "" {
		fmt.Printf("NCX Path: %s\n", opf.NCXPath)
	}
	if navPath := opf.NAVPath(); navPath != "" {
		fmt.Printf("NAV Path: %s\n", navPath)
	}
	if src := doc.NavSource(); src != "" {
		fmt.Printf("Loaded from: %s\n", src)
	}
	if err := doc.NavError(); err != nil {
		fmt.Printf("⚠ Navigation could not be loaded: %v\n", err)
	}
	printNavPoints(doc.TOC(), 1)

	fmt.Println("\n=== Done ===")
}

func printNavPoints(points []epub.NavPoint, depth int) {
	for _, np := range points {
		target := np.ContentPath
		if np.Fragment != "" {
			target += "#" + np.Fragment
		}
		fmt.Printf("%s- %s -> %s\n", strings.Repeat("  ", depth), np.Label, target)
		printNavPoints(np.Children, depth+1)
	}
}
