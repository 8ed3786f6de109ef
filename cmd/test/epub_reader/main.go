// Debug program for the EPUB ZIP reader
//
// Usage:
//
//	go run ./cmd/test/epub_reader/main.go <epub-file-path> (<content-filename> ...)
//
// This program checks the following:
// - Opening EPUB files (ZIP archive)
// - Validating the mimetype file
// - Extracting the OPF path from container.xml
// - Listing all files in the EPUB
// - Reading file contents, with percent-encoded and case-insensitive lookups
package main

import (
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/yuanying/epub2md/internal/epub"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/test/epub_reader/main.go <epub-file> (<content-filename> ...)")
		os.Exit(1)
	}

	epubPath := os.Args[1]
	filePaths := os.Args[2:]

	fmt.Printf("Opening EPUB file: %s\n", epubPath)
	reader, err := epub.Open(epubPath)
	if err != nil {
		log.Fatalf("Failed to open EPUB: %v", err)
	}
	defer reader.Close()

	fmt.Printf("✓ EPUB opened successfully\n")
	fmt.Printf("OPF Path: %s\n\n", reader.OPFPath())

	files := reader.Files()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("Total files: %d\n", len(names))
	fmt.Println("\nFile list:")
	for _, name := range names {
		f := files[name]
		fmt.Printf("  - %s (%d bytes, method %d)\n", name, f.UncompressedSize64, f.Method)
	}

	fmt.Println("\nReading OPF file...")
	opfContent, err := reader.ReadFile(reader.OPFPath())
	if err != nil {
		log.Fatalf("Failed to read OPF: %v", err)
	}
	fmt.Printf("✓ OPF file read successfully (%d bytes)\n", len(opfContent))

	for _, filePath := range filePaths {
		fmt.Printf("\nReading content file: %s\n", filePath)
		content, err := reader.ReadFile(filePath)
		if err != nil {
			log.Fatalf("Failed to read content file %s: %v", filePath, err)
		}
		fmt.Printf("✓ Content file %s read successfully (%d bytes)\n", filePath, len(content))
		fmt.Printf("Content:\n%s\n", string(content))
	}
}
