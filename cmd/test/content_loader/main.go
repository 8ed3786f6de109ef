// Debug program for chapter loading and Markdown rendering
//
// Usage:
//   go run ./cmd/test/content_loader/main.go [-min N] <epub-file-path>
//
// This program:
// 1. Opens the specified EPUB file
// 2. Loads every spine entry by index
// 3. Renders each chapter to Markdown
// 4. Reports which chapters the length filter would keep

package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/yuanying/epub2md/internal/converter"
	"github.com/yuanying/epub2md/internal/epub"
)

func main() {
	minLength := flag.Int("min", converter.DefaultMinChapterLength, "minimum chapter length in characters")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-min N] <epub-file-path>\n", filepath.Base(os.Args[0]))
		os.Exit(1)
	}

	epubPath := flag.Arg(0)

	fmt.Printf("=== Chapter Loader ===\n")
	fmt.Printf("EPUB file: %s\n\n", epubPath)

	doc, err := epub.OpenDocument(epubPath)
	if err != nil {
		log.Fatalf("Failed to open EPUB: %v", err)
	}
	defer doc.Close()

	title, _ := doc.MetadataValue("title")
	fmt.Printf("✓ EPUB opened successfully\n")
	fmt.Printf("Title: %s\n", title)
	fmt.Printf("Spine items: %d\n\n", doc.SpineLen())

	renderer := converter.NewMarkdownRenderer()
	kept, filtered, skipped, failed := 0, 0, 0, 0

	for i := 0; i < doc.SpineLen(); i++ {
		ch, err := doc.Chapter(i)
		if errors.Is(err, epub.ErrNoContent) {
			fmt.Printf("[%d] ⏭ %v\n\n", i+1, err)
			skipped++
			continue
		}
		if err != nil {
			fmt.Printf("[%d] ✗ Failed to read: %v\n\n", i+1, err)
			failed++
			continue
		}

		fmt.Printf("[%d] %s (%s)\n", i+1, ch.Href, ch.MediaType)
		if t := ch.Title(); t != "" {
			fmt.Printf("    Heading: %s\n", t)
		}
		fmt.Printf("    XHTML length: %d bytes\n", len(ch.Content))

		markdown, err := renderer.Render(ch.Content)
		if err != nil {
			fmt.Printf("    ✗ Failed to render: %v\n\n", err)
			failed++
			continue
		}

		fmt.Printf("    Markdown length: %d characters\n", utf8.RuneCountInString(strings.TrimSpace(markdown)))
		if !converter.KeepChapter(markdown, *minLength) {
			fmt.Printf("    ⏭ Below minimum length\n\n")
			filtered++
			continue
		}
		fmt.Printf("    ✓ Kept\n\n")
		kept++
	}

	fmt.Println("=== Summary ===")
	fmt.Printf("Kept: %d\n", kept)
	fmt.Printf("Filtered: %d\n", filtered)
	fmt.Printf("No content: %d\n", skipped)
	if failed > 0 {
		fmt.Printf("Errors: %d\n", failed)
		os.Exit(1)
	}
}
