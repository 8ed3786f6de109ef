package converter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/yuanying/epub2md/internal/epub"
)

// ConvertOptions holds options for the conversion pipeline.
type ConvertOptions struct {
	InputPath  string
	OutputDir  string
	SingleFile bool // one merged Markdown file instead of chapter_NNN.md files

	// MinChapterLength is the content filter threshold in characters.
	// Zero means DefaultMinChapterLength.
	MinChapterLength int

	Renderer Renderer     // nil means html-to-markdown
	Logger   *slog.Logger // nil means slog.Default()
	Stdout   io.Writer    // progress lines; nil discards them
}

// Book is everything the pipeline reads from an opened EPUB.
type Book interface {
	MetadataSource
	ChapterSource
}

// Pipeline converts one EPUB file to Markdown.
type Pipeline struct {
	Options ConvertOptions

	logger *slog.Logger
	stats  RenderStats
}

// NewPipeline creates a new conversion pipeline.
func NewPipeline(opts ConvertOptions) *Pipeline {
	if opts.MinChapterLength == 0 {
		opts.MinChapterLength = DefaultMinChapterLength
	}
	if opts.Renderer == nil {
		opts.Renderer = NewMarkdownRenderer()
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		Options: opts,
		logger:  logger.With("input", opts.InputPath),
	}
}

// Convert executes the conversion pipeline. Any error is fatal for this
// book only and carries the failing step as context.
func (p *Pipeline) Convert() error {
	doc, err := epub.OpenDocument(p.Options.InputPath)
	if err != nil {
		return fmt.Errorf("failed to open EPUB: %w", err)
	}
	defer doc.Close()

	if err := doc.NavError(); err != nil {
		p.logger.Warn("failed to load table of contents", "error", err)
	}

	return p.ConvertBook(doc)
}

// ConvertBook writes the Markdown output for an already opened book.
func (p *Pipeline) ConvertBook(book Book) error {
	outDir := p.Options.OutputDir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	metadata := ExtractMetadata(book)
	if err := metadata.WriteSidecar(outDir); err != nil {
		return err
	}

	title := metadata.DisplayTitle()
	author := metadata.DisplayAuthor()
	fmt.Fprintf(p.Options.Stdout, "  [%s] Title: %s, Author: %s\n",
		filepath.Base(p.Options.InputPath), title, author)

	renderer := &ChapterRenderer{
		Renderer:  p.Options.Renderer,
		MinLength: p.Options.MinChapterLength,
		Logger:    p.logger,
	}

	if !p.Options.SingleFile {
		stats, err := renderer.Render(book, dirSink{dir: outDir})
		p.stats = stats
		if err != nil {
			return err
		}
		p.logger.Debug("wrote chapters", "written", stats.Written, "filtered", stats.Filtered, "skipped", stats.Skipped)
		return nil
	}

	merged := newMergedSink(title, author)
	stats, err := renderer.Render(book, merged)
	p.stats = stats
	if err != nil {
		return err
	}

	name := SanitizeFilename(title) + ".md"
	if err := os.WriteFile(filepath.Join(outDir, name), []byte(merged.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write combined Markdown file: %w", err)
	}
	p.logger.Debug("wrote combined file", "file", name, "chapters", stats.Written)
	return nil
}

// Stats reports chapter counts from the last conversion.
func (p *Pipeline) Stats() RenderStats {
	return p.stats
}
