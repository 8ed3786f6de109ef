package converter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/yuanying/epub2md/internal/epub"
)

// DefaultMinChapterLength is the number of characters, after trimming,
// below which a rendered chapter is treated as cover or divider cruft.
const DefaultMinChapterLength = 50

// ChapterSeparator follows every chapter in merged output.
const ChapterSeparator = "\n\n---\n\n"

// ChapterSource gives indexed access to a book's spine.
type ChapterSource interface {
	SpineLen() int
	Chapter(i int) (epub.Chapter, error)
}

// ChapterSink receives retained chapters with their dense 1-based number.
type ChapterSink interface {
	WriteChapter(number int, markdown string) error
}

// RenderStats counts what happened to each spine entry.
type RenderStats struct {
	Written  int // chapters handed to the sink
	Filtered int // rendered below the minimum length
	Skipped  int // no content or not renderable
}

// ChapterRenderer walks a spine in order and renders each chapter to Markdown.
type ChapterRenderer struct {
	Renderer  Renderer
	MinLength int
	Logger    *slog.Logger
}

// Render converts every spine entry of src and passes the ones that survive
// the length filter to sink. Entries without content are skipped silently.
// The first sink error aborts rendering.
func (r *ChapterRenderer) Render(src ChapterSource, sink ChapterSink) (RenderStats, error) {
	var stats RenderStats
	number := 1
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for i := 0; i < src.SpineLen(); i++ {
		ch, err := src.Chapter(i)
		if err != nil {
			logger.Debug("skipping spine entry without content", "index", i, "error", err)
			stats.Skipped++
			continue
		}

		markdown, err := r.Renderer.Render(ch.Content)
		if err != nil {
			logger.Warn("skipping chapter that failed to render", "index", i, "href", ch.Href, "error", err)
			stats.Skipped++
			continue
		}

		if !KeepChapter(markdown, r.MinLength) {
			logger.Debug("skipping near-empty chapter", "index", i, "href", ch.Href)
			stats.Filtered++
			continue
		}

		if err := sink.WriteChapter(number, markdown); err != nil {
			return stats, err
		}
		if logger.Enabled(context.Background(), slog.LevelDebug) {
			logger.Debug("rendered chapter", "number", number, "href", ch.Href, "title", ch.Title())
		}
		stats.Written++
		number++
	}

	return stats, nil
}

// KeepChapter reports whether rendered markdown has at least minLength
// characters after trimming. Empty output is never kept.
func KeepChapter(markdown string, minLength int) bool {
	trimmed := strings.TrimSpace(markdown)
	if trimmed == "" {
		return false
	}
	return utf8.RuneCountInString(trimmed) >= minLength
}

// ChapterFileName returns the per-chapter file name, chapter_001.md style.
func ChapterFileName(number int) string {
	return fmt.Sprintf("chapter_%03d.md", number)
}

// dirSink writes each chapter to its own numbered file.
type dirSink struct {
	dir string
}

func (s dirSink) WriteChapter(number int, markdown string) error {
	name := ChapterFileName(number)
	if err := os.WriteFile(filepath.Join(s.dir, name), []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// mergedSink accumulates chapters for a single combined file.
type mergedSink struct {
	buf strings.Builder
}

func newMergedSink(title, author string) *mergedSink {
	s := &mergedSink{}
	fmt.Fprintf(&s.buf, "# %s\n\n", title)
	fmt.Fprintf(&s.buf, "**Author:** %s\n\n", author)
	s.buf.WriteString("---\n\n")
	return s
}

func (s *mergedSink) WriteChapter(_ int, markdown string) error {
	s.buf.WriteString(markdown)
	s.buf.WriteString(ChapterSeparator)
	return nil
}

func (s *mergedSink) String() string {
	return s.buf.String()
}
