package converter

import (
	"fmt"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// Renderer converts an HTML document to Markdown.
type Renderer interface {
	Render(html string) (string, error)
}

// MarkdownRenderer converts HTML to Markdown using html-to-markdown.
type MarkdownRenderer struct{}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Render converts an HTML document into Markdown as-is.
func (r *MarkdownRenderer) Render(html string) (string, error) {
	markdown, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}
	return markdown, nil
}
