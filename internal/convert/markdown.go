// Package convert turns extracted HTML into Markdown text.
package convert

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// MarkdownConverter converts HTML markup to Markdown. Links are left as they
// appear in the markup, so anchors rewritten by the crawler survive.
type MarkdownConverter struct {
	conv *md.Converter
}

// NewMarkdownConverter creates a converter with CommonMark output.
func NewMarkdownConverter() *MarkdownConverter {
	return &MarkdownConverter{
		conv: md.NewConverter("", true, nil),
	}
}

// Convert renders html as Markdown.
func (c *MarkdownConverter) Convert(html string) (string, error) {
	out, err := c.conv.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}
	return strings.TrimSpace(out), nil
}
