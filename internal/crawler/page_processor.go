package crawler

import (
	"fmt"
	"log/slog"

	"github.com/masahif/docfold/internal/parser"
)

// Extraction is what the extract step yields for one fetched page
type Extraction struct {
	AnchorID   string
	Links      []parser.Link // Links found before rewriting, in document order
	HTML       string        // Markup after selector removal and link rewriting
	Text       string        // Converted text, empty when ConvertErr is set
	ConvertErr error
}

// PageProcessor runs the extract step: boilerplate removal, anchor
// assignment, link rewriting and conversion.
type PageProcessor struct {
	converter Converter
	selectors []string
	anchors   *AnchorTable
	rewriter  *LinkRewriter
}

// NewPageProcessor creates a processor. Only the given selectors are
// removed; a nil list removes nothing.
func NewPageProcessor(converter Converter, selectors []string, anchors *AnchorTable) *PageProcessor {
	return &PageProcessor{
		converter: converter,
		selectors: selectors,
		anchors:   anchors,
		rewriter:  NewLinkRewriter(anchors),
	}
}

// Process extracts the page fetched from pageURL whose identity is
// canonical. An error means the markup could not be parsed at all;
// conversion failures are reported through Extraction.ConvertErr.
func (p *PageProcessor) Process(canonical, pageURL, html string) (*Extraction, error) {
	doc, err := parser.NewDocument(html, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	if removed := doc.RemoveSelectors(p.selectors); removed > 0 {
		slog.Debug("Removed boilerplate elements", "url", canonical, "count", removed)
	}

	ext := &Extraction{
		Links:    doc.Links(),
		AnchorID: p.anchors.Assign(canonical),
	}

	doc.RewriteLinks(p.rewriter.Rewrite)

	ext.HTML, err = doc.HTML()
	if err != nil {
		ext.ConvertErr = err
		return ext, nil
	}

	text, err := p.converter.Convert(ext.HTML)
	if err != nil {
		ext.ConvertErr = err
		return ext, nil
	}
	ext.Text = text
	return ext, nil
}
