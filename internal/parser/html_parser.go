// Package parser provides the HTML document model used during extraction.
// It removes boilerplate elements by CSS selector, lists and rewrites
// hyperlinks and serializes the document back to markup.
package parser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a parsed HTML page bound to the URL it was fetched from.
type Document struct {
	doc            *goquery.Document
	baseURL        *url.URL
	allowedSchemes []string
}

// Link represents a hyperlink found in a document
type Link struct {
	Href       string // raw href attribute
	URL        string // absolute URL resolved against the page URL
	AnchorText string
	IsExternal bool
}

// NewDocument parses htmlContent with default allowed schemes
func NewDocument(htmlContent, pageURL string) (*Document, error) {
	return NewDocumentWithSchemes(htmlContent, pageURL, []string{"https://", "http://"})
}

// NewDocumentWithSchemes parses htmlContent; links are resolved against
// pageURL and only those with one of allowedSchemes are listed.
func NewDocumentWithSchemes(htmlContent, pageURL string, allowedSchemes []string) (*Document, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	root, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	if len(allowedSchemes) == 0 {
		allowedSchemes = []string{"https://", "http://"}
	}

	return &Document{
		doc:            goquery.NewDocumentFromNode(root),
		baseURL:        parsedURL,
		allowedSchemes: allowedSchemes,
	}, nil
}

// RemoveSelectors deletes every element matching any of selectors and
// returns how many elements were removed. Selectors that do not compile
// match nothing.
func (d *Document) RemoveSelectors(selectors []string) int {
	removed := 0
	for _, selector := range selectors {
		if strings.TrimSpace(selector) == "" {
			continue
		}
		sel := d.doc.Find(selector)
		removed += sel.Length()
		sel.Remove()
	}
	return removed
}

// Links returns the crawlable links of the document in document order.
// Fragment-only, javascript: and disallowed-scheme links are skipped.
func (d *Document) Links() []Link {
	var links []Link
	d.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)

		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return
		}
		if !d.isAllowedScheme(href) {
			return
		}

		absURL, err := d.resolveURL(href)
		if err != nil || !d.isAllowedScheme(absURL.String()) {
			return
		}

		links = append(links, Link{
			Href:       href,
			URL:        absURL.String(),
			AnchorText: strings.Join(strings.Fields(s.Text()), " "),
			IsExternal: absURL.Host != d.baseURL.Host,
		})
	})
	return links
}

// RewriteLinks calls fn for every <a href> element. fn receives the raw
// href and its resolution against the page URL (nil when href does not
// parse) and returns the replacement href and whether to apply it.
// It returns the number of rewritten links.
func (d *Document) RewriteLinks(fn func(href string, resolved *url.URL) (string, bool)) int {
	rewritten := 0
	d.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		resolved, err := d.resolveURL(strings.TrimSpace(href))
		if err != nil {
			resolved = nil
		}
		if replacement, ok := fn(href, resolved); ok {
			s.SetAttr("href", replacement)
			rewritten++
		}
	})
	return rewritten
}

// HTML serializes the document.
func (d *Document) HTML() (string, error) {
	out, err := d.doc.Html()
	if err != nil {
		return "", fmt.Errorf("failed to render HTML: %w", err)
	}
	return out, nil
}

// resolveURL converts relative URLs to absolute URLs
func (d *Document) resolveURL(href string) (*url.URL, error) {
	u, err := url.Parse(href)
	if err != nil {
		return nil, err
	}
	return d.baseURL.ResolveReference(u), nil
}

// isAllowedScheme checks if the URL has an allowed scheme
func (d *Document) isAllowedScheme(href string) bool {
	if strings.Contains(href, "://") {
		for _, scheme := range d.allowedSchemes {
			if strings.HasPrefix(strings.ToLower(href), scheme) {
				return true
			}
		}
		return false
	}

	// tel:, mailto:, data: and friends
	if strings.Contains(href, ":") && !strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "?") && !strings.HasPrefix(href, "#") {
		for _, scheme := range d.allowedSchemes {
			if strings.HasPrefix(href, strings.TrimSuffix(scheme, "://")) {
				return true
			}
		}
		return false
	}

	// Relative URLs take the page's scheme.
	return true
}
