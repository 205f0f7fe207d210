package crawler

import (
	"net/url"
	"strings"
)

// LinkRewriter maps hrefs of a fetched page to their in-document form.
type LinkRewriter struct {
	anchors *AnchorTable
}

// NewLinkRewriter creates a rewriter backed by anchors.
func NewLinkRewriter(anchors *AnchorTable) *LinkRewriter {
	return &LinkRewriter{anchors: anchors}
}

// Rewrite returns the replacement for href, resolved against the page URL.
// Links to pages with an anchor become "#anchor"; other links without a
// host become absolute. ok is false when href stays as is.
func (r *LinkRewriter) Rewrite(href string, resolved *url.URL) (string, bool) {
	if resolved == nil {
		return "", false
	}

	if id, ok := r.anchors.Lookup(Canonicalize(resolved.String())); ok {
		return "#" + id, true
	}

	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil || ref.Host != "" {
		return "", false
	}

	abs := resolved.String()
	if abs == href {
		return "", false
	}
	return abs, true
}
