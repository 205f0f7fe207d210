// Package model holds the types shared between the crawler, the
// deduplication engine and the document assembler.
package model

// PageText is the rendered text of one crawled page, keyed by its
// canonical URL.
type PageText struct {
	URL  string
	Text string
}

// PageBlocks is the ordered list of blocks kept for one page.
type PageBlocks struct {
	URL    string
	Blocks []string
}

// AnchorMap maps canonical URLs to anchor ids and remembers insertion order.
type AnchorMap struct {
	order  []string
	byURL  map[string]string
	byName map[string]string
}

// NewAnchorMap creates an empty AnchorMap.
func NewAnchorMap() *AnchorMap {
	return &AnchorMap{
		byURL:  make(map[string]string),
		byName: make(map[string]string),
	}
}

// Set records anchor for url. Re-setting an existing url replaces its anchor
// but keeps its original position.
func (m *AnchorMap) Set(url, anchor string) {
	if old, ok := m.byURL[url]; ok {
		delete(m.byName, old)
	} else {
		m.order = append(m.order, url)
	}
	m.byURL[url] = anchor
	m.byName[anchor] = url
}

// Get returns the anchor for url.
func (m *AnchorMap) Get(url string) (string, bool) {
	if m == nil {
		return "", false
	}
	a, ok := m.byURL[url]
	return a, ok
}

// Taken reports whether anchor is already assigned to some url.
func (m *AnchorMap) Taken(anchor string) bool {
	_, ok := m.byName[anchor]
	return ok
}

// Len returns the number of entries.
func (m *AnchorMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

// Each calls fn for every entry in insertion order.
func (m *AnchorMap) Each(fn func(url, anchor string)) {
	if m == nil {
		return
	}
	for _, u := range m.order {
		fn(u, m.byURL[u])
	}
}

// URLs returns the urls in insertion order.
func (m *AnchorMap) URLs() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}
