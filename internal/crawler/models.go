package crawler

import (
	"time"

	"github.com/masahif/docfold/internal/model"
)

// PageStatus is the final state of a crawled node
type PageStatus string

const (
	StatusCompleted    PageStatus = "completed"
	StatusFetchError   PageStatus = "fetch_error"
	StatusConvertError PageStatus = "convert_error"
	StatusSkipped      PageStatus = "skipped"
)

// Skip reasons
const (
	SkipIgnoredPath     = "ignored_path"
	SkipRobots          = "robots_disallowed"
	SkipIgnoredRedirect = "ignored_redirect"
)

// PageRecord is one node of the crawl tree
type PageRecord struct {
	CanonicalURL string     // Identity of the node
	OriginalURL  string     // URL as it was discovered
	FinalURL     string     // URL after redirects
	AnchorID     string     // Anchor assigned when the page was fetched
	Text         string     // Markdown content
	HasText      bool       // False when the page produced no content
	Children     []string   // Canonical URLs of newly discovered children
	Status       PageStatus // Final state
	SkipReason   string     // Why the node was skipped
	Error        string     // Fetch or conversion error
	StatusCode   int
	ResponseSize int64
	TTFB         time.Duration
	DownloadTime time.Duration
	CrawledAt    time.Time
}

// FetchResult is the payload returned by a Fetcher
type FetchResult struct {
	HTML         string
	FinalURL     string // After following redirects
	StatusCode   int
	ContentType  string
	ResponseSize int64
	Metrics      HTTPMetrics
}

// CrawlStats represents crawling statistics
type CrawlStats struct {
	PagesDiscovered int
	PagesFetched    int
	PagesSkipped    int
	FetchErrors     int
	ConvertErrors   int
	StartTime       time.Time
	Duration        time.Duration
}

// Result is the output of a crawl
type Result struct {
	Pages   []model.PageText // Pages with text, in crawl order, links already rewritten
	Anchors *model.AnchorMap // Canonical URL to anchor id, in assignment order
	Records []*PageRecord    // Every dequeued node, in crawl order
	Stats   CrawlStats
}
