package crawler

import (
	"context"
	"time"
)

// Fetcher retrieves the HTML of a page
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string) (*FetchResult, error)
}

// Converter turns a cleaned HTML document into Markdown
type Converter interface {
	Convert(html string) (string, error)
}

// PolicyLoader loads the crawl policy of a site
type PolicyLoader interface {
	Load(ctx context.Context, baseURL string) (SitePolicy, error)
}

// SitePolicy answers robots questions for a single site
type SitePolicy interface {
	Allows(agent, path string) bool
	CrawlDelay(agent string) time.Duration
}

// Journal records crawl progress for later inspection
type Journal interface {
	RecordPage(rec *PageRecord) error
	RecordLinks(sourceURL string, targets []string) error
	RecordError(url, errorType, message string) error
	SetMeta(key, value string) error
}

// Delayer waits between two fetches
type Delayer interface {
	Wait(ctx context.Context, url string) error
}
