// Package crawler provides the crawl frontier of a documentation site.
// It visits every canonical page once in breadth-first order, applies
// robots.txt and path filters, assigns anchors, rewrites links and
// returns the rendered text of each page.
package crawler

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/masahif/docfold/internal/config"
	"github.com/masahif/docfold/internal/model"
)

// node is one pending or processed crawl target
type node struct {
	url       string // as discovered, used for fetching
	canonical string
	children  []string
}

// Frontier is a sequential breadth-first crawler
type Frontier struct {
	config       *config.CrawlConfig
	fetcher      Fetcher
	converter    Converter
	processor    *PageProcessor
	filter       *PathFilter
	anchors      *AnchorTable
	policyLoader PolicyLoader
	journal      Journal
	pacer        Delayer
	rateLimiter  *RateLimiter
	headers      map[string]string
	agent        string

	stats CrawlStats
}

// NewFrontier creates a frontier for cfg. Robots handling, journaling and
// pacing are configured with the Set methods; by default robots.txt is not
// consulted, nothing is journaled and the pace follows cfg's delays.
func NewFrontier(cfg *config.CrawlConfig, fetcher Fetcher, converter Converter) *Frontier {
	return &Frontier{
		config:      cfg,
		fetcher:     fetcher,
		converter:   converter,
		filter:      NewPathFilter(cfg.AllowedPaths, cfg.IgnorePaths),
		journal:     NopJournal{},
		pacer:       NewPacer(cfg.DelayDuration(), cfg.DelayRangeDuration()),
		rateLimiter: NewRateLimiter(0),
		headers:     cfg.RequestHeaders(),
		agent:       cfg.AgentID(),
	}
}

// SetPolicyLoader enables robots.txt handling through loader.
func (f *Frontier) SetPolicyLoader(loader PolicyLoader) {
	f.policyLoader = loader
}

// SetJournal records crawl progress into j.
func (f *Frontier) SetJournal(j Journal) {
	if j == nil {
		j = NopJournal{}
	}
	f.journal = j
}

// SetPacer replaces the delay applied after each node.
func (f *Frontier) SetPacer(d Delayer) {
	f.pacer = d
}

// Crawl runs until the queue is empty. On cancellation it returns what was
// collected so far together with the context error. Each call is an
// independent run with its own anchors.
func (f *Frontier) Crawl(ctx context.Context) (*Result, error) {
	f.stats = CrawlStats{StartTime: time.Now()}
	f.anchors = NewAnchorTable()
	f.processor = NewPageProcessor(f.converter, f.config.RemoveSelectors, f.anchors)
	policy := f.loadPolicy(ctx)

	root := &node{url: f.config.StartURL, canonical: Canonicalize(f.config.StartURL)}
	known := map[string]*node{root.canonical: root}
	visited := make(map[string]bool)
	queue := []*node{root}
	byURL := make(map[string]*PageRecord)

	result := &Result{Anchors: f.anchors.Map()}

	slog.Info("Starting crawl", "start_url", root.url, "base_url", f.config.BaseURL)

	var crawlErr error
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			crawlErr = err
			break
		}

		current := queue[0]
		queue = queue[1:]

		if visited[current.canonical] {
			continue
		}
		visited[current.canonical] = true

		rec := &PageRecord{
			CanonicalURL: current.canonical,
			OriginalURL:  current.url,
			CrawledAt:    time.Now().UTC(),
		}
		result.Records = append(result.Records, rec)
		byURL[rec.CanonicalURL] = rec

		if reason := f.skipReason(policy, current); reason != "" {
			f.skip(rec, reason)
			continue
		}

		for _, child := range f.visit(ctx, current, rec) {
			if _, ok := known[child.canonical]; ok {
				continue
			}
			known[child.canonical] = child
			queue = append(queue, child)
		}

		if rec.HasText {
			result.Pages = append(result.Pages, model.PageText{URL: rec.CanonicalURL, Text: rec.Text})
		}
		f.record(rec)

		if err := f.pacer.Wait(ctx, current.url); err != nil {
			crawlErr = err
			break
		}
	}

	replaceAnchorURLs(result.Pages, f.anchors.Map())
	for _, page := range result.Pages {
		byURL[page.URL].Text = page.Text
	}

	f.stats.PagesDiscovered = len(known)
	f.stats.Duration = time.Since(f.stats.StartTime)
	result.Stats = f.stats

	slog.Info("Crawl finished",
		"pages_discovered", f.stats.PagesDiscovered,
		"pages_fetched", f.stats.PagesFetched,
		"pages_with_text", len(result.Pages),
		"pages_skipped", f.stats.PagesSkipped,
		"fetch_errors", f.stats.FetchErrors,
		"convert_errors", f.stats.ConvertErrors,
		"duration", f.stats.Duration)

	return result, crawlErr
}

// loadPolicy returns nil when robots handling is off or the policy could
// not be loaded.
func (f *Frontier) loadPolicy(ctx context.Context) SitePolicy {
	if f.config.IgnoreRobots || f.policyLoader == nil {
		return nil
	}

	policy, err := f.policyLoader.Load(ctx, f.config.BaseURL)
	if err != nil {
		slog.Warn("Failed to load robots.txt, crawling unrestricted", "base_url", f.config.BaseURL, "error", err)
		return nil
	}

	if delay := policy.CrawlDelay(f.agent); delay > 0 {
		if u, err := url.Parse(f.config.BaseURL); err == nil {
			f.rateLimiter.SetDomainDelay(u.Host, delay)
			slog.Info("Applying robots.txt crawl delay", "host", u.Host, "delay", delay)
		}
	}
	return policy
}

// skipReason checks the ignore list and then the site policy.
func (f *Frontier) skipReason(policy SitePolicy, n *node) string {
	if f.filter.Ignored(n.canonical) {
		return SkipIgnoredPath
	}
	if policy != nil && !policy.Allows(f.agent, canonicalPath(n.canonical)) {
		return SkipRobots
	}
	return ""
}

func (f *Frontier) skip(rec *PageRecord, reason string) {
	rec.Status = StatusSkipped
	rec.SkipReason = reason
	f.stats.PagesSkipped++
	slog.Info("Skipping URL", "url", rec.CanonicalURL, "reason", reason)
	f.record(rec)
}

// visit fetches and extracts n and returns its not yet filtered-out
// children. rec is filled in with the outcome.
func (f *Frontier) visit(ctx context.Context, n *node, rec *PageRecord) []*node {
	if err := f.rateLimiter.Wait(ctx, n.url); err != nil {
		f.fetchFailed(rec, err)
		return nil
	}

	slog.Info("Processing", "url", n.canonical)
	fetched, err := f.fetcher.Fetch(ctx, n.url, f.headers)
	if err == nil && (fetched == nil || fetched.HTML == "") {
		err = ErrEmptyContent
	}
	if err != nil {
		f.fetchFailed(rec, err)
		return nil
	}
	f.stats.PagesFetched++

	rec.FinalURL = fetched.FinalURL
	rec.StatusCode = fetched.StatusCode
	rec.ResponseSize = fetched.ResponseSize
	rec.TTFB = fetched.Metrics.TTFB
	rec.DownloadTime = fetched.Metrics.DownloadTime

	if fetched.FinalURL != "" && f.filter.Ignored(fetched.FinalURL) {
		rec.Status = StatusSkipped
		rec.SkipReason = SkipIgnoredRedirect
		f.stats.PagesSkipped++
		slog.Info("Skipping redirected URL", "url", n.canonical, "final_url", fetched.FinalURL)
		return nil
	}

	ext, err := f.processor.Process(n.canonical, n.url, fetched.HTML)
	if err != nil {
		f.convertFailed(rec, err)
		return nil
	}

	rec.AnchorID = ext.AnchorID
	if ext.ConvertErr != nil {
		f.convertFailed(rec, ext.ConvertErr)
	} else {
		rec.Status = StatusCompleted
		rec.Text = ext.Text
		rec.HasText = true
	}

	children := f.children(n, ext)
	rec.Children = n.children
	if err := f.journal.RecordLinks(n.canonical, n.children); err != nil {
		slog.Warn("Failed to journal links", "url", n.canonical, "error", err)
	}
	return children
}

// children filters the links of a page down to same-host, allowed targets.
// Every surviving target is appended to n's child list once.
func (f *Frontier) children(n *node, ext *Extraction) []*node {
	seen := make(map[string]bool, len(ext.Links))
	var out []*node
	for _, link := range ext.Links {
		if !sameHost(link.URL, n.url) {
			continue
		}
		canonical := Canonicalize(link.URL)
		if !f.filter.Allowed(canonical) || seen[canonical] {
			continue
		}
		seen[canonical] = true
		n.children = append(n.children, canonical)
		out = append(out, &node{url: link.URL, canonical: canonical})
	}
	return out
}

func (f *Frontier) fetchFailed(rec *PageRecord, err error) {
	rec.Status = StatusFetchError
	rec.Error = err.Error()
	f.stats.FetchErrors++
	slog.Error("Failed to fetch page", "url", rec.OriginalURL, "error", err)
	if jerr := f.journal.RecordError(rec.CanonicalURL, errorType(err), err.Error()); jerr != nil {
		slog.Warn("Failed to journal error", "url", rec.CanonicalURL, "error", jerr)
	}
}

func (f *Frontier) convertFailed(rec *PageRecord, err error) {
	rec.Status = StatusConvertError
	rec.Error = err.Error()
	f.stats.ConvertErrors++
	slog.Error("Failed to convert page", "url", rec.CanonicalURL, "error", err)
	if jerr := f.journal.RecordError(rec.CanonicalURL, "convert_error", err.Error()); jerr != nil {
		slog.Warn("Failed to journal error", "url", rec.CanonicalURL, "error", jerr)
	}
}

func (f *Frontier) record(rec *PageRecord) {
	if err := f.journal.RecordPage(rec); err != nil {
		slog.Warn("Failed to journal page", "url", rec.CanonicalURL, "error", err)
	}
}

// replaceAnchorURLs substitutes every literal occurrence of an anchored URL
// in the page texts with its anchor reference, in anchor assignment order.
func replaceAnchorURLs(pages []model.PageText, anchors *model.AnchorMap) {
	anchors.Each(func(u, anchor string) {
		for i := range pages {
			pages[i].Text = strings.ReplaceAll(pages[i].Text, u, "#"+anchor)
		}
	})
}

// errorType classifies fetch errors for the journal
func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrNotHTML):
		return "not_html"
	case errors.Is(err, ErrEmptyContent):
		return "empty_content"
	default:
		return "fetch_error"
	}
}
