package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/masahif/docfold/internal/config"
	"github.com/masahif/docfold/internal/convert"
)

// fakePage is a canned fetch response
type fakePage struct {
	html     string
	finalURL string
	err      error
}

// fakeFetcher serves pages from a map and records every request
type fakeFetcher struct {
	pages    map[string]fakePage
	requests []string
	headers  []map[string]string
	onFetch  func(url string)
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, headers map[string]string) (*FetchResult, error) {
	f.requests = append(f.requests, url)
	f.headers = append(f.headers, headers)
	if f.onFetch != nil {
		f.onFetch(url)
	}
	p, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("%w: HTTP 404", ErrFetchFailed)
	}
	if p.err != nil {
		return nil, p.err
	}
	final := p.finalURL
	if final == "" {
		final = url
	}
	return &FetchResult{HTML: p.html, FinalURL: final, StatusCode: 200, ResponseSize: int64(len(p.html))}, nil
}

// countingDelayer counts waits without sleeping
type countingDelayer struct {
	urls []string
}

func (d *countingDelayer) Wait(_ context.Context, url string) error {
	d.urls = append(d.urls, url)
	return nil
}

// fakePolicy disallows the listed path prefixes
type fakePolicy struct {
	disallowed []string
	delay      time.Duration
	agents     []string
}

func (p *fakePolicy) Allows(agent, path string) bool {
	p.agents = append(p.agents, agent)
	for _, d := range p.disallowed {
		if strings.HasPrefix(path, d) {
			return false
		}
	}
	return true
}

func (p *fakePolicy) CrawlDelay(string) time.Duration { return p.delay }

type fakePolicyLoader struct {
	policy SitePolicy
	err    error
	calls  int
}

func (l *fakePolicyLoader) Load(context.Context, string) (SitePolicy, error) {
	l.calls++
	return l.policy, l.err
}

// recordingJournal keeps everything in memory
type recordingJournal struct {
	pages  []*PageRecord
	links  map[string][]string
	errors []string
}

func (j *recordingJournal) RecordPage(rec *PageRecord) error {
	j.pages = append(j.pages, rec)
	return nil
}

func (j *recordingJournal) RecordLinks(source string, targets []string) error {
	if j.links == nil {
		j.links = make(map[string][]string)
	}
	j.links[source] = targets
	return nil
}

func (j *recordingJournal) RecordError(url, errorType, _ string) error {
	j.errors = append(j.errors, url+" "+errorType)
	return nil
}

func (j *recordingJournal) SetMeta(string, string) error { return nil }

// selectiveConverter fails on markup containing FAIL
type selectiveConverter struct{}

func (selectiveConverter) Convert(html string) (string, error) {
	if strings.Contains(html, "FAIL") {
		return "", errors.New("conversion failed")
	}
	return html, nil
}

func links(hrefs ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, h := range hrefs {
		fmt.Fprintf(&b, `<a href="%s">%s</a>`, h, h)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func testConfig(start string) *config.CrawlConfig {
	cfg := config.DefaultConfig()
	cfg.BaseURL = "https://example.com"
	cfg.StartURL = start
	cfg.Delay = 0
	cfg.DelayRange = 0
	return cfg
}

func newTestFrontier(cfg *config.CrawlConfig, fetcher Fetcher, conv Converter) (*Frontier, *countingDelayer) {
	f := NewFrontier(cfg, fetcher, conv)
	d := &countingDelayer{}
	f.SetPacer(d)
	return f, d
}

func pageURLs(r *Result) []string {
	var out []string
	for _, p := range r.Pages {
		out = append(out, p.URL)
	}
	return out
}

func TestFrontierBreadthFirstOrder(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		"https://example.com/":  {html: links("/a", "/b", "/a/", "/a#top", "/a?x=1")},
		"https://example.com/a": {html: links("/", "/c", "/index.html")},
		"https://example.com/b": {html: links("/c/", "/d")},
		"https://example.com/c": {html: links("/a")},
		"https://example.com/d": {html: links()},
	}}

	f, delayer := newTestFrontier(testConfig("https://example.com/"), fetcher, passthroughConverter{})
	result, err := f.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl() error: %v", err)
	}

	wantFetches := []string{
		"https://example.com/",
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/c",
		"https://example.com/d",
	}
	if strings.Join(fetcher.requests, " ") != strings.Join(wantFetches, " ") {
		t.Errorf("fetch order = %v, want %v", fetcher.requests, wantFetches)
	}

	wantPages := []string{
		"https://example.com",
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/c",
		"https://example.com/d",
	}
	if strings.Join(pageURLs(result), " ") != strings.Join(wantPages, " ") {
		t.Errorf("page order = %v, want %v", pageURLs(result), wantPages)
	}

	wantAnchors := []string{"home", "a", "b", "c", "d"}
	for i, u := range wantPages {
		if got, _ := result.Anchors.Get(u); got != wantAnchors[i] {
			t.Errorf("anchor of %s = %q, want %q", u, got, wantAnchors[i])
		}
	}

	root := result.Records[0]
	if strings.Join(root.Children, " ") != "https://example.com/a https://example.com/b" {
		t.Errorf("root children = %v", root.Children)
	}

	if len(delayer.urls) != 5 {
		t.Errorf("expected one delay per fetched node, got %d", len(delayer.urls))
	}

	if result.Stats.PagesDiscovered != 5 || result.Stats.PagesFetched != 5 {
		t.Errorf("unexpected stats: %+v", result.Stats)
	}
}

func TestFrontierFetchesEachCanonicalURLOnce(t *testing.T) {
	// Every page links to every other page in several spellings
	all := []string{"/", "/x", "/x/", "/x/index.html", "/y?ref=1", "/y#frag", "/z/"}
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		"https://example.com/":        {html: links(all...)},
		"https://example.com/x":       {html: links(all...)},
		"https://example.com/y?ref=1": {html: links(all...)},
		"https://example.com/z/":      {html: links(all...)},
	}}

	f, _ := newTestFrontier(testConfig("https://example.com/"), fetcher, passthroughConverter{})
	if _, err := f.Crawl(context.Background()); err != nil {
		t.Fatalf("Crawl() error: %v", err)
	}

	seen := make(map[string]int)
	for _, r := range fetcher.requests {
		seen[Canonicalize(r)]++
	}
	for u, n := range seen {
		if n != 1 {
			t.Errorf("%s fetched %d times", u, n)
		}
	}
	if len(seen) != 4 {
		t.Errorf("expected 4 distinct pages, got %d: %v", len(seen), fetcher.requests)
	}
}

func TestFrontierRepeatedCrawlStartsFresh(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		"https://example.com/":  {html: links("/a")},
		"https://example.com/a": {html: links("/")},
	}}

	f, _ := newTestFrontier(testConfig("https://example.com/"), fetcher, passthroughConverter{})
	first, err := f.Crawl(context.Background())
	if err != nil {
		t.Fatalf("first Crawl() error: %v", err)
	}
	second, err := f.Crawl(context.Background())
	if err != nil {
		t.Fatalf("second Crawl() error: %v", err)
	}

	if got := strings.Join(second.Anchors.URLs(), " "); got != "https://example.com https://example.com/a" {
		t.Errorf("second run anchors cover %v", got)
	}
	for _, u := range []string{"https://example.com", "https://example.com/a"} {
		a1, _ := first.Anchors.Get(u)
		a2, _ := second.Anchors.Get(u)
		if a1 != a2 {
			t.Errorf("anchor of %s changed between runs: %q then %q", u, a1, a2)
		}
	}
	if len(first.Pages) != len(second.Pages) {
		t.Fatalf("page count changed between runs: %d then %d", len(first.Pages), len(second.Pages))
	}
	for i := range first.Pages {
		if first.Pages[i].Text != second.Pages[i].Text {
			t.Errorf("text of %s changed between runs:\n%s\n%s", first.Pages[i].URL, first.Pages[i].Text, second.Pages[i].Text)
		}
	}
}

func TestFrontierAllowedPaths(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		"https://example.com/docs":   {html: links("/docsish/x", "/docs/x", "/docs", "/blog")},
		"https://example.com/docs/x": {html: links()},
	}}

	cfg := testConfig("https://example.com/docs")
	cfg.AllowedPaths = []string{"/docs"}
	f, _ := newTestFrontier(cfg, fetcher, passthroughConverter{})
	result, err := f.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl() error: %v", err)
	}

	want := "https://example.com/docs https://example.com/docs/x"
	if got := strings.Join(fetcher.requests, " "); got != want {
		t.Errorf("fetched %s, want %s", got, want)
	}

	children := strings.Join(result.Records[0].Children, " ")
	if strings.Contains(children, "docsish") || strings.Contains(children, "blog") {
		t.Errorf("filtered links must not be children: %s", children)
	}
	if !strings.Contains(children, "https://example.com/docs/x") {
		t.Errorf("nested link missing from children: %s", children)
	}
}

func TestFrontierIgnorePathsBeforeFetch(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		"https://example.com/":            {html: links("/draft-entry", "/docs")},
		"https://example.com/docs":        {html: links()},
		"https://example.com/draft-entry": {html: links()},
	}}

	cfg := testConfig("https://example.com/")
	cfg.IgnorePaths = []string{"/draft"}
	f, delayer := newTestFrontier(cfg, fetcher, passthroughConverter{})
	result, err := f.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl() error: %v", err)
	}

	for _, r := range fetcher.requests {
		if strings.Contains(r, "draft") {
			t.Errorf("ignored URL was fetched: %s", r)
		}
	}

	var skipped *PageRecord
	for _, rec := range result.Records {
		if rec.CanonicalURL == "https://example.com/draft-entry" {
			skipped = rec
		}
	}
	if skipped == nil || skipped.Status != StatusSkipped || skipped.SkipReason != SkipIgnoredPath {
		t.Errorf("expected draft-entry to be skipped as ignored, got %+v", skipped)
	}

	if len(delayer.urls) != 2 {
		t.Errorf("skipped nodes should not be delayed, got %d delays", len(delayer.urls))
	}
}

func TestFrontierIgnorePathAfterRedirect(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		"https://example.com/":            {html: links("/draft-entry")},
		"https://example.com/draft-entry": {html: links("/secret"), finalURL: "https://example.com/draft/final"},
		"https://example.com/secret":      {html: links()},
	}}

	cfg := testConfig("https://example.com/")
	cfg.IgnorePaths = []string{"/draft/"}
	f, _ := newTestFrontier(cfg, fetcher, passthroughConverter{})
	result, err := f.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl() error: %v", err)
	}

	if len(fetcher.requests) != 2 || fetcher.requests[1] != "https://example.com/draft-entry" {
		t.Fatalf("expected the redirecting page to be fetched once, got %v", fetcher.requests)
	}

	for _, p := range result.Pages {
		if p.URL == "https://example.com/draft-entry" {
			t.Error("redirected page should be dropped")
		}
	}
	if _, ok := result.Anchors.Get("https://example.com/draft-entry"); ok {
		t.Error("redirected page should not get an anchor")
	}

	rec := result.Records[1]
	if rec.SkipReason != SkipIgnoredRedirect || rec.FinalURL != "https://example.com/draft/final" {
		t.Errorf("unexpected record for redirected page: %+v", rec)
	}
}

func TestFrontierReplacesLiteralURLs(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		"https://example.com/guide": {html: `<html><body><p>See https://example.com/api for details</p><a href="/api">API</a></body></html>`},
		"https://example.com/api":   {html: `<html><body><code>curl https://example.com/guide</code></body></html>`},
	}}

	f, _ := newTestFrontier(testConfig("https://example.com/guide"), fetcher, passthroughConverter{})
	result, err := f.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl() error: %v", err)
	}

	if len(result.Pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(result.Pages))
	}

	guide, api := result.Pages[0].Text, result.Pages[1].Text
	if !strings.Contains(guide, "See #api for details") {
		t.Errorf("literal URL in prose not replaced: %s", guide)
	}
	if strings.Contains(guide, "https://example.com/api") {
		t.Errorf("guide still contains the api URL: %s", guide)
	}
	if !strings.Contains(api, "curl #guide") {
		t.Errorf("literal URL in code not replaced: %s", api)
	}
	if result.Records[0].Text != guide {
		t.Error("record text should carry the replaced text")
	}
}

func TestFrontierFetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		"https://example.com/":       {html: links("/broken", "/ok")},
		"https://example.com/broken": {err: fmt.Errorf("%w: connection reset", ErrFetchFailed)},
		"https://example.com/ok":     {html: links()},
	}}

	journal := &recordingJournal{}
	f, delayer := newTestFrontier(testConfig("https://example.com/"), fetcher, passthroughConverter{})
	f.SetJournal(journal)
	result, err := f.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl() error: %v", err)
	}

	if got := strings.Join(pageURLs(result), " "); got != "https://example.com https://example.com/ok" {
		t.Errorf("pages = %s", got)
	}
	if _, ok := result.Anchors.Get("https://example.com/broken"); ok {
		t.Error("failed page should not get an anchor")
	}
	if result.Stats.FetchErrors != 1 {
		t.Errorf("FetchErrors = %d, want 1", result.Stats.FetchErrors)
	}
	if len(journal.errors) != 1 || journal.errors[0] != "https://example.com/broken fetch_error" {
		t.Errorf("journal errors = %v", journal.errors)
	}
	if len(journal.pages) != 3 {
		t.Errorf("expected 3 journaled pages, got %d", len(journal.pages))
	}
	if len(delayer.urls) != 3 {
		t.Errorf("fetch attempts should be delayed, got %d delays", len(delayer.urls))
	}
}

func TestFrontierConversionFailureStillDiscoversChildren(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		"https://example.com/":      {html: `<html><body>FAIL <a href="/child">child</a></body></html>`},
		"https://example.com/child": {html: links()},
	}}

	f, _ := newTestFrontier(testConfig("https://example.com/"), fetcher, selectiveConverter{})
	result, err := f.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl() error: %v", err)
	}

	if got := strings.Join(pageURLs(result), " "); got != "https://example.com/child" {
		t.Errorf("pages = %s, want only the child", got)
	}
	if result.Records[0].Status != StatusConvertError {
		t.Errorf("root status = %s, want %s", result.Records[0].Status, StatusConvertError)
	}
	if result.Stats.ConvertErrors != 1 {
		t.Errorf("ConvertErrors = %d, want 1", result.Stats.ConvertErrors)
	}
}

func TestFrontierRobots(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		"https://example.com/":          {html: links("/private/x", "/public")},
		"https://example.com/public":    {html: links()},
		"https://example.com/private/x": {html: links()},
	}}

	t.Run("policy applied", func(t *testing.T) {
		fetcher.requests = nil
		policy := &fakePolicy{disallowed: []string{"/private"}}
		loader := &fakePolicyLoader{policy: policy}

		cfg := testConfig("https://example.com/")
		cfg.UserAgent = "docfold-test"
		f, _ := newTestFrontier(cfg, fetcher, passthroughConverter{})
		f.SetPolicyLoader(loader)
		result, err := f.Crawl(context.Background())
		if err != nil {
			t.Fatalf("Crawl() error: %v", err)
		}

		for _, r := range fetcher.requests {
			if strings.Contains(r, "private") {
				t.Errorf("disallowed URL fetched: %s", r)
			}
		}
		if result.Stats.PagesSkipped != 1 {
			t.Errorf("PagesSkipped = %d, want 1", result.Stats.PagesSkipped)
		}
		for _, a := range policy.agents {
			if a != "docfold-test" {
				t.Errorf("policy checked with agent %q", a)
			}
		}
		if fetcher.headers[0]["User-Agent"] != "docfold-test" {
			t.Errorf("user agent not merged into headers: %v", fetcher.headers[0])
		}
	})

	t.Run("load failure crawls unrestricted", func(t *testing.T) {
		fetcher.requests = nil
		loader := &fakePolicyLoader{err: errors.New("no robots")}

		f, _ := newTestFrontier(testConfig("https://example.com/"), fetcher, passthroughConverter{})
		f.SetPolicyLoader(loader)
		if _, err := f.Crawl(context.Background()); err != nil {
			t.Fatalf("Crawl() error: %v", err)
		}
		if len(fetcher.requests) != 3 {
			t.Errorf("expected 3 fetches, got %v", fetcher.requests)
		}
	})

	t.Run("ignored robots", func(t *testing.T) {
		fetcher.requests = nil
		loader := &fakePolicyLoader{policy: &fakePolicy{disallowed: []string{"/"}}}

		cfg := testConfig("https://example.com/")
		cfg.IgnoreRobots = true
		f, _ := newTestFrontier(cfg, fetcher, passthroughConverter{})
		f.SetPolicyLoader(loader)
		if _, err := f.Crawl(context.Background()); err != nil {
			t.Fatalf("Crawl() error: %v", err)
		}
		if loader.calls != 0 {
			t.Error("policy should not be loaded when robots are ignored")
		}
		if len(fetcher.requests) != 3 {
			t.Errorf("expected 3 fetches, got %v", fetcher.requests)
		}
	})
}

func TestFrontierStaysOnHost(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		"https://example.com/":      {html: links("https://other.com/docs", "https://sub.example.com/", "/local")},
		"https://example.com/local": {html: links()},
	}}

	f, _ := newTestFrontier(testConfig("https://example.com/"), fetcher, passthroughConverter{})
	if _, err := f.Crawl(context.Background()); err != nil {
		t.Fatalf("Crawl() error: %v", err)
	}

	want := "https://example.com/ https://example.com/local"
	if got := strings.Join(fetcher.requests, " "); got != want {
		t.Errorf("fetched %s, want %s", got, want)
	}
}

func TestFrontierCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &fakeFetcher{
		pages: map[string]fakePage{
			"https://example.com/":  {html: links("/a")},
			"https://example.com/a": {html: links()},
		},
		onFetch: func(string) { cancel() },
	}

	f, _ := newTestFrontier(testConfig("https://example.com/"), fetcher, passthroughConverter{})
	result, err := f.Crawl(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Crawl() error = %v, want context.Canceled", err)
	}
	if len(fetcher.requests) != 1 {
		t.Errorf("expected crawl to stop after one fetch, got %v", fetcher.requests)
	}
	if result == nil || len(result.Pages) != 1 {
		t.Errorf("expected partial result with one page")
	}
}

func TestFrontierIntegration(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	})
	mux.HandleFunc("/docs/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/docs/":
			_, _ = w.Write([]byte(`<html><body><nav>Menu</nav><h1>Welcome</h1>
<p>Start with the <a href="intro">introduction</a>.</p>
<p><a href="/private/notes">notes</a> <a href="/old">old</a></p></body></html>`))
		case "/docs/intro":
			_, _ = w.Write([]byte(`<html><body><nav>Menu</nav><h1>Intro</h1>
<p>Back to <a href="/docs/">the start</a>.</p></body></html>`))
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/intro", http.StatusFound)
	})
	mux.HandleFunc("/private/notes", func(w http.ResponseWriter, r *http.Request) {
		t.Error("robots.txt disallowed page was fetched")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := config.DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.StartURL = server.URL + "/docs/"
	cfg.Delay = 0
	cfg.DelayRange = 0
	cfg.RemoveSelectors = []string{"nav"}
	cfg.UserAgent = "docfold-test/1.0"

	client := NewHTTPClient("", 5*time.Second)
	defer client.Close()

	f := NewFrontier(cfg, client, convert.NewMarkdownConverter())
	f.SetPolicyLoader(NewRobotsLoader(client, cfg.RequestHeaders()))
	result, err := f.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl() error: %v", err)
	}

	wantPages := []string{server.URL + "/docs", server.URL + "/docs/intro", server.URL + "/old"}
	if got := strings.Join(pageURLs(result), " "); got != strings.Join(wantPages, " ") {
		t.Fatalf("pages = %s, want %s", got, strings.Join(wantPages, " "))
	}

	start := result.Pages[0].Text
	if strings.Contains(start, "Menu") {
		t.Errorf("nav should be removed: %s", start)
	}
	if !strings.Contains(start, "Welcome") {
		t.Errorf("start page text missing heading: %s", start)
	}

	intro := result.Pages[1].Text
	if !strings.Contains(intro, "(#docs)") {
		t.Errorf("link back to the start page should point at its anchor: %s", intro)
	}

	if result.Stats.PagesSkipped != 1 {
		t.Errorf("PagesSkipped = %d, want 1", result.Stats.PagesSkipped)
	}
}
