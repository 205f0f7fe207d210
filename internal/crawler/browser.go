package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// BrowserFetcher renders pages in a headless browser before returning
// their markup, for sites that build content with JavaScript.
type BrowserFetcher struct {
	launcher   *launcher.Launcher
	browser    *rod.Browser
	stableWait time.Duration
	timeout    time.Duration
}

// NewBrowserFetcher launches a headless browser. stableWait is how long the
// DOM must stay unchanged before a page counts as rendered.
func NewBrowserFetcher(stableWait, timeout time.Duration) (*BrowserFetcher, error) {
	l := launcher.New().Headless(true)

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	slog.Debug("Browser started", "control_url", controlURL)

	return &BrowserFetcher{
		launcher:   l,
		browser:    browser,
		stableWait: stableWait,
		timeout:    timeout,
	}, nil
}

// Fetch navigates to url, waits for the page to settle and returns the
// rendered markup together with the URL the browser ended up on.
func (b *BrowserFetcher) Fetch(ctx context.Context, url string, headers map[string]string) (*FetchResult, error) {
	tab, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open tab: %v", ErrFetchFailed, err)
	}
	defer func() { _ = tab.Close() }()

	page := tab.Context(ctx).Timeout(b.timeout)

	extra, userAgent := splitBrowserHeaders(headers)
	if userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: userAgent}); err != nil {
			return nil, fmt.Errorf("%w: failed to set user agent: %v", ErrFetchFailed, err)
		}
	}
	if len(extra) > 0 {
		cleanup, err := page.SetExtraHeaders(extra)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to set headers: %v", ErrFetchFailed, err)
		}
		defer cleanup()
	}

	start := time.Now()
	if err := page.Navigate(url); err != nil {
		return nil, fmt.Errorf("%w: navigation failed: %v", ErrFetchFailed, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: page did not load: %v", ErrFetchFailed, err)
	}
	if b.stableWait > 0 {
		if err := page.WaitStable(b.stableWait); err != nil {
			slog.Warn("Page did not stabilize", "url", url, "error", err)
		}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read page: %v", ErrFetchFailed, err)
	}
	if html == "" {
		return nil, ErrEmptyContent
	}

	finalURL := url
	if info, err := page.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}

	return &FetchResult{
		HTML:         html,
		FinalURL:     finalURL,
		ResponseSize: int64(len(html)),
		Metrics:      HTTPMetrics{DownloadTime: time.Since(start)},
	}, nil
}

// Close shuts the browser down.
func (b *BrowserFetcher) Close() error {
	err := b.browser.Close()
	b.launcher.Kill()
	return err
}

// splitBrowserHeaders separates the user agent, which the browser sets
// through its own override, from the remaining headers flattened into
// sorted key/value pairs.
func splitBrowserHeaders(headers map[string]string) ([]string, string) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var extra []string
	userAgent := ""
	for _, k := range keys {
		if strings.EqualFold(k, "User-Agent") {
			userAgent = headers[k]
			continue
		}
		extra = append(extra, k, headers[k])
	}
	return extra, userAgent
}
