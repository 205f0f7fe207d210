package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsPolicy is a parsed robots.txt
type RobotsPolicy struct {
	data        *robotstxt.RobotsData
	disallowAll bool
}

// ParseRobots builds a policy from a robots.txt response. 401 and 403
// responses and 5xx responses disallow everything; other 4xx responses
// allow everything.
func ParseRobots(statusCode int, body []byte) (*RobotsPolicy, error) {
	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		return &RobotsPolicy{disallowAll: true}, nil
	}

	data, err := robotstxt.FromStatusAndBytes(statusCode, body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse robots.txt: %w", err)
	}
	return &RobotsPolicy{data: data}, nil
}

// Allows reports whether agent may fetch path.
func (p *RobotsPolicy) Allows(agent, path string) bool {
	if p.disallowAll {
		return false
	}
	if path == "" {
		path = "/"
	}
	return p.data.TestAgent(path, agent)
}

// CrawlDelay returns the Crawl-delay of the group matching agent.
func (p *RobotsPolicy) CrawlDelay(agent string) time.Duration {
	if p.disallowAll {
		return 0
	}
	return p.data.FindGroup(agent).CrawlDelay
}

// RobotsLoader fetches robots.txt from the root of a site
type RobotsLoader struct {
	httpClient *HTTPClient
	headers    map[string]string
}

// NewRobotsLoader creates a loader that sends headers with the request.
func NewRobotsLoader(httpClient *HTTPClient, headers map[string]string) *RobotsLoader {
	return &RobotsLoader{
		httpClient: httpClient,
		headers:    headers,
	}
}

// Load fetches and parses <scheme>://<host>/robots.txt for baseURL.
func (l *RobotsLoader) Load(ctx context.Context, baseURL string) (SitePolicy, error) {
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", parsedURL.Scheme, parsedURL.Host)
	resp, err := l.httpClient.Get(ctx, robotsURL, l.headers)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch robots.txt: %w", err)
	}

	slog.Debug("Fetched robots.txt", "url", robotsURL, "status", resp.StatusCode, "size", len(resp.Body))
	return ParseRobots(resp.StatusCode, resp.Body)
}
