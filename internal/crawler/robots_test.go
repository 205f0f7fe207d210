package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testRobotsTxt = `
User-agent: *
Disallow: /admin/
Disallow: /private/
Allow: /private/public/
Crawl-delay: 2

User-agent: Googlebot
Disallow: /no-google/

Sitemap: https://example.com/sitemap.xml
`

func TestRobotsLoader(t *testing.T) {
	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			gotAgent = r.Header.Get("User-Agent")
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte(testRobotsTxt))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	httpClient := NewHTTPClient("", 5*time.Second)
	defer httpClient.Close()

	loader := NewRobotsLoader(httpClient, map[string]string{"User-Agent": "Test-Crawler/1.0"})
	policy, err := loader.Load(context.Background(), server.URL+"/docs/start")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if gotAgent != "Test-Crawler/1.0" {
		t.Errorf("robots.txt requested with User-Agent %q", gotAgent)
	}

	tests := []struct {
		name     string
		agent    string
		path     string
		expected bool
	}{
		{"Root allowed", "Test-Crawler/1.0", "/", true},
		{"Empty path is root", "Test-Crawler/1.0", "", true},
		{"Admin disallowed", "Test-Crawler/1.0", "/admin/page", false},
		{"Private disallowed", "Test-Crawler/1.0", "/private/data", false},
		{"Private public allowed", "Test-Crawler/1.0", "/private/public/page", true},
		{"Other path allowed", "*", "/blog/post", true},
		{"Wildcard agent disallowed", "*", "/admin/", false},
		{"Specific group applies", "Googlebot/2.1", "/no-google/x", false},
		{"Specific group replaces wildcard", "Googlebot/2.1", "/admin/page", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.Allows(tt.agent, tt.path); got != tt.expected {
				t.Errorf("Allows(%q, %q) = %v, want %v", tt.agent, tt.path, got, tt.expected)
			}
		})
	}

	if got := policy.CrawlDelay("*"); got != 2*time.Second {
		t.Errorf("CrawlDelay(*) = %v, want 2s", got)
	}
	if got := policy.CrawlDelay("Googlebot"); got != 0 {
		t.Errorf("CrawlDelay(Googlebot) = %v, want 0", got)
	}
}

func TestParseRobotsStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected bool
	}{
		{"not found allows all", http.StatusNotFound, true},
		{"server error disallows all", http.StatusInternalServerError, false},
		{"unauthorized disallows all", http.StatusUnauthorized, false},
		{"forbidden disallows all", http.StatusForbidden, false},
		{"gone allows all", http.StatusGone, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy, err := ParseRobots(tt.status, nil)
			if err != nil {
				t.Fatalf("ParseRobots() error: %v", err)
			}
			if got := policy.Allows("*", "/docs"); got != tt.expected {
				t.Errorf("Allows() = %v, want %v", got, tt.expected)
			}
			if got := policy.Allows("Googlebot", ""); got != tt.expected {
				t.Errorf("Allows() for root = %v, want %v", got, tt.expected)
			}
			if d := policy.CrawlDelay("*"); d != 0 {
				t.Errorf("CrawlDelay() = %v, want 0", d)
			}
		})
	}
}

func TestRobotsLoaderNetworkError(t *testing.T) {
	httpClient := NewHTTPClient("Test-Crawler/1.0", 1*time.Second)
	defer httpClient.Close()

	loader := NewRobotsLoader(httpClient, nil)
	if _, err := loader.Load(context.Background(), "http://127.0.0.1:1"); err == nil {
		t.Error("Expected error for unreachable host")
	}
}
