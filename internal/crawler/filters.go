package crawler

import (
	"net/url"
	"strings"
)

// PathFilter decides which URLs enter the crawl.
type PathFilter struct {
	allowed []string
	ignored []string
}

// NewPathFilter builds a filter. Allowed prefixes are normalized to start
// with "/" and carry no trailing slash; empty entries are dropped.
func NewPathFilter(allowedPaths, ignorePaths []string) *PathFilter {
	f := &PathFilter{}
	for _, raw := range allowedPaths {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		p := strings.TrimRight(raw, "/")
		if p == "" {
			// "/" is the whole site
			f.allowed = append(f.allowed, "")
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		f.allowed = append(f.allowed, p)
	}
	for _, p := range ignorePaths {
		if p != "" {
			f.ignored = append(f.ignored, p)
		}
	}
	return f
}

// Ignored reports whether rawURL contains any ignored substring.
func (f *PathFilter) Ignored(rawURL string) bool {
	for _, p := range f.ignored {
		if strings.Contains(rawURL, p) {
			return true
		}
	}
	return false
}

// Allowed reports whether the path of canonical equals an allowed prefix
// or is nested under one. With no prefixes every path is allowed.
func (f *PathFilter) Allowed(canonical string) bool {
	if len(f.allowed) == 0 {
		return true
	}

	u, err := url.Parse(canonical)
	if err != nil {
		return false
	}
	path := strings.TrimRight(u.EscapedPath(), "/")

	for _, prefix := range f.allowed {
		if prefix == "" || path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
