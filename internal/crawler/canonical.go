package crawler

import (
	"net/url"
	"strings"
)

// Canonicalize returns the identity key of a URL: query and fragment are
// dropped, a trailing /index.html or /index.htm is removed and trailing
// slashes are trimmed. It never fails; unparsable input is trimmed as text.
func Canonicalize(raw string) string {
	s := raw
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)

	u, err := url.Parse(s)
	if err != nil {
		return trimIndexPath(s)
	}
	if u.Opaque != "" {
		return u.String()
	}

	escaped := trimIndexPath(u.EscapedPath())
	path, err := url.PathUnescape(escaped)
	if err != nil {
		path = escaped
	}
	u.Path = path
	u.RawPath = escaped
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// trimIndexPath strips index documents, trailing slashes and surrounding
// whitespace until the path no longer changes.
func trimIndexPath(p string) string {
	for {
		prev := p
		switch {
		case strings.HasSuffix(p, "/index.html"):
			p = strings.TrimSuffix(p, "index.html")
		case strings.HasSuffix(p, "/index.htm"):
			p = strings.TrimSuffix(p, "index.htm")
		}
		p = strings.TrimSpace(strings.TrimRight(p, "/"))
		if p == prev {
			return p
		}
	}
}

// canonicalPath returns the path component of a canonical URL.
func canonicalPath(canonical string) string {
	u, err := url.Parse(canonical)
	if err != nil {
		return ""
	}
	return u.EscapedPath()
}

// sameHost reports whether a and b share scheme-independent host:port.
func sameHost(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return ua.Host == ub.Host
}
