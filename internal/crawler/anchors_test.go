package crawler

import "testing"

func TestSlug(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"", "home"},
		{"/", "home"},
		{"/docs", "docs"},
		{"/docs/getting-started", "docs_getting-started"},
		{"/a/b/c/", "a_b_c"},
	}

	for _, tt := range tests {
		if got := Slug(tt.path); got != tt.expected {
			t.Errorf("Slug(%q) = %q, want %q", tt.path, got, tt.expected)
		}
	}
}

func TestAnchorTableAssign(t *testing.T) {
	table := NewAnchorTable()

	steps := []struct {
		url      string
		expected string
	}{
		{"https://example.com", "home"},
		{"https://example.com/docs", "docs"},
		{"https://other.com/docs", "docs_1"},
		{"https://third.com/docs", "docs_2"},
		{"https://other.com", "home_3"},
		{"https://example.com/docs", "docs"},
		{"https://example.com/docs_1", "docs_1_4"},
	}

	for _, s := range steps {
		if got := table.Assign(s.url); got != s.expected {
			t.Errorf("Assign(%q) = %q, want %q", s.url, got, s.expected)
		}
	}

	if table.Map().Len() != 6 {
		t.Errorf("expected 6 assignments, got %d", table.Map().Len())
	}
}

func TestAnchorTableSuffixSkipsTakenNames(t *testing.T) {
	table := NewAnchorTable()
	table.Assign("https://example.com/a_1")
	table.Assign("https://example.com/a")

	// a is taken and a_1 is taken, so the counter moves on to a_2
	if got := table.Assign("https://other.com/a"); got != "a_2" {
		t.Errorf("Assign() = %q, want a_2", got)
	}
}

func TestAnchorTableInjective(t *testing.T) {
	table := NewAnchorTable()
	urls := []string{
		"https://example.com",
		"https://example.com/x",
		"https://example.com/x_1",
		"https://other.com/x",
		"https://other.com",
		"https://other.com/x_1",
		"https://third.com/x",
	}

	seen := make(map[string]string)
	for _, u := range urls {
		id := table.Assign(u)
		if prev, dup := seen[id]; dup {
			t.Errorf("anchor %q assigned to both %s and %s", id, prev, u)
		}
		seen[id] = u
	}

	if _, ok := table.Lookup("https://unknown.com"); ok {
		t.Error("Lookup of unassigned URL should fail")
	}
}
