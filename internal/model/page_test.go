package model

import "testing"

func TestAnchorMapOrder(t *testing.T) {
	m := NewAnchorMap()
	m.Set("https://example.com/b", "b")
	m.Set("https://example.com/a", "a")
	m.Set("https://example.com", "home")

	var got []string
	m.Each(func(url, anchor string) {
		got = append(got, anchor)
	})

	want := []string{"b", "a", "home"}
	if len(got) != len(want) {
		t.Fatalf("Each visited %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAnchorMapSetReplaces(t *testing.T) {
	m := NewAnchorMap()
	m.Set("u1", "first")
	m.Set("u2", "second")
	m.Set("u1", "renamed")

	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
	if a, _ := m.Get("u1"); a != "renamed" {
		t.Errorf("Get(u1) = %q, want renamed", a)
	}
	if m.Taken("first") {
		t.Error("old anchor should be released")
	}
	if !m.Taken("renamed") {
		t.Error("new anchor should be taken")
	}
	if urls := m.URLs(); urls[0] != "u1" {
		t.Errorf("u1 lost its position: %v", urls)
	}
}

func TestNilAnchorMap(t *testing.T) {
	var m *AnchorMap
	if _, ok := m.Get("x"); ok {
		t.Error("nil map should not contain entries")
	}
	if m.Len() != 0 {
		t.Error("nil map should be empty")
	}
	m.Each(func(string, string) { t.Error("nil map should not iterate") })
}
