package crawler

import (
	"fmt"
	"strings"

	"github.com/masahif/docfold/internal/model"
)

// AnchorTable assigns anchor ids to canonical URLs. Collisions get a suffix
// from a counter shared by the whole crawl, so ids stay unique per run.
type AnchorTable struct {
	anchors *model.AnchorMap
	counter int
}

// NewAnchorTable creates an empty table.
func NewAnchorTable() *AnchorTable {
	return &AnchorTable{
		anchors: model.NewAnchorMap(),
		counter: 1,
	}
}

// Slug derives the base anchor name from a canonical URL path.
func Slug(path string) string {
	name := strings.ReplaceAll(strings.Trim(path, "/"), "/", "_")
	if name == "" {
		return "home"
	}
	return name
}

// Assign returns the anchor of canonical, creating one on first use.
func (t *AnchorTable) Assign(canonical string) string {
	if id, ok := t.anchors.Get(canonical); ok {
		return id
	}

	base := Slug(canonicalPath(canonical))
	id := base
	for t.anchors.Taken(id) {
		id = fmt.Sprintf("%s_%d", base, t.counter)
		t.counter++
	}

	t.anchors.Set(canonical, id)
	return id
}

// Lookup returns the anchor of canonical if one was assigned.
func (t *AnchorTable) Lookup(canonical string) (string, bool) {
	return t.anchors.Get(canonical)
}

// Map exposes the assignments in insertion order.
func (t *AnchorTable) Map() *model.AnchorMap {
	return t.anchors
}
