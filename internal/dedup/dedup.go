// Package dedup removes near-duplicate text blocks shared across pages.
//
// Each page's text is split into blank-line separated blocks. Identical
// blocks are interned to one id, then every pair of sufficiently long
// distinct blocks whose similarity reaches the threshold is merged with a
// union-find. A group touching more than one page is common: it is removed
// from every page and emitted once through its longest member.
//
// Pairwise comparison is quadratic in the number of distinct blocks.
package dedup

import (
	"unicode/utf8"

	"github.com/masahif/docfold/internal/model"
)

// Default tuning values.
const (
	DefaultSimilarityThreshold = 0.6
	DefaultMinBlockLength      = 20
)

// Options tunes the clustering.
type Options struct {
	// SimilarityThreshold is the minimum ratio for two blocks to be merged.
	SimilarityThreshold float64
	// MinBlockLength is the minimum length in characters for a block to be
	// compared at all. Shorter blocks are never merged and never common.
	MinBlockLength int
}

// DefaultOptions returns the default clustering options.
func DefaultOptions() Options {
	return Options{
		SimilarityThreshold: DefaultSimilarityThreshold,
		MinBlockLength:      DefaultMinBlockLength,
	}
}

// Group is one equivalence class of blocks.
type Group struct {
	Representative string
	Members        []string
	Pages          []string
}

// Common reports whether the group spans more than one page.
func (g Group) Common() bool {
	return len(g.Pages) > 1
}

// Result is the outcome of Deduplicate.
type Result struct {
	// Unique holds, per input page and in input order, the blocks that do
	// not belong to a common group.
	Unique []model.PageBlocks
	// Common holds one representative per common group, in the order the
	// groups were first discovered.
	Common []string
	// Groups lists every group with at least one comparable member, in
	// discovery order. It is informational.
	Groups []Group
}

// UniqueBlocks returns the unique blocks kept for url.
func (r *Result) UniqueBlocks(url string) []string {
	for _, p := range r.Unique {
		if p.URL == url {
			return p.Blocks
		}
	}
	return nil
}

// Deduplicate clusters the blocks of pages and partitions them into
// page-unique and common content.
func Deduplicate(pages []model.PageText, opts Options) *Result {
	pageBlocks := make([][]int, len(pages))
	ids := make(map[string]int)
	var blocks []string

	for i, p := range pages {
		segs := Segment(p.Text)
		pageBlocks[i] = make([]int, len(segs))
		for j, s := range segs {
			id, ok := ids[s]
			if !ok {
				id = len(blocks)
				ids[s] = id
				blocks = append(blocks, s)
			}
			pageBlocks[i][j] = id
		}
	}

	lengths := make([]int, len(blocks))
	var eligible []int
	for id, b := range blocks {
		lengths[id] = utf8.RuneCountInString(b)
		if lengths[id] >= opts.MinBlockLength {
			eligible = append(eligible, id)
		}
	}

	uf := newUnionFind(len(blocks))
	for x := 0; x < len(eligible); x++ {
		for y := x + 1; y < len(eligible); y++ {
			a, b := eligible[x], eligible[y]
			if uf.find(a) == uf.find(b) {
				continue
			}
			if similarAtLeast(blocks[a], blocks[b], opts.SimilarityThreshold) {
				uf.union(a, b)
			}
		}
	}

	// Distinct pages per group root, in page order.
	groupPages := make(map[int][]string)
	seen := make(map[int]map[string]bool)
	for i, ids := range pageBlocks {
		url := pages[i].URL
		for _, id := range ids {
			root := uf.find(id)
			if seen[root] == nil {
				seen[root] = make(map[string]bool)
			}
			if !seen[root][url] {
				seen[root][url] = true
				groupPages[root] = append(groupPages[root], url)
			}
		}
	}

	common := make(map[int]bool)
	representative := make(map[int]int)
	members := make(map[int][]string)
	var roots []int
	for id := range blocks {
		root := uf.find(id)
		if _, ok := representative[root]; !ok {
			representative[root] = id
			roots = append(roots, root)
		} else if lengths[id] > lengths[representative[root]] {
			representative[root] = id
		}
		members[root] = append(members[root], blocks[id])
	}

	res := &Result{}
	for _, root := range roots {
		if lengths[root] < opts.MinBlockLength {
			// Short blocks are singletons by construction.
			continue
		}
		g := Group{
			Representative: blocks[representative[root]],
			Members:        members[root],
			Pages:          groupPages[root],
		}
		res.Groups = append(res.Groups, g)
		if g.Common() {
			common[root] = true
			res.Common = append(res.Common, g.Representative)
		}
	}

	res.Unique = make([]model.PageBlocks, len(pages))
	for i, ids := range pageBlocks {
		kept := make([]string, 0, len(ids))
		for _, id := range ids {
			if !common[uf.find(id)] {
				kept = append(kept, blocks[id])
			}
		}
		res.Unique[i] = model.PageBlocks{URL: pages[i].URL, Blocks: kept}
	}

	return res
}
