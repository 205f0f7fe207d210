package dedup

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Similarity returns the longest-matching-blocks ratio of a and b in [0,1],
// computed over their characters. Identical strings score 1.0 and the
// argument order does not matter.
func Similarity(a, b string) float64 {
	return newMatcher(a, b).Ratio()
}

// similarAtLeast reports whether Similarity(a, b) >= threshold. The cheap
// upper bounds are checked first so most dissimilar pairs never reach the
// full ratio.
func similarAtLeast(a, b string, threshold float64) bool {
	if a == b {
		return true
	}
	m := newMatcher(a, b)
	if m.RealQuickRatio() < threshold {
		return false
	}
	if m.QuickRatio() < threshold {
		return false
	}
	return m.Ratio() >= threshold
}

func newMatcher(a, b string) *difflib.SequenceMatcher {
	// The ratio depends slightly on operand order once junk heuristics kick
	// in for long inputs, so order the pair before matching.
	if b < a {
		a, b = b, a
	}
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
}
