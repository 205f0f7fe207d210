package document

import (
	"strings"
	"testing"

	"github.com/masahif/docfold/internal/dedup"
	"github.com/masahif/docfold/internal/model"
)

func anchorsOf(pairs ...string) *model.AnchorMap {
	m := model.NewAnchorMap()
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i], pairs[i+1])
	}
	return m
}

func TestAssemble(t *testing.T) {
	unique := []model.PageBlocks{
		{URL: "https://example.com", Blocks: []string{"# Welcome", "Intro text."}},
		{URL: "https://example.com/guide", Blocks: []string{"Guide text."}},
	}
	common := []string{"Shared header block", "Shared footer block"}
	anchors := anchorsOf("https://example.com", "home", "https://example.com/guide", "guide")

	got := Assemble(unique, common, anchors)
	want := "# [Page] <a id=\"home\">https://example.com</a>\n\n" +
		"# Welcome\n\nIntro text.\n\n" +
		"# [Page] <a id=\"guide\">https://example.com/guide</a>\n\n" +
		"Guide text.\n\n" +
		"# Common Sections\n\n" +
		"Shared header block\n\nShared footer block\n"

	if got != want {
		t.Errorf("Assemble() =\n%q\nwant\n%q", got, want)
	}
}

func TestAssembleWithoutCommonSections(t *testing.T) {
	unique := []model.PageBlocks{{URL: "https://example.com/a", Blocks: []string{"Only block"}}}
	got := Assemble(unique, nil, anchorsOf("https://example.com/a", "a"))

	want := "# [Page] <a id=\"a\">https://example.com/a</a>\n\nOnly block\n\n"
	if got != want {
		t.Errorf("Assemble() = %q, want %q", got, want)
	}
	if strings.Contains(got, CommonSectionsHeading) {
		t.Error("appendix should be omitted when there are no common blocks")
	}
}

func TestAssemblePageWithoutAnchor(t *testing.T) {
	unique := []model.PageBlocks{{URL: "https://example.com/x", Blocks: []string{"Loose text"}}}
	got := Assemble(unique, nil, model.NewAnchorMap())

	if got != "Loose text\n\n" {
		t.Errorf("Assemble() = %q", got)
	}
}

func TestAssembleEmpty(t *testing.T) {
	if got := Assemble(nil, nil, nil); got != "" {
		t.Errorf("Assemble() of nothing = %q, want empty", got)
	}
}

func TestAssembleSharedHeaderOnce(t *testing.T) {
	header := "Docs Home | Guides | API Reference | Blog"
	pages := []model.PageText{
		{URL: "https://example.com", Text: header + "\n\nThe first page talks about installation steps."},
		{URL: "https://example.com/usage", Text: header + "\n\nThe second page covers configuration options."},
	}
	anchors := anchorsOf("https://example.com", "home", "https://example.com/usage", "usage")

	res := dedup.Deduplicate(pages, dedup.DefaultOptions())
	out := Assemble(res.Unique, res.Common, anchors)

	if n := strings.Count(out, header); n != 1 {
		t.Fatalf("header appears %d times, want 1:\n%s", n, out)
	}

	appendix := strings.Index(out, CommonSectionsHeading)
	if appendix < 0 || strings.Index(out, header) < appendix {
		t.Errorf("header should only appear in the appendix:\n%s", out)
	}

	for _, s := range []string{"installation steps", "configuration options"} {
		i := strings.Index(out, s)
		if i < 0 || i > appendix {
			t.Errorf("unique paragraph %q should stay in its page section", s)
		}
	}

	if strings.Index(out, `<a id="home">`) > strings.Index(out, `<a id="usage">`) {
		t.Error("pages should keep crawl order")
	}
}
