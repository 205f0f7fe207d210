package document

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nao1215/markdown"

	"github.com/masahif/docfold/internal/crawler"
	"github.com/masahif/docfold/internal/dedup"
)

// previewLength caps block previews in the report
const previewLength = 60

// ReportInput is what the crawl report is built from
type ReportInput struct {
	BaseURL     string
	StartURL    string
	Output      string
	RunID       string
	GeneratedAt time.Time
	Crawl       *crawler.Result
	Dedup       *dedup.Result
}

// BuildReport renders a Markdown summary of a crawl: totals, one row per
// crawled node, skipped and failed URLs and the common block groups.
func BuildReport(in ReportInput) (string, error) {
	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)

	writeSummary(md, in)
	writePages(md, in)
	writeProblems(md, in.Crawl)
	writeGroups(md, in.Dedup)

	if err := md.Build(); err != nil {
		return "", fmt.Errorf("failed to build report: %w", err)
	}
	return buf.String(), nil
}

func writeSummary(md *markdown.Markdown, in ReportInput) {
	stats := in.Crawl.Stats
	common := 0
	if in.Dedup != nil {
		common = len(in.Dedup.Common)
	}

	md.H1("Crawl Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Base URL", in.BaseURL},
			{"Start URL", in.StartURL},
			{"Output", "`" + in.Output + "`"},
			{"Run ID", in.RunID},
			{"Generated", in.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Pages discovered", strconv.Itoa(stats.PagesDiscovered)},
			{"Pages fetched", strconv.Itoa(stats.PagesFetched)},
			{"Pages with text", strconv.Itoa(len(in.Crawl.Pages))},
			{"Pages skipped", strconv.Itoa(stats.PagesSkipped)},
			{"Fetch errors", strconv.Itoa(stats.FetchErrors)},
			{"Conversion errors", strconv.Itoa(stats.ConvertErrors)},
			{"Common sections", strconv.Itoa(common)},
			{"Duration", stats.Duration.Round(time.Millisecond).String()},
		},
	})
	md.PlainText("")
}

func writePages(md *markdown.Markdown, in ReportInput) {
	md.H2("Pages")
	md.PlainText("")

	if len(in.Crawl.Records) == 0 {
		md.PlainText("No pages were crawled.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(in.Crawl.Records))
	for _, rec := range in.Crawl.Records {
		kept := "-"
		if rec.HasText && in.Dedup != nil {
			kept = strconv.Itoa(len(in.Dedup.UniqueBlocks(rec.CanonicalURL)))
		}
		anchor := "-"
		if rec.AnchorID != "" {
			anchor = "`#" + rec.AnchorID + "`"
		}
		rows = append(rows, []string{anchor, cell(rec.CanonicalURL), string(rec.Status), kept})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Anchor", "URL", "Status", "Blocks kept"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writeProblems(md *markdown.Markdown, res *crawler.Result) {
	var skipped, failed []string
	for _, rec := range res.Records {
		switch rec.Status {
		case crawler.StatusSkipped:
			skipped = append(skipped, fmt.Sprintf("%s (%s)", rec.CanonicalURL, rec.SkipReason))
		case crawler.StatusFetchError, crawler.StatusConvertError:
			failed = append(failed, fmt.Sprintf("%s: %s", rec.CanonicalURL, rec.Error))
		}
	}

	if len(skipped) > 0 {
		md.H2("Skipped")
		md.PlainText("")
		md.BulletList(skipped...)
		md.PlainText("")
	}

	if len(failed) > 0 {
		md.H2("Errors")
		md.PlainText("")
		md.Warningf("%d page(s) could not be included in the document.", len(failed))
		md.PlainText("")
		md.BulletList(failed...)
		md.PlainText("")
	}
}

func writeGroups(md *markdown.Markdown, res *dedup.Result) {
	md.H2("Common Sections")
	md.PlainText("")

	if res == nil || len(res.Common) == 0 {
		md.PlainText("No content was shared between pages.")
		md.PlainText("")
		return
	}

	var rows [][]string
	n := 0
	for _, g := range res.Groups {
		if !g.Common() {
			continue
		}
		n++
		rows = append(rows, []string{
			strconv.Itoa(n),
			strconv.Itoa(len(g.Pages)),
			strconv.Itoa(len(g.Members)),
			cell(preview(g.Representative)),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Group", "Pages", "Variants", "Preview"},
		Rows:   rows,
	})
	md.PlainText("")
}

// preview shortens a block to one line
func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= previewLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:previewLength]) + "..."
}

// cell escapes table separators
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
