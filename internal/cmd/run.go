package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/masahif/docfold/internal/config"
	"github.com/masahif/docfold/internal/convert"
	"github.com/masahif/docfold/internal/crawler"
	"github.com/masahif/docfold/internal/dedup"
	"github.com/masahif/docfold/internal/document"
	"github.com/masahif/docfold/internal/logging"
	"github.com/masahif/docfold/internal/storage"
)

// Summary describes what a run wrote
type Summary struct {
	RunID          string
	Pages          int
	CommonSections int
	Stats          crawler.CrawlStats
}

// pipeline wires the crawl, the deduplication and the output of one run
type pipeline struct {
	config     *config.CrawlConfig
	httpClient *crawler.HTTPClient
	fetcher    crawler.Fetcher
	browser    *crawler.BrowserFetcher
	journal    *storage.SQLiteJournal
	sink       document.Sink
	runID      string
}

func setupLogging(cfg *config.CrawlConfig) error {
	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.ParseLevel(cfg.LogLevel)
	logCfg.Format = cfg.LogFormat
	logCfg.FilePath = cfg.LogFile
	return logging.SetDefault(*logCfg)
}

// newPipeline creates the fetcher, the optional journal and the sink for
// cfg. A nil fs writes to the OS filesystem.
func newPipeline(cfg *config.CrawlConfig, fs afero.Fs) (*pipeline, error) {
	p := &pipeline{
		config:     cfg,
		httpClient: crawler.NewHTTPClient(generateUserAgent(), cfg.RequestTimeout),
		sink:       document.NewFileSink(fs),
		runID:      uuid.NewString(),
	}
	p.fetcher = p.httpClient

	if cfg.Render {
		browser, err := crawler.NewBrowserFetcher(cfg.RenderWait, cfg.RequestTimeout)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.browser = browser
		p.fetcher = browser
	}

	if cfg.DatabasePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0750); err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		journal, err := storage.NewSQLiteJournal(cfg.DatabasePath)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		p.journal = journal
		p.runID = journal.RunID()
	}

	return p, nil
}

// Run crawls the site and writes the document. When the context is
// cancelled mid-crawl the pages collected so far are still written and the
// context error is returned with the summary.
func (p *pipeline) Run(ctx context.Context) (*Summary, error) {
	cfg := p.config
	slog.Info("Starting docfold",
		"run_id", p.runID,
		"base_url", cfg.BaseURL,
		"start_url", cfg.StartURL,
		"output", cfg.Output,
		"render", cfg.Render,
		"ignore_robots", cfg.IgnoreRobots,
		logging.Headers("headers", cfg.RequestHeaders()))

	frontier := crawler.NewFrontier(cfg, p.fetcher, convert.NewMarkdownConverter())
	if !cfg.IgnoreRobots {
		frontier.SetPolicyLoader(crawler.NewRobotsLoader(p.httpClient, cfg.RequestHeaders()))
	}
	if p.journal != nil {
		p.writeMeta()
		frontier.SetJournal(p.journal)
	}

	res, crawlErr := frontier.Crawl(ctx)
	if res == nil {
		return nil, fmt.Errorf("crawl failed: %w", crawlErr)
	}
	if crawlErr != nil {
		slog.Warn("Crawl interrupted, writing partial document", "error", crawlErr, "pages", len(res.Pages))
	}

	folded := dedup.Deduplicate(res.Pages, dedup.Options{
		SimilarityThreshold: cfg.SimilarityThreshold,
		MinBlockLength:      cfg.MinBlockLength,
	})
	slog.Info("Deduplicated content", "pages", len(folded.Unique), "groups", len(folded.Groups), "common_sections", len(folded.Common))

	text := document.Assemble(folded.Unique, folded.Common, res.Anchors)
	if err := p.sink.Write(cfg.Output, text); err != nil {
		return nil, err
	}
	slog.Info("Documentation written", "output", cfg.Output, "bytes", len(text))

	if cfg.ReportPath != "" {
		if err := p.writeReport(res, folded); err != nil {
			return nil, err
		}
	}

	summary := &Summary{
		RunID:          p.runID,
		Pages:          len(folded.Unique),
		CommonSections: len(folded.Common),
		Stats:          res.Stats,
	}
	if p.journal != nil {
		p.setMeta("finished_at", time.Now().UTC().Format(time.RFC3339))
	}
	return summary, crawlErr
}

func (p *pipeline) writeReport(res *crawler.Result, folded *dedup.Result) error {
	report, err := document.BuildReport(document.ReportInput{
		BaseURL:     p.config.BaseURL,
		StartURL:    p.config.StartURL,
		Output:      p.config.Output,
		RunID:       p.runID,
		GeneratedAt: time.Now().UTC(),
		Crawl:       res,
		Dedup:       folded,
	})
	if err != nil {
		return err
	}
	if err := p.sink.Write(p.config.ReportPath, report); err != nil {
		return err
	}
	slog.Info("Crawl report written", "report", p.config.ReportPath)
	return nil
}

func (p *pipeline) writeMeta() {
	p.setMeta("base_url", p.config.BaseURL)
	p.setMeta("start_url", p.config.StartURL)
	p.setMeta("output", p.config.Output)
	p.setMeta("version", generateUserAgent())
	p.setMeta("started_at", time.Now().UTC().Format(time.RFC3339))
}

func (p *pipeline) setMeta(key, value string) {
	if err := p.journal.SetMeta(key, value); err != nil {
		slog.Warn("Failed to journal metadata", "key", key, "error", err)
	}
}

// Close releases the browser, the HTTP connections and the journal.
func (p *pipeline) Close() error {
	var errs []error
	if p.browser != nil {
		errs = append(errs, p.browser.Close())
	}
	if p.httpClient != nil {
		p.httpClient.Close()
	}
	if p.journal != nil {
		errs = append(errs, p.journal.Close())
	}
	return errors.Join(errs...)
}
