// Package config provides configuration management for the crawler.
// It defines configuration structures and default values for crawling,
// deduplication and output parameters.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
)

// CrawlConfig holds crawler configuration
type CrawlConfig struct {
	// Site
	BaseURL  string `mapstructure:"base_url" yaml:"base_url"`   // Origin of the documentation site
	StartURL string `mapstructure:"start_url" yaml:"start_url"` // First page to crawl (defaults to BaseURL)

	// Output
	Output       string `mapstructure:"output" yaml:"output"`               // Destination of the assembled document
	ReportPath   string `mapstructure:"report" yaml:"report"`               // Optional Markdown crawl report
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"` // Optional SQLite crawl journal

	// Requests
	IgnoreRobots   bool              `mapstructure:"ignore_robots" yaml:"ignore_robots"`     // Skip robots.txt handling
	UserAgent      string            `mapstructure:"user_agent" yaml:"user_agent"`           // User-Agent header and robots agent id
	Headers        map[string]string `mapstructure:"headers" yaml:"headers"`                 // Extra request headers
	HeadersFile    string            `mapstructure:"headers_file" yaml:"headers_file"`       // JSON file with request headers
	HeadersJSON    string            `mapstructure:"headers_json" yaml:"headers_json"`       // Raw JSON object with request headers
	RequestTimeout time.Duration     `mapstructure:"request_timeout" yaml:"request_timeout"` // Per request timeout
	Render         bool              `mapstructure:"render" yaml:"render"`                   // Fetch through a headless browser
	RenderWait     time.Duration     `mapstructure:"render_wait" yaml:"render_wait"`         // DOM stability window when rendering

	// Politeness, in seconds
	Delay      float64 `mapstructure:"delay" yaml:"delay"`
	DelayRange float64 `mapstructure:"delay_range" yaml:"delay_range"`

	// Extraction and filtering
	RemoveSelectors []string `mapstructure:"remove_selectors" yaml:"remove_selectors"` // Boilerplate CSS selectors to strip
	AllowedPaths    []string `mapstructure:"allowed_paths" yaml:"allowed_paths"`       // Path prefixes to stay within
	IgnorePaths     []string `mapstructure:"ignore_paths" yaml:"ignore_paths"`         // URL substrings to skip

	// Deduplication
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" yaml:"similarity_threshold"`
	MinBlockLength      int     `mapstructure:"min_block_length" yaml:"min_block_length"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	LogFile   string `mapstructure:"log_file" yaml:"log_file"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *CrawlConfig {
	return &CrawlConfig{
		Output:              "documentation.md",
		Headers:             map[string]string{},
		RequestTimeout:      30 * time.Second,
		RenderWait:          1 * time.Second,
		Delay:               1.0,
		DelayRange:          0.5,
		SimilarityThreshold: 0.6,
		MinBlockLength:      20,
		LogLevel:            "info",
		LogFormat:           "json",
	}
}

// Validate checks if the configuration is valid and fills in derived
// defaults such as the start URL.
func (c *CrawlConfig) Validate() error {
	if c.BaseURL == "" {
		return ErrNoBaseURL
	}
	if !isAbsoluteURL(c.BaseURL) {
		return fmt.Errorf("%w: %s", ErrInvalidBaseURL, c.BaseURL)
	}

	if c.StartURL == "" {
		c.StartURL = c.BaseURL
	}
	if !isAbsoluteURL(c.StartURL) {
		return fmt.Errorf("%w: %s", ErrInvalidStartURL, c.StartURL)
	}

	if c.Output == "" {
		return ErrEmptyOutput
	}

	if c.Delay < 0 || c.DelayRange < 0 {
		return ErrInvalidDelay
	}

	if c.RequestTimeout <= 0 || c.RenderWait < 0 {
		return ErrInvalidTimeout
	}

	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return ErrInvalidThreshold
	}

	if c.MinBlockLength < 0 {
		return ErrInvalidMinBlockLength
	}

	for _, selector := range c.RemoveSelectors {
		if _, err := cascadia.Compile(selector); err != nil {
			return fmt.Errorf("%w %q: %v", ErrInvalidSelector, selector, err)
		}
	}

	if c.HeadersFile != "" && c.HeadersJSON != "" {
		return ErrConflictingHeaders
	}

	return nil
}

// ResolveStartURL joins startingPoint onto the base URL. An empty starting
// point yields the base URL itself.
func (c *CrawlConfig) ResolveStartURL(startingPoint string) error {
	if startingPoint == "" {
		c.StartURL = c.BaseURL
		return nil
	}

	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	ref, err := url.Parse(startingPoint)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidStartURL, err)
	}

	c.StartURL = base.ResolveReference(ref).String()
	return nil
}

// LoadHeaders merges headers from HeadersFile or HeadersJSON into Headers.
// Values loaded here win over headers from the config file.
func (c *CrawlConfig) LoadHeaders() error {
	if c.HeadersFile != "" && c.HeadersJSON != "" {
		return ErrConflictingHeaders
	}

	var raw []byte
	switch {
	case c.HeadersFile != "":
		data, err := os.ReadFile(c.HeadersFile)
		if err != nil {
			return fmt.Errorf("failed to read headers file: %w", err)
		}
		raw = data
	case c.HeadersJSON != "":
		raw = []byte(c.HeadersJSON)
	default:
		return nil
	}

	loaded := map[string]string{}
	if err := json.Unmarshal(raw, &loaded); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHeaders, err)
	}

	if c.Headers == nil {
		c.Headers = make(map[string]string, len(loaded))
	}
	for k, v := range loaded {
		c.Headers[k] = v
	}
	return nil
}

// RequestHeaders returns the headers sent with every request. The user
// agent is merged in unless a User-Agent header is already present.
func (c *CrawlConfig) RequestHeaders() map[string]string {
	headers := make(map[string]string, len(c.Headers)+1)
	hasAgent := false
	for k, v := range c.Headers {
		headers[k] = v
		if strings.EqualFold(k, "User-Agent") {
			hasAgent = true
		}
	}
	if c.UserAgent != "" && !hasAgent {
		headers["User-Agent"] = c.UserAgent
	}
	return headers
}

// AgentID is the identity used for site policy checks.
func (c *CrawlConfig) AgentID() string {
	if c.UserAgent == "" {
		return "*"
	}
	return c.UserAgent
}

// DelayDuration returns the base politeness delay.
func (c *CrawlConfig) DelayDuration() time.Duration {
	return time.Duration(c.Delay * float64(time.Second))
}

// DelayRangeDuration returns the politeness jitter.
func (c *CrawlConfig) DelayRangeDuration() time.Duration {
	return time.Duration(c.DelayRange * float64(time.Second))
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}
