// Package cmd provides the command-line interface for docfold.
// It handles command parsing, configuration loading, and pipeline execution.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/masahif/docfold/internal/config"
)

const (
	appName   = "docfold"
	envPrefix = "DOCFOLD"
)

var (
	cfgFile   string
	version   string
	buildTime string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "docfold <base-url> [starting-point]",
	Short: "Crawl a documentation site into a single Markdown document",
	Long: `docfold crawls a documentation site breadth-first, converts every page
to Markdown and writes one document with a section per page.

Links between crawled pages are rewritten to in-document anchors, and blocks
repeated across pages (navigation, banners, footers) are moved into a single
"Common Sections" appendix.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runDocfold,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// SIGINT and SIGTERM stop the crawl; what was collected so far is still written.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// SetVersionInfo sets version information for the CLI
func SetVersionInfo(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./docfold.yml, then "+filepath.Join(configDir(), "docfold.yml")+")")

	rootCmd.Flags().Bool("show-config", false, "Display current configuration in YAML format and exit")

	// Output
	rootCmd.Flags().StringP("output", "o", "documentation.md", "Output filename")
	rootCmd.Flags().String("report", "", "Write a Markdown crawl report to this path")
	rootCmd.Flags().String("database", "", "Record the crawl in a SQLite journal at this path")

	// Requests
	rootCmd.Flags().Bool("no-robots", false, "Ignore robots.txt rules")
	rootCmd.Flags().String("user-agent", "", "Custom User-Agent string (also the robots.txt agent)")
	rootCmd.Flags().String("headers-file", "", "Path to a JSON file containing request headers")
	rootCmd.Flags().String("headers-json", "", "Raw JSON object of request headers")
	rootCmd.Flags().DurationP("timeout", "t", 30*time.Second, "Per request timeout")
	rootCmd.Flags().Bool("render", false, "Render pages in a headless browser before extraction")
	rootCmd.Flags().Duration("render-wait", time.Second, "How long the DOM must stay unchanged when rendering")
	rootCmd.MarkFlagsMutuallyExclusive("headers-file", "headers-json")

	// Politeness
	rootCmd.Flags().Float64("delay", 1.0, "Delay between requests in seconds")
	rootCmd.Flags().Float64("delay-range", 0.5, "Range for random delay variation in seconds")

	// Extraction and filtering; repeat a flag to pass several values
	rootCmd.Flags().StringArray("remove-selectors", []string{}, "CSS selectors of elements to remove from pages")
	rootCmd.Flags().StringArray("allowed-paths", []string{}, "Only crawl URLs under these path prefixes")
	rootCmd.Flags().StringArray("ignore-paths", []string{}, "Skip URLs containing any of these strings")

	// Deduplication
	rootCmd.Flags().Float64("similarity-threshold", 0.6, "Similarity threshold for merging blocks (0-1)")
	rootCmd.Flags().Int("min-block-length", 20, "Blocks shorter than this many characters are never merged")

	// Logging
	rootCmd.Flags().String("log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.Flags().String("log-format", "json", "Log format: json or text")
	rootCmd.Flags().String("log-file", "", "Also write logs to this file, rotated by size")

	bindFlags := []struct {
		viperKey string
		flagName string
	}{
		{"output", "output"},
		{"report", "report"},
		{"database_path", "database"},
		{"ignore_robots", "no-robots"},
		{"user_agent", "user-agent"},
		{"headers_file", "headers-file"},
		{"headers_json", "headers-json"},
		{"request_timeout", "timeout"},
		{"render", "render"},
		{"render_wait", "render-wait"},
		{"delay", "delay"},
		{"delay_range", "delay-range"},
		{"remove_selectors", "remove-selectors"},
		{"allowed_paths", "allowed-paths"},
		{"ignore_paths", "ignore-paths"},
		{"similarity_threshold", "similarity-threshold"},
		{"min_block_length", "min-block-length"},
		{"log_level", "log-level"},
		{"log_format", "log-format"},
		{"log_file", "log-file"},
	}

	for _, bind := range bindFlags {
		if err := viper.BindPFlag(bind.viperKey, rootCmd.Flags().Lookup(bind.flagName)); err != nil {
			// Log the error but continue - non-critical for operation
			fmt.Fprintf(os.Stderr, "Warning: failed to bind flag %s: %v\n", bind.flagName, err)
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(configDir())
		viper.SetConfigType("yaml")
		viper.SetConfigName(appName)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
	// Not bound to a flag, so AutomaticEnv alone would not see them
	_ = viper.BindEnv("base_url")
	_ = viper.BindEnv("start_url")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// configDir is the per-user configuration directory
func configDir() string {
	return filepath.Join(xdg.ConfigHome, appName)
}

func generateUserAgent() string {
	if version != "" && version != "dev" {
		return fmt.Sprintf("docfold/%s", version)
	}
	return "docfold/dev"
}

// loadConfig merges viper settings with the positional arguments. The
// headers file or inline JSON is read here so --show-config shows the
// headers that would be sent.
func loadConfig(args []string) (*config.CrawlConfig, error) {
	cfg := config.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	startingPoint := cfg.StartURL
	if len(args) > 0 {
		cfg.BaseURL = args[0]
		startingPoint = ""
	}
	if len(args) > 1 {
		startingPoint = args[1]
	}
	if err := cfg.ResolveStartURL(startingPoint); err != nil {
		return nil, err
	}

	if err := cfg.LoadHeaders(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func showCurrentConfig(w io.Writer, cfg *config.CrawlConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Configuration validation failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "Displaying configuration anyway...\n\n")
	}

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}

	fmt.Fprintf(w, "# Current docfold configuration\n")
	fmt.Fprintf(w, "# Generated at: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "# Configuration file search paths: ./docfold.yml, %s\n", filepath.Join(configDir(), "docfold.yml"))
	fmt.Fprintf(w, "# Environment variables prefix: %s_\n\n", envPrefix)

	fmt.Fprint(w, string(yamlData))

	fmt.Fprintf(w, "\n# Configuration source priority:\n")
	fmt.Fprintf(w, "# 1. Command-line arguments (highest priority)\n")
	fmt.Fprintf(w, "# 2. Environment variables (%s_ prefix)\n", envPrefix)
	fmt.Fprintf(w, "# 3. Configuration file (docfold.yml)\n")
	fmt.Fprintf(w, "# 4. Default values (lowest priority)\n")

	return nil
}

func runDocfold(cmd *cobra.Command, args []string) error {
	showConfig, _ := cmd.Flags().GetBool("show-config")

	cfg, err := loadConfig(args)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if showConfig {
		return showCurrentConfig(cmd.OutOrStdout(), cfg)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := setupLogging(cfg); err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Starting docfold with configuration:\n")
	fmt.Fprintf(cmd.OutOrStdout(), "  Base URL: %s\n", cfg.BaseURL)
	fmt.Fprintf(cmd.OutOrStdout(), "  Start URL: %s\n", cfg.StartURL)
	fmt.Fprintf(cmd.OutOrStdout(), "  Output: %s\n", cfg.Output)
	fmt.Fprintf(cmd.OutOrStdout(), "  Delay: %.2fs (+/- %.2fs)\n", cfg.Delay, cfg.DelayRange)
	fmt.Fprintf(cmd.OutOrStdout(), "  Ignore Robots: %t\n", cfg.IgnoreRobots)
	fmt.Fprintf(cmd.OutOrStdout(), "  Render: %t\n", cfg.Render)

	p, err := newPipeline(cfg, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize crawler: %w", err)
	}
	defer func() { _ = p.Close() }()

	summary, err := p.Run(cmd.Context())
	if summary != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d page(s) and %d common section(s) to %s\n",
			summary.Pages, summary.CommonSections, cfg.Output)
	}
	return err
}
