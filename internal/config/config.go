package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config stores all configuration for a run.
type Config struct {
	ManifestPath          string               `mapstructure:"manifest_path"`
	DownloadRoot          string               `mapstructure:"download_root"`
	LogPath               string               `mapstructure:"log_path"`
	IndexPath             string               `mapstructure:"index_path"`
	SuccessPath           string               `mapstructure:"success_path"`
	FailuresPath          string               `mapstructure:"failures_path"`
	RequestTimeoutSeconds int                  `mapstructure:"request_timeout_seconds"`
	UserAgent             string               `mapstructure:"user_agent"`
	MetricsListen         string               `mapstructure:"metrics_listen"`
	DryRun                bool                 `mapstructure:"dry_run"`
	SiteOverrides         map[string]SiteRules `mapstructure:"site_overrides"`
}

// SiteRules is the per-domain override block. Adapter selects the variant:
// "rules" builds the rule-driven adapter, anything else the heuristic one.
type SiteRules struct {
	Adapter          string          `mapstructure:"adapter"`
	SearchURL        string          `mapstructure:"search_url"`
	QueryEncoding    string          `mapstructure:"query_encoding"` // single (default), double, none
	FetchMode        string          `mapstructure:"fetch_mode"`     // http or browser
	Selectors        ListSelectors   `mapstructure:"selectors"`
	MatchKeyword     *bool           `mapstructure:"match_keyword"`
	MatchInTitleOnly bool            `mapstructure:"match_in_title_only"`
	DateFromItem     bool            `mapstructure:"date_from_item"`
	LinkHrefContains string          `mapstructure:"link_href_contains"`
	DetailDate       DetailDateRules `mapstructure:"detail_date"`
	DetailPage       DetailPageRules `mapstructure:"detail_page"`
}

// ListSelectors locates list items and their parts on a search results page.
type ListSelectors struct {
	Item    string `mapstructure:"item"`
	Title   string `mapstructure:"title"`
	Date    string `mapstructure:"date"`
	WaitFor string `mapstructure:"wait_for"`
}

// DetailDateRules configures the secondary publish-date lookup performed on a
// result's detail page when the list gave no date.
type DetailDateRules struct {
	Enabled   bool     `mapstructure:"enabled"`
	Selectors []string `mapstructure:"selectors"`
	Regexes   []string `mapstructure:"regexes"`
	FetchMode string   `mapstructure:"fetch_mode"`
}

// DetailPageRules configures detail-page fetching and attachment extraction.
type DetailPageRules struct {
	Enabled                *bool               `mapstructure:"enabled"`
	FetchMode              string              `mapstructure:"fetch_mode"`
	TitleSelectors         []string            `mapstructure:"title_selectors"`
	AttachmentSelectors    []string            `mapstructure:"attachment_selectors"`
	AttachmentExtensions   []string            `mapstructure:"attachment_extensions"`
	AttachmentTextKeywords []string            `mapstructure:"attachment_text_keywords"`
	ContentExtract         ContentExtractRules `mapstructure:"content_extract"`
}

// ContentExtractRules reduces a detail page to title + date + body fragments.
type ContentExtractRules struct {
	Enabled                   bool     `mapstructure:"enabled"`
	TitleSelectors            []string `mapstructure:"title_selectors"`
	DateSelectors             []string `mapstructure:"date_selectors"`
	BodySelectors             []string `mapstructure:"body_selectors"`
	RemoveSelectors           []string `mapstructure:"remove_selectors"`
	FallbackToOriginalOnEmpty *bool    `mapstructure:"fallback_to_original_on_empty"`
}

// IsEnabled reports whether detail-page fetching is on. Defaults to true.
func (r DetailPageRules) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// ShouldMatchKeyword reports whether list items must match the search
// keyword. Defaults to true.
func (r SiteRules) ShouldMatchKeyword() bool {
	return r.MatchKeyword == nil || *r.MatchKeyword
}

// FallbackToOriginal reports whether an empty trim result falls back to the
// full original HTML. Defaults to true.
func (r ContentExtractRules) FallbackToOriginal() bool {
	return r.FallbackToOriginalOnEmpty == nil || *r.FallbackToOriginalOnEmpty
}

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Load reads the YAML configuration file at path. Relative paths inside the
// file are resolved against the file's own directory.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("request_timeout_seconds", 20)
	v.SetDefault("user_agent", defaultUserAgent)
	v.SetDefault("download_root", "downloads")
	v.SetDefault("log_path", "logs/sitewatch.log")
	v.SetDefault("index_path", "state/download_index.json")
	v.SetDefault("success_path", "state/successes.csv")
	v.SetDefault("failures_path", "state/failures.csv")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}
	cfg.resolvePaths(filepath.Dir(path))
	return &cfg, nil
}

func (c *Config) resolvePaths(baseDir string) {
	for _, p := range []*string{
		&c.ManifestPath,
		&c.DownloadRoot,
		&c.LogPath,
		&c.IndexPath,
		&c.SuccessPath,
		&c.FailuresPath,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Clean(filepath.Join(baseDir, *p))
		}
	}
}
