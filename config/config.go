// Package config resolves coinfeed settings from defaults, the config file,
// and COINFEED_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pevans/coinfeed/fetcher"
	"github.com/pevans/coinfeed/logger"
	"github.com/pevans/coinfeed/scraper"
	"github.com/pevans/coinfeed/store"
	"github.com/robfig/cron/v3"
)

// Environment variables that override the config file.
const (
	EnvStoreType  = "COINFEED_STORE_TYPE"
	EnvStoreDSN   = "COINFEED_STORE_DSN"
	EnvLogLevel   = "COINFEED_LOG_LEVEL"
	EnvServerAddr = "COINFEED_SERVER_ADDR"
	EnvLimit      = "COINFEED_LIMIT"
	EnvSchedule   = "COINFEED_SCHEDULE"
)

// Config is the full coinfeed configuration.
type Config struct {
	Log      logger.Config       `yaml:"log"`
	Store    store.Config        `yaml:"store"`
	Scrape   ScrapeConfig        `yaml:"scrape"`
	Site     scraper.SiteProfile `yaml:"site"`
	Server   ServerConfig        `yaml:"server"`
	Schedule ScheduleConfig      `yaml:"schedule"`
	Cleanup  CleanupConfig       `yaml:"cleanup"`
}

// ScrapeConfig controls a scrape run and its HTTP behaviour.
type ScrapeConfig struct {
	Limit            int           `yaml:"limit"`
	MaxPages         int           `yaml:"max_pages"`
	PageSize         int           `yaml:"page_size"`
	MinArticleLength int           `yaml:"min_article_length"`
	ArticleDelay     time.Duration `yaml:"article_delay"`
	PageDelay        time.Duration `yaml:"page_delay"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	ListingAttempts  int           `yaml:"listing_attempts"`
	UserAgent        string        `yaml:"user_agent"`
}

// ServerConfig configures the consumer API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ScheduleConfig configures scheduled scrapes under serve. An empty Cron
// disables scheduling.
type ScheduleConfig struct {
	Cron       string `yaml:"cron"`
	DateFilter string `yaml:"date_filter"`
}

// CleanupConfig configures retention cleanup.
type CleanupConfig struct {
	RetentionDays int `yaml:"retention_days"`
}

// Default returns the built-in configuration.
func Default() *Config {
	f := fetcher.DefaultConfig()
	return &Config{
		Log:   logger.Config{Level: "info"},
		Store: store.Config{Type: store.EngineSQLite, DSN: "crypto_news.db"},
		Scrape: ScrapeConfig{
			Limit:            10,
			MaxPages:         10,
			PageSize:         16,
			MinArticleLength: 100,
			ArticleDelay:     f.ArticleDelay,
			PageDelay:        f.PageDelay,
			RequestTimeout:   f.Timeout,
			ListingAttempts:  f.ListingAttempts,
			UserAgent:        f.UserAgent,
		},
		Site:     *scraper.DefaultProfile(),
		Server:   ServerConfig{Addr: ":8080"},
		Schedule: ScheduleConfig{DateFilter: "all"},
		Cleanup:  CleanupConfig{RetentionDays: 7},
	}
}

// ApplyEnv overrides fields from COINFEED_* environment variables.
func (c *Config) ApplyEnv() error {
	if val := os.Getenv(EnvStoreType); val != "" {
		c.Store.Type = val
	}
	if val := os.Getenv(EnvStoreDSN); val != "" {
		c.Store.DSN = val
	}
	if val := os.Getenv(EnvLogLevel); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv(EnvServerAddr); val != "" {
		c.Server.Addr = val
	}
	if val := os.Getenv(EnvSchedule); val != "" {
		c.Schedule.Cron = val
	}
	if val := os.Getenv(EnvLimit); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvLimit, err)
		}
		c.Scrape.Limit = n
	}
	return nil
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	switch c.Store.Type {
	case store.EngineSQLite, store.EnginePostgres, store.EngineMemory:
	default:
		return fmt.Errorf("%w: %q", store.ErrUnknownEngine, c.Store.Type)
	}
	if c.Store.Type != store.EngineMemory && c.Store.DSN == "" {
		return errors.New("store dsn is required")
	}

	if c.Scrape.Limit < 1 {
		return errors.New("scrape limit must be positive")
	}
	if c.Scrape.MaxPages < 1 || c.Scrape.PageSize < 1 {
		return errors.New("scrape max_pages and page_size must be positive")
	}
	if c.Scrape.ListingAttempts < 1 {
		return errors.New("scrape listing_attempts must be positive")
	}
	if c.Scrape.ArticleDelay < 0 || c.Scrape.PageDelay < 0 {
		return errors.New("scrape delays must not be negative")
	}
	if c.Cleanup.RetentionDays < 0 {
		return errors.New("cleanup retention_days must not be negative")
	}

	if c.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", c.Schedule.Cron, err)
		}
	}

	if err := c.Site.Validate(); err != nil {
		return fmt.Errorf("invalid site: %w", err)
	}

	return nil
}

// Fetcher returns the HTTP client settings.
func (c *Config) Fetcher() fetcher.Config {
	f := fetcher.DefaultConfig()
	f.Timeout = c.Scrape.RequestTimeout
	f.ArticleDelay = c.Scrape.ArticleDelay
	f.PageDelay = c.Scrape.PageDelay
	f.ListingAttempts = c.Scrape.ListingAttempts
	if c.Scrape.UserAgent != "" {
		f.UserAgent = c.Scrape.UserAgent
	}
	return f
}
