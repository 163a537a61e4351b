package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ArticleEnricher/pkg/logger"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "ARTICLE_ENRICHER_CONFIG"
	logLevelEnv     = "ARTICLE_ENRICHER_LOG_LEVEL"
	storeDSNEnv     = "ARTICLE_ENRICHER_STORE_DSN"
	outputDirEnv    = "ARTICLE_ENRICHER_OUTPUT_DIR"
	telegramToken   = "ARTICLE_ENRICHER_TELEGRAM_TOKEN"
	telegramChat    = "ARTICLE_ENRICHER_TELEGRAM_CHAT"
	webhookURLEnv   = "ARTICLE_ENRICHER_WEBHOOK_URL"
	webhookKeyEnv   = "ARTICLE_ENRICHER_WEBHOOK_KEY"
)

// Store drivers understood by Output.Store.
const (
	StoreFilesystem = "fs"
	StoreSQLite     = "sqlite"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Input     InputConfig     `yaml:"input"`
	Output    OutputConfig    `yaml:"output"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Linking   LinkingConfig   `yaml:"linking"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Notify    NotifyConfig    `yaml:"notify"`
}

// LoggingConfig selects the slog level and handler ("text" or "json").
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// InputConfig lists where raw drafts and static data come from.
type InputConfig struct {
	Sources   []SourceConfig `yaml:"sources"`
	Resources string         `yaml:"resources"`
}

// SourceConfig describes a single draft location with its scanner strategy.
type SourceConfig struct {
	Name    string            `yaml:"name"`
	Scanner string            `yaml:"scanner"`
	Dir     string            `yaml:"dir"`
	Pattern string            `yaml:"pattern"`
	URLs    []string          `yaml:"urls"`
	Options map[string]string `yaml:"options"`
}

// OutputConfig decides where enriched documents are written and where the
// corpus snapshot is read from.
type OutputConfig struct {
	Store string `yaml:"store"`
	Dir   string `yaml:"dir"`
	DSN   string `yaml:"dsn"`
}

// PipelineConfig tunes the enrichment stages.
type PipelineConfig struct {
	Workers          int `yaml:"workers"`
	MaxWords         int `yaml:"maxWords"`
	MinTrailingWords int `yaml:"minTrailingWords"`
	MediaMinSpacing  int `yaml:"mediaMinSpacing"`
	MinHeadings      int `yaml:"minHeadings"`
	RelatedCount     int `yaml:"relatedCount"`
}

// LinkingConfig drives the link catalog and the injector caps.
type LinkingConfig struct {
	MaxLinks                 int                 `yaml:"maxLinks"`
	MaxPerDestination        int                 `yaml:"maxPerDestination"`
	MaxPhrasesPerDestination int                 `yaml:"maxPhrasesPerDestination"`
	CategoryURLPattern       string              `yaml:"categoryUrlPattern"`
	DocumentURLPattern       string              `yaml:"documentUrlPattern"`
	CategorySynonyms         map[string][]string `yaml:"categorySynonyms"`
	StaticDestinations       []StaticDestination `yaml:"staticDestinations"`
}

// StaticDestination is a fixed phrase pointing at a hand-picked page.
type StaticDestination struct {
	Phrase string `yaml:"phrase"`
	URL    string `yaml:"url"`
}

// SchedulerConfig defines when scheduled batches run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// MetricsConfig enables the Prometheus recorder. When Textfile is set the
// registry is dumped there after every batch.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Textfile string `yaml:"textfile"`
}

// NotifyConfig lists where batch reports are announced. Empty sections are
// disabled.
type NotifyConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Webhook  WebhookConfig  `yaml:"webhook"`
}

// TelegramConfig carries Telegram bot credentials.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	APIBase  string `yaml:"apiBase"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// WebhookConfig points at a site rebuild hook.
type WebhookConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"apiKey"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	return LoadFile(os.Getenv(configPathEnv))
}

// LoadFile is Load with an explicit path; an empty path means defaults only.
func LoadFile(path string) Config {
	cfg := defaultConfig()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			logger.New("config").Printf("cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				logger.New("config").Printf("cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Input.Sources) == 0 {
		cfg.Input.Sources = defaultConfig().Input.Sources
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(storeDSNEnv); v != "" {
		c.Output.DSN = v
		c.Output.Store = StoreSQLite
	}

	if v := os.Getenv(outputDirEnv); v != "" {
		c.Output.Dir = v
	}

	if v := os.Getenv(telegramToken); v != "" {
		c.Notify.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChat); v != "" {
		c.Notify.Telegram.ChatID = v
	}
	if v := os.Getenv(webhookURLEnv); v != "" {
		c.Notify.Webhook.URL = v
	}
	if v := os.Getenv(webhookKeyEnv); v != "" {
		c.Notify.Webhook.APIKey = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		logger.New("config").Printf("unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if len(override.Input.Sources) > 0 {
		base.Input.Sources = override.Input.Sources
	}
	if override.Input.Resources != "" {
		base.Input.Resources = override.Input.Resources
	}

	if override.Output.Store != "" {
		base.Output.Store = override.Output.Store
	}
	if override.Output.Dir != "" {
		base.Output.Dir = override.Output.Dir
	}
	if override.Output.DSN != "" {
		base.Output.DSN = override.Output.DSN
	}

	base.Pipeline.Workers = pickInt(base.Pipeline.Workers, override.Pipeline.Workers)
	base.Pipeline.MaxWords = pickInt(base.Pipeline.MaxWords, override.Pipeline.MaxWords)
	base.Pipeline.MinTrailingWords = pickInt(base.Pipeline.MinTrailingWords, override.Pipeline.MinTrailingWords)
	base.Pipeline.MediaMinSpacing = pickInt(base.Pipeline.MediaMinSpacing, override.Pipeline.MediaMinSpacing)
	base.Pipeline.MinHeadings = pickInt(base.Pipeline.MinHeadings, override.Pipeline.MinHeadings)
	base.Pipeline.RelatedCount = pickInt(base.Pipeline.RelatedCount, override.Pipeline.RelatedCount)

	base.Linking.MaxLinks = pickInt(base.Linking.MaxLinks, override.Linking.MaxLinks)
	base.Linking.MaxPerDestination = pickInt(base.Linking.MaxPerDestination, override.Linking.MaxPerDestination)
	base.Linking.MaxPhrasesPerDestination = pickInt(base.Linking.MaxPhrasesPerDestination, override.Linking.MaxPhrasesPerDestination)
	if override.Linking.CategoryURLPattern != "" {
		base.Linking.CategoryURLPattern = override.Linking.CategoryURLPattern
	}
	if override.Linking.DocumentURLPattern != "" {
		base.Linking.DocumentURLPattern = override.Linking.DocumentURLPattern
	}
	if len(override.Linking.CategorySynonyms) > 0 {
		base.Linking.CategorySynonyms = override.Linking.CategorySynonyms
	}
	if len(override.Linking.StaticDestinations) > 0 {
		base.Linking.StaticDestinations = override.Linking.StaticDestinations
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Metrics.Enabled {
		base.Metrics.Enabled = true
	}
	if override.Metrics.Textfile != "" {
		base.Metrics.Textfile = override.Metrics.Textfile
	}

	if override.Notify.Telegram.BotToken != "" {
		base.Notify.Telegram.BotToken = override.Notify.Telegram.BotToken
	}
	if override.Notify.Telegram.ChatID != "" {
		base.Notify.Telegram.ChatID = override.Notify.Telegram.ChatID
	}
	if override.Notify.Telegram.APIBase != "" {
		base.Notify.Telegram.APIBase = override.Notify.Telegram.APIBase
	}
	if override.Notify.Webhook.URL != "" {
		base.Notify.Webhook = override.Notify.Webhook
	}

	return base
}

func pickInt(base, override int) int {
	if override > 0 {
		return override
	}
	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Input: InputConfig{
			Sources: []SourceConfig{
				{Name: "drafts", Scanner: "json", Dir: "drafts", Pattern: "*.json"},
			},
		},
		Output: OutputConfig{Store: StoreFilesystem, Dir: "enriched", DSN: "file:enricher.db"},
		Pipeline: PipelineConfig{
			Workers:          4,
			MaxWords:         80,
			MinTrailingWords: 15,
			MediaMinSpacing:  100,
			MinHeadings:      2,
			RelatedCount:     3,
		},
		Linking: LinkingConfig{
			MaxLinks:                 15,
			MaxPerDestination:        2,
			MaxPhrasesPerDestination: 6,
			CategoryURLPattern:       "/category/{slug}/",
			DocumentURLPattern:       "/{slug}/",
		},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone, location: tz},
	}
}
