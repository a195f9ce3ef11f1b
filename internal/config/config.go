package config

import (
	"log"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "NEWSDESK_CONFIG"

	portEnv             = "PORT"
	logLevelEnv         = "LOG_LEVEL"
	searchAPIKeyEnv     = "SEARCH_API_KEY"
	generationAPIKeyEnv = "GENERATION_API_KEY"
	generationModelEnv  = "GENERATION_MODEL"
	archiveBackendEnv   = "ARCHIVE_BACKEND"
	archivePathEnv      = "ARCHIVE_PATH"
	archiveDSNEnv       = "ARCHIVE_DSN"
	s3BucketEnv         = "S3_BUCKET"
	s3RegionEnv         = "S3_REGION"
	redisAddrEnv        = "REDIS_ADDR"
	redisPassEnv        = "REDIS_PASS"
	telegramTokenEnv    = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv   = "TELEGRAM_CHAT_ID"
)

// Archive backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendS3     = "s3"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds high-level settings required across the application.
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Logging       LoggingConfig      `yaml:"logging"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Archive       ArchiveConfig      `yaml:"archive"`
	Cache         CacheConfig        `yaml:"cache"`
	Feeds         FeedsConfig        `yaml:"feeds"`
	Search        SearchConfig       `yaml:"search"`
	Generation    GenerationConfig   `yaml:"generation"`
	Analysis      AnalysisConfig     `yaml:"analysis"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RetryAfter      time.Duration `yaml:"retryAfter"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SchedulerConfig defines when topics are prewarmed.
type SchedulerConfig struct {
	Enabled        bool           `yaml:"enabled"`
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	RunOnStart     bool           `yaml:"runOnStart"`
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

// ArchiveConfig picks and configures the persistence backend.
type ArchiveConfig struct {
	Backend       string `yaml:"backend"`
	Path          string `yaml:"path"`
	DSN           string `yaml:"dsn"`
	Bucket        string `yaml:"bucket"`
	Key           string `yaml:"key"`
	Region        string `yaml:"region"`
	UsePathStyle  bool   `yaml:"usePathStyle"`
	RetentionDays int    `yaml:"retentionDays"`
}

// CacheConfig picks the cache backend and entry lifetimes.
type CacheConfig struct {
	Backend    string        `yaml:"backend"`
	Redis      RedisConfig   `yaml:"redis"`
	SearchTTL  time.Duration `yaml:"searchTTL"`
	KeywordTTL time.Duration `yaml:"keywordTTL"`
	CorpusTTL  time.Duration `yaml:"corpusTTL"`
}

// RedisConfig holds connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// FeedsConfig lists feed sources and fetch limits.
type FeedsConfig struct {
	Timeout        time.Duration  `yaml:"timeout"`
	PerSourceLimit int            `yaml:"perSourceLimit"`
	Sources        []SourceConfig `yaml:"sources"`
}

// SourceConfig describes a single feed with its scanner strategy.
type SourceConfig struct {
	Name     string            `yaml:"name"`
	URL      string            `yaml:"url"`
	Kind     string            `yaml:"kind"`
	Category string            `yaml:"category"`
	Options  map[string]string `yaml:"options"`
}

// SearchConfig defines how to contact the web search API and the fallback tiers.
type SearchConfig struct {
	Endpoint       string        `yaml:"endpoint"`
	APIKey         string        `yaml:"apiKey"`
	PerSecond      int           `yaml:"perSecond"`
	MonthlyLimit   int           `yaml:"monthlyLimit"`
	Gap            time.Duration `yaml:"gap"`
	QueryDelay     time.Duration `yaml:"queryDelay"`
	TargetCount    int           `yaml:"targetCount"`
	PerQuery       int           `yaml:"perQuery"`
	Language       string        `yaml:"language"`
	Country        string        `yaml:"country"`
	TrustedDomains []string      `yaml:"trustedDomains"`
	TopicalQueries []string      `yaml:"topicalQueries"`
	BroadQueries   []string      `yaml:"broadQueries"`
}

// GenerationConfig defines how to contact the chat completion API.
type GenerationConfig struct {
	Endpoint     string          `yaml:"endpoint"`
	APIKey       string          `yaml:"apiKey"`
	Model        string          `yaml:"model"`
	SystemPrompt string          `yaml:"systemPrompt"`
	MaxTokens    int             `yaml:"maxTokens"`
	Temperature  float32         `yaml:"temperature"`
	PerMinute    int             `yaml:"perMinute"`
	Gap          time.Duration   `yaml:"gap"`
	Backoff      []time.Duration `yaml:"backoff"`
	Timeout      time.Duration   `yaml:"timeout"`
}

// AnalysisConfig tunes corpus assembly and topic extraction.
type AnalysisConfig struct {
	RecencyWindow     time.Duration `yaml:"recencyWindow"`
	MaxTopics         int           `yaml:"maxTopics"`
	TopicFloor        int           `yaml:"topicFloor"`
	CorpusLimit       int           `yaml:"corpusLimit"`
	FeedPromptItems   int           `yaml:"feedPromptItems"`
	SearchPromptItems int           `yaml:"searchPromptItems"`
	PromptItems       int           `yaml:"promptItems"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Load reads YAML configuration (if present) over the defaults and applies
// environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if merged, err := Parse(raw, cfg); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
		} else {
			cfg = merged
		}
	}

	cfg.applyEnvOverrides(os.Getenv)
	cfg.bindTimezone()
	return cfg
}

// Parse decodes raw YAML over base; keys absent from raw keep base values.
func Parse(raw []byte, base Config) (Config, error) {
	out := base
	out.Feeds.Sources = nil
	out.Search.TrustedDomains = nil
	out.Search.TopicalQueries = nil
	out.Search.BroadQueries = nil
	out.Generation.Backoff = nil

	if err := yaml.Unmarshal(raw, &out); err != nil {
		return base, err
	}

	if len(out.Feeds.Sources) == 0 {
		out.Feeds.Sources = base.Feeds.Sources
	}
	if len(out.Search.TrustedDomains) == 0 {
		out.Search.TrustedDomains = base.Search.TrustedDomains
	}
	if len(out.Search.TopicalQueries) == 0 {
		out.Search.TopicalQueries = base.Search.TopicalQueries
	}
	if len(out.Search.BroadQueries) == 0 {
		out.Search.BroadQueries = base.Search.BroadQueries
	}
	if len(out.Generation.Backoff) == 0 {
		out.Generation.Backoff = base.Generation.Backoff
	}
	for i := range out.Feeds.Sources {
		if out.Feeds.Sources[i].Kind == "" {
			out.Feeds.Sources[i].Kind = "rss"
		}
	}
	return out, nil
}

func (c *Config) applyEnvOverrides(getenv func(string) string) {
	if v := getenv(portEnv); v != "" {
		c.Server.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	if v := getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := getenv(searchAPIKeyEnv); v != "" {
		c.Search.APIKey = v
	}
	if v := getenv(generationAPIKeyEnv); v != "" {
		c.Generation.APIKey = v
	}
	if v := getenv(generationModelEnv); v != "" {
		c.Generation.Model = v
	}

	if v := getenv(archiveBackendEnv); v != "" {
		c.Archive.Backend = strings.ToLower(v)
	}
	if v := getenv(archivePathEnv); v != "" {
		c.Archive.Path = v
	}
	if v := getenv(archiveDSNEnv); v != "" {
		c.Archive.DSN = v
	}
	if v := getenv(s3BucketEnv); v != "" {
		c.Archive.Bucket = v
	}
	if v := getenv(s3RegionEnv); v != "" {
		c.Archive.Region = v
	}

	if v := getenv(redisAddrEnv); v != "" {
		c.Cache.Redis.Addr = v
		if c.Cache.Backend == CacheMemory {
			c.Cache.Backend = CacheRedis
		}
	}
	if v := getenv(redisPassEnv); v != "" {
		c.Cache.Redis.Password = v
	}

	if v := getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Server: ServerConfig{
			Addr:            ":3000",
			ShutdownTimeout: 10 * time.Second,
			RetryAfter:      5 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Scheduler: SchedulerConfig{
			Enabled:        true,
			CronExpression: "0 6 * * *",
			Timezone:       defaultTimezone,
			location:       tz,
		},
		Archive: ArchiveConfig{
			Backend:       BackendFile,
			Path:          "data/archive.json",
			DSN:           "file:data/archive.db",
			Key:           "archive.json",
			RetentionDays: 60,
		},
		Cache: CacheConfig{
			Backend:    CacheMemory,
			Redis:      RedisConfig{Addr: "localhost:6379"},
			SearchTTL:  30 * time.Minute,
			KeywordTTL: 12 * time.Hour,
			CorpusTTL:  24 * time.Hour,
		},
		Feeds: FeedsConfig{
			Timeout:        10 * time.Second,
			PerSourceLimit: 12,
			Sources: []SourceConfig{
				{Name: "New York Times", URL: "https://rss.nytimes.com/services/xml/rss/nyt/World.xml", Kind: "rss", Category: "world"},
				{Name: "The Guardian", URL: "https://www.theguardian.com/world/rss", Kind: "rss", Category: "world"},
				{Name: "BBC", URL: "https://feeds.bbci.co.uk/news/world/rss.xml", Kind: "rss", Category: "world"},
				{Name: "Reuters", URL: "https://www.reuters.com/world/rss/", Kind: "rss", Category: "world"},
				{Name: "AP", URL: "https://apnews.com/rss/world-news", Kind: "rss", Category: "world"},
				{Name: "Al Jazeera", URL: "https://www.aljazeera.com/xml/rss/all.xml", Kind: "rss", Category: "world"},
				{Name: "Foreign Policy", URL: "https://foreignpolicy.com/feed/", Kind: "rss", Category: "analysis"},
				{Name: "Washington Post", URL: "http://feeds.washingtonpost.com/rss/world", Kind: "rss", Category: "world"},
			},
		},
		Search: SearchConfig{
			Endpoint:     "https://api.search.brave.com/res/v1/web/search",
			PerSecond:    18,
			MonthlyLimit: 20000000,
			Gap:          50 * time.Millisecond,
			QueryDelay:   300 * time.Millisecond,
			TargetCount:  30,
			PerQuery:     5,
			Language:     "en",
			Country:      "US",
			TrustedDomains: []string{
				"bbc.com", "cnn.com", "reuters.com", "apnews.com",
				"theguardian.com", "nytimes.com", "foreignpolicy.com", "washingtonpost.com",
			},
			TopicalQueries: []string{
				"Russia Ukraine war latest news",
				"Israel Gaza conflict recent developments",
				"US China relations breaking news",
				"North Korea missile test latest",
				"European Union policy new updates",
			},
			BroadQueries: []string{
				"international politics news",
				"world affairs latest",
				"global diplomacy developments",
			},
		},
		Generation: GenerationConfig{
			Endpoint:     "https://api.openai.com/v1",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You are an experienced international affairs editor.",
			MaxTokens:    4096,
			Temperature:  0.7,
			PerMinute:    20,
			Gap:          300 * time.Millisecond,
			Backoff:      []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 15 * time.Second, 30 * time.Second},
			Timeout:      90 * time.Second,
		},
		Analysis: AnalysisConfig{
			RecencyWindow:     48 * time.Hour,
			MaxTopics:         6,
			TopicFloor:        6,
			CorpusLimit:       40,
			FeedPromptItems:   20,
			SearchPromptItems: 10,
			PromptItems:       25,
		},
	}
}
