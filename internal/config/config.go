package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	SerpAPI    SerpAPIConfig    `yaml:"serpapi" mapstructure:"serpapi"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Apify      ApifyConfig      `yaml:"apify" mapstructure:"apify"`
	Classify   ClassifyConfig   `yaml:"classify" mapstructure:"classify"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Pacing     PacingConfig     `yaml:"pacing" mapstructure:"pacing"`
	Filter     FilterConfig     `yaml:"filter" mapstructure:"filter"`
	Dedup      DedupConfig      `yaml:"dedup" mapstructure:"dedup"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// SearchConfig selects the discovery backend and its request hints.
type SearchConfig struct {
	Provider        string `yaml:"provider" mapstructure:"provider"`
	Region          string `yaml:"region" mapstructure:"region"`
	Language        string `yaml:"language" mapstructure:"language"`
	ResultsPerQuery int    `yaml:"results_per_query" mapstructure:"results_per_query"`
}

// SerpAPIConfig holds SerpAPI credentials.
type SerpAPIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// JinaConfig holds Jina search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// ApifyConfig holds the Apify key pool and actor call settings.
type ApifyConfig struct {
	Keys        []string `yaml:"keys" mapstructure:"keys"`
	BaseURL     string   `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ClassifyConfig selects the AI oracle backing classification.
type ClassifyConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// PipelineConfig bounds the deep loop.
type PipelineConfig struct {
	Target             int `yaml:"target" mapstructure:"target"`
	MaxRounds          int `yaml:"max_rounds" mapstructure:"max_rounds"`
	MaxEmptyRounds     int `yaml:"max_empty_rounds" mapstructure:"max_empty_rounds"`
	RoundCeiling       int `yaml:"round_ceiling" mapstructure:"round_ceiling"`
	MaxQueries         int `yaml:"max_queries" mapstructure:"max_queries"`
	MaxScrapes         int `yaml:"max_scrapes" mapstructure:"max_scrapes"`
	MaxClassifications int `yaml:"max_classifications" mapstructure:"max_classifications"`
}

// EnrichConfig configures enrichment batching.
type EnrichConfig struct {
	ProfileBatchSize     int `yaml:"profile_batch_size" mapstructure:"profile_batch_size"`
	CompanyBatchSize     int `yaml:"company_batch_size" mapstructure:"company_batch_size"`
	RateLimitBackoffSecs int `yaml:"rate_limit_backoff_secs" mapstructure:"rate_limit_backoff_secs"`
}

// PacingConfig holds the fixed spacing between external calls.
type PacingConfig struct {
	QueryDelayMs    int `yaml:"query_delay_ms" mapstructure:"query_delay_ms"`
	BatchDelayMs    int `yaml:"batch_delay_ms" mapstructure:"batch_delay_ms"`
	ClassifyDelayMs int `yaml:"classify_delay_ms" mapstructure:"classify_delay_ms"`
	RoundDelayMs    int `yaml:"round_delay_ms" mapstructure:"round_delay_ms"`
}

// FilterConfig configures the hard filter cascade.
type FilterConfig struct {
	TaxonomyPath   string `yaml:"taxonomy_path" mapstructure:"taxonomy_path"`
	MinConnections int    `yaml:"min_connections" mapstructure:"min_connections"`
	MaxConnections int    `yaml:"max_connections" mapstructure:"max_connections"`
	MinFollowers   int    `yaml:"min_followers" mapstructure:"min_followers"`
	MaxFollowers   int    `yaml:"max_followers" mapstructure:"max_followers"`
}

// DedupConfig configures cross-run deduplication.
type DedupConfig struct {
	ByName bool `yaml:"by_name" mapstructure:"by_name"`
}

// NotionConfig holds Notion API credentials and database IDs.
type NotionConfig struct {
	Token   string `yaml:"token" mapstructure:"token"`
	PriorDB string `yaml:"prior_db" mapstructure:"prior_db"`
	LeadDB  string `yaml:"lead_db" mapstructure:"lead_db"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// ServerConfig configures the API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.leadscout")

	// Environment
	v.SetEnvPrefix("LEADSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leadscout.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("search.provider", "serpapi")
	v.SetDefault("search.region", "in")
	v.SetDefault("search.language", "en")
	v.SetDefault("search.results_per_query", 20)
	v.SetDefault("serpapi.key", "")
	v.SetDefault("serpapi.base_url", "https://serpapi.com")
	v.SetDefault("jina.key", "")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("apify.keys", []string{})
	v.SetDefault("apify.base_url", "https://api.apify.com")
	v.SetDefault("apify.timeout_secs", 180)
	v.SetDefault("classify.provider", "gemini")
	v.SetDefault("gemini.key", "")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("pipeline.target", 20)
	v.SetDefault("pipeline.max_rounds", 15)
	v.SetDefault("pipeline.max_empty_rounds", 4)
	v.SetDefault("pipeline.round_ceiling", 40)
	v.SetDefault("pipeline.max_queries", 50)
	v.SetDefault("pipeline.max_scrapes", 300)
	v.SetDefault("pipeline.max_classifications", 300)
	v.SetDefault("enrich.profile_batch_size", 20)
	v.SetDefault("enrich.company_batch_size", 30)
	v.SetDefault("enrich.rate_limit_backoff_secs", 30)
	v.SetDefault("pacing.query_delay_ms", 1500)
	v.SetDefault("pacing.batch_delay_ms", 3000)
	v.SetDefault("pacing.classify_delay_ms", 4000)
	v.SetDefault("pacing.round_delay_ms", 1000)
	v.SetDefault("filter.taxonomy_path", "")
	v.SetDefault("filter.min_connections", 100)
	v.SetDefault("filter.max_connections", 30000)
	v.SetDefault("filter.min_followers", 50)
	v.SetDefault("filter.max_followers", 500000)
	v.SetDefault("dedup.by_name", false)
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.prior_db", "")
	v.SetDefault("notion.lead_db", "")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	cfg.Apify.Keys = splitKeys(cfg.Apify.Keys)

	return &cfg, nil
}

// splitKeys flattens comma-joined entries and drops blanks.
func splitKeys(in []string) []string {
	var out []string
	for _, raw := range in {
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				out = append(out, k)
			}
		}
	}
	return out
}

// Validate checks that the configuration is usable for the given command
// mode ("run", "serve" or "read"). All problems are reported together.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	switch mode {
	case "run":
		errs = append(errs, c.validateRun()...)
	case "serve":
		errs = append(errs, c.validateRun()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "read":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateRun() []string {
	var errs []string
	switch c.Search.Provider {
	case "serpapi":
		if c.SerpAPI.Key == "" {
			errs = append(errs, "serpapi.key is required when search.provider=serpapi")
		}
	case "jina":
		if c.Jina.Key == "" {
			errs = append(errs, "jina.key is required when search.provider=jina")
		}
	default:
		errs = append(errs, fmt.Sprintf("search.provider %q is not supported", c.Search.Provider))
	}
	switch c.Classify.Provider {
	case "gemini", "anthropic":
	default:
		errs = append(errs, fmt.Sprintf("classify.provider %q is not supported", c.Classify.Provider))
	}
	if c.Pipeline.Target <= 0 {
		errs = append(errs, "pipeline.target must be > 0")
	}
	if c.Pipeline.MaxRounds <= 0 {
		errs = append(errs, "pipeline.max_rounds must be > 0")
	}
	if c.Pipeline.MaxEmptyRounds <= 0 {
		errs = append(errs, "pipeline.max_empty_rounds must be > 0")
	}
	if c.Filter.MinConnections > c.Filter.MaxConnections {
		errs = append(errs, "filter.min_connections must not exceed filter.max_connections")
	}
	if c.Filter.MinFollowers > c.Filter.MaxFollowers {
		errs = append(errs, "filter.min_followers must not exceed filter.max_followers")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
